package repository

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound indica que ningún store respondió con el usuario.
	ErrUserNotFound = errors.New("user not found")

	// ErrPlatformUnsupported indica que la plataforma no está en el registry.
	ErrPlatformUnsupported = errors.New("platform unsupported")

	// ErrNoRefreshToken indica que hace falta refrescar pero no hay refresh token.
	ErrNoRefreshToken = errors.New("no refresh token - manual reconnection required")

	// ErrRefreshFailed indica que el proveedor rechazó el refresh.
	ErrRefreshFailed = errors.New("refresh failed")

	// ErrProbeFailed indica una falla transitoria del proveedor o de red durante el probe.
	// No es un problema de credenciales.
	ErrProbeFailed = errors.New("probe error")

	// ErrStoreWriteFailed indica que la persistencia no confirmó la escritura.
	ErrStoreWriteFailed = errors.New("store write failed")

	// ErrStoreUnavailable indica que un store no pudo responder.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotConnected indica que la plataforma no tiene access token.
	ErrNotConnected = errors.New("platform not connected")

	// ErrTokenInvalid indica que el proveedor rechaza un token no vencido (revocado externamente).
	ErrTokenInvalid = errors.New("token rejected before expiry - reauthorization required")

	// ErrAlreadyExists indica que el destino ya tiene el registro.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound lo usan los backends cuando un documento no existe.
	ErrNotFound = errors.New("not found")
)

// ErrorKind es la forma estable y serializable de un error en los reportes.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindUserNotFound        ErrorKind = "user_not_found"
	KindPlatformUnsupported ErrorKind = "platform_unsupported"
	KindNoRefreshToken      ErrorKind = "no_refresh_token"
	KindRefreshFailed       ErrorKind = "refresh_failed"
	KindProbeError          ErrorKind = "probe_error"
	KindStoreWriteFailed    ErrorKind = "store_write_failed"
	KindStoreUnavailable    ErrorKind = "store_unavailable"
	KindNotConnected        ErrorKind = "not_connected"
	KindTokenInvalid        ErrorKind = "token_invalid"
	KindAlreadyExists       ErrorKind = "already_exists"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindTimeout             ErrorKind = "timeout"
	KindCanceled            ErrorKind = "canceled"
	KindInternal            ErrorKind = "internal"
)

// El orden importa: un error puede envolver varios sentinels (ej: UserNotFound + StoreUnavailable).
var kindTable = []struct {
	err  error
	kind ErrorKind
}{
	{ErrUserNotFound, KindUserNotFound},
	{ErrPlatformUnsupported, KindPlatformUnsupported},
	{ErrNoRefreshToken, KindNoRefreshToken},
	{ErrStoreWriteFailed, KindStoreWriteFailed},
	{ErrRefreshFailed, KindRefreshFailed},
	{context.DeadlineExceeded, KindTimeout},
	{context.Canceled, KindCanceled},
	{ErrProbeFailed, KindProbeError},
	{ErrStoreUnavailable, KindStoreUnavailable},
	{ErrNotConnected, KindNotConnected},
	{ErrTokenInvalid, KindTokenInvalid},
	{ErrAlreadyExists, KindAlreadyExists},
	{ErrInvalidInput, KindInvalidInput},
}

// KindOf mapea un error a su ErrorKind. nil => KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, e := range kindTable {
		if errors.Is(err, e.err) {
			return e.kind
		}
	}
	return KindInternal
}
