package repository

import (
	"context"
	"strings"
	"time"
)

// Claves conocidas de PlatformConnection.Metadata. El engine no las interpreta.
const (
	MetaDisplayName = "display_name"
	MetaProfileID   = "profile_id"
)

// PlatformConnection es la forma canónica de una credencial OAuth de un usuario en una plataforma.
type PlatformConnection struct {
	Platform      Platform          `json:"platform"`
	AccessToken   string            `json:"-"`
	RefreshToken  string            `json:"-"`
	TokenExpiry   *time.Time        `json:"token_expiry,omitempty"`
	ConnectedAt   *time.Time        `json:"connected_at,omitempty"`
	LastValidated *time.Time        `json:"last_validated,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Connected es true sii hay un access token no vacío.
func (c PlatformConnection) Connected() bool {
	return strings.TrimSpace(c.AccessToken) != ""
}

// HasRefreshToken indica si la conexión puede llegar a auto-reparación.
func (c PlatformConnection) HasRefreshToken() bool {
	return strings.TrimSpace(c.RefreshToken) != ""
}

// ConnectionUpdate contiene campos parciales a mergear sobre una conexión.
// Los punteros nil no se tocan.
type ConnectionUpdate struct {
	AccessToken  *string
	RefreshToken *string
	TokenExpiry  *time.Time
	ConnectedAt  *time.Time
	Metadata     map[string]string
}

// Empty indica que el update no trae ningún campo.
func (u ConnectionUpdate) Empty() bool {
	return u.AccessToken == nil && u.RefreshToken == nil && u.TokenExpiry == nil &&
		u.ConnectedAt == nil && len(u.Metadata) == 0
}

// ConnectionRepository es el contrato del Store Adapter que consume el engine.
// Las implementaciones viven en internal/store.
type ConnectionRepository interface {
	// ResolveUser busca el usuario por id, username o email, empezando por preferred
	// si no es vacío. Retorna ErrUserNotFound si ningún store lo tiene.
	ResolveUser(ctx context.Context, identifier string, preferred StoreTag) (*UserRecord, error)

	// GetConnections relee las conexiones del store dueño del usuario.
	GetConnections(ctx context.Context, user *UserRecord) (map[Platform]PlatformConnection, error)

	// UpdateConnection mergea upd sobre la conexión (creándola si no existe) y estampa lastValidated.
	// Cualquier fallo de persistencia envuelve ErrStoreWriteFailed.
	UpdateConnection(ctx context.Context, user *UserRecord, platform Platform, upd ConnectionUpdate) error

	// RemoveConnection borra todos los campos de la plataforma en el store dueño.
	RemoveConnection(ctx context.Context, user *UserRecord, platform Platform) error
}
