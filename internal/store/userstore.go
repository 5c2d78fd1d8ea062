package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
)

// UserStore es un store de usuarios con su esquema nativo ya resuelto.
// Fuera de este paquete nunca se ramifica por tipo de store.
type UserStore interface {
	// Tag retorna qué store es (primary/secondary).
	Tag() repository.StoreTag

	// Find busca por id, username y email, en ese orden. Retorna repository.ErrNotFound si
	// ninguna clave matchea y un error que envuelve ErrStoreUnavailable ante fallas de I/O.
	Find(ctx context.Context, identifier string) (*repository.UserRecord, error)

	// Connections relee las conexiones del usuario.
	Connections(ctx context.Context, userID string) (map[repository.Platform]repository.PlatformConnection, error)

	// Update mergea campos parciales y estampa lastValidated = now.
	Update(ctx context.Context, userID string, p repository.Platform, upd repository.ConnectionUpdate, now time.Time) error

	// Remove borra todos los campos de la plataforma.
	Remove(ctx context.Context, userID string, p repository.Platform) error

	// Create inserta un usuario nuevo con sus conexiones (sync entre stores).
	Create(ctx context.Context, id Identity, conns map[repository.Platform]repository.PlatformConnection) error

	// Ping verifica el backend.
	Ping(ctx context.Context) error

	// Close cierra el backend.
	Close() error
}

// TokenCipher cifra tokens en reposo. Open debe aceptar valores en texto plano.
type TokenCipher interface {
	Seal(plain string) (string, error)
	Open(stored string) (string, error)
}

// schemaStore implementa UserStore combinando un Backend con un Schema.
type schemaStore struct {
	tag     repository.StoreTag
	backend Backend
	schema  Schema
	cipher  TokenCipher
	log     *zap.Logger
}

// StoreOption configura un UserStore.
type StoreOption func(*schemaStore)

// WithCipher habilita el cifrado de tokens en reposo.
func WithCipher(c TokenCipher) StoreOption {
	return func(s *schemaStore) { s.cipher = c }
}

// WithStoreLogger setea el logger del store.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *schemaStore) { s.log = l }
}

// NewUserStore crea un UserStore.
func NewUserStore(tag repository.StoreTag, backend Backend, schema Schema, opts ...StoreOption) UserStore {
	s := &schemaStore{
		tag:     tag,
		backend: backend,
		schema:  schema,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *schemaStore) Tag() repository.StoreTag { return s.tag }

func (s *schemaStore) Find(ctx context.Context, identifier string) (*repository.UserRecord, error) {
	for _, key := range LookupOrder {
		doc, err := s.backend.FindOne(ctx, s.schema.LookupField(key), identifier)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s (%s) lookup by %s: %v", repository.ErrStoreUnavailable, s.tag, s.backend.Name(), key, err)
		}
		id := s.schema.Identity(doc)
		return &repository.UserRecord{
			Identifier:  identifier,
			ID:          id.ID,
			Username:    id.Username,
			Email:       id.Email,
			Store:       s.tag,
			Connections: s.decode(doc),
		}, nil
	}
	return nil, repository.ErrNotFound
}

func (s *schemaStore) Connections(ctx context.Context, userID string) (map[repository.Platform]repository.PlatformConnection, error) {
	doc, err := s.backend.FindOne(ctx, s.schema.LookupField(LookupID), userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s in %s", repository.ErrUserNotFound, userID, s.tag)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrStoreUnavailable, s.tag, err)
	}
	return s.decode(doc), nil
}

func (s *schemaStore) Update(ctx context.Context, userID string, p repository.Platform, upd repository.ConnectionUpdate, now time.Time) error {
	current, err := s.Connections(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: %w", repository.ErrStoreWriteFailed, err)
	}

	// Un update vacío sólo estampa lastValidated; sin conexión no hay nada que validar.
	if upd.Empty() && !current[p].Connected() {
		return fmt.Errorf("%w: %w: %s", repository.ErrStoreWriteFailed, repository.ErrNotConnected, p)
	}

	// Conexión nueva: estampar connectedAt si el caller no lo trajo.
	if existing := current[p]; !existing.Connected() && upd.AccessToken != nil && *upd.AccessToken != "" && upd.ConnectedAt == nil {
		upd.ConnectedAt = &now
	}

	sealed, err := s.sealUpdate(upd)
	if err != nil {
		return fmt.Errorf("%w: seal tokens: %v", repository.ErrStoreWriteFailed, err)
	}

	fields := s.schema.UpdateFields(p, sealed)
	fields[s.schema.LastValidatedField(p)] = now.UTC()

	if err := s.backend.Set(ctx, userID, fields); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrStoreWriteFailed, s.tag, err)
	}
	return nil
}

func (s *schemaStore) Remove(ctx context.Context, userID string, p repository.Platform) error {
	if err := s.backend.Unset(ctx, userID, s.schema.PlatformFields(p)); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrStoreWriteFailed, s.tag, err)
	}
	return nil
}

func (s *schemaStore) Create(ctx context.Context, id Identity, conns map[repository.Platform]repository.PlatformConnection) error {
	sealed := make(map[repository.Platform]repository.PlatformConnection, len(conns))
	for p, c := range conns {
		var err error
		if c.AccessToken, err = s.seal(c.AccessToken); err != nil {
			return fmt.Errorf("%w: seal tokens: %v", repository.ErrStoreWriteFailed, err)
		}
		if c.RefreshToken, err = s.seal(c.RefreshToken); err != nil {
			return fmt.Errorf("%w: seal tokens: %v", repository.ErrStoreWriteFailed, err)
		}
		sealed[p] = c
	}
	if err := s.backend.Insert(ctx, s.schema.NewDocument(id, sealed)); err != nil {
		return fmt.Errorf("%w: %s: %v", repository.ErrStoreWriteFailed, s.tag, err)
	}
	return nil
}

func (s *schemaStore) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

func (s *schemaStore) Close() error { return s.backend.Close() }

// decode traduce y descifra. Un token que no se puede descifrar se descarta (queda como
// no conectado) en lugar de filtrar el valor cifrado al proveedor.
func (s *schemaStore) decode(doc Document) map[repository.Platform]repository.PlatformConnection {
	conns := s.schema.Connections(doc)
	if s.cipher == nil {
		return conns
	}
	for p, c := range conns {
		at, err := s.cipher.Open(c.AccessToken)
		if err != nil {
			s.log.Warn("access token decrypt failed", logger.Store(string(s.tag)), logger.Platform(string(p)), logger.Err(err))
			at = ""
		}
		rt, err := s.cipher.Open(c.RefreshToken)
		if err != nil {
			s.log.Warn("refresh token decrypt failed", logger.Store(string(s.tag)), logger.Platform(string(p)), logger.Err(err))
			rt = ""
		}
		c.AccessToken, c.RefreshToken = at, rt
		conns[p] = c
	}
	return conns
}

func (s *schemaStore) seal(v string) (string, error) {
	if s.cipher == nil || v == "" {
		return v, nil
	}
	return s.cipher.Seal(v)
}

func (s *schemaStore) sealUpdate(upd repository.ConnectionUpdate) (repository.ConnectionUpdate, error) {
	if upd.AccessToken != nil {
		v, err := s.seal(*upd.AccessToken)
		if err != nil {
			return upd, err
		}
		upd.AccessToken = &v
	}
	if upd.RefreshToken != nil {
		v, err := s.seal(*upd.RefreshToken)
		if err != nil {
			return upd, err
		}
		upd.RefreshToken = &v
	}
	return upd, nil
}
