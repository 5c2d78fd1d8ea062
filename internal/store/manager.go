package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/cache"
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/metrics"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
)

// Manager es el punto de entrada al Store Adapter. Resuelve usuarios entre los dos stores
// y delega lectura/escritura al store dueño del registro.
//
// Nunca mergea registros: el primer store que responde gana.
type Manager struct {
	stores  map[repository.StoreTag]UserStore
	order   []repository.StoreTag
	hints   cache.Client
	hintTTL time.Duration
	now     func() time.Time
	log     *zap.Logger
}

var _ repository.ConnectionRepository = (*Manager)(nil)

// ManagerOption configura el Manager.
type ManagerOption func(*Manager)

// WithLookupOrder fija el orden de búsqueda por defecto.
func WithLookupOrder(order ...repository.StoreTag) ManagerOption {
	return func(m *Manager) {
		if len(order) > 0 {
			m.order = order
		}
	}
}

// WithHints habilita hints de "qué store respondió" por identificador.
// Los hints sólo reordenan la búsqueda, nunca la acortan.
func WithHints(c cache.Client, ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		m.hints = c
		m.hintTTL = ttl
	}
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger setea el logger.
func WithLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// NewManager crea el Manager sobre los dos stores.
func NewManager(primary, secondary UserStore, opts ...ManagerOption) (*Manager, error) {
	if primary == nil || secondary == nil {
		return nil, fmt.Errorf("%w: both stores are required", repository.ErrInvalidInput)
	}
	if primary.Tag() == secondary.Tag() {
		return nil, fmt.Errorf("%w: stores share tag %q", repository.ErrInvalidInput, primary.Tag())
	}
	m := &Manager{
		stores: map[repository.StoreTag]UserStore{
			primary.Tag():   primary,
			secondary.Tag(): secondary,
		},
		order: []repository.StoreTag{primary.Tag(), secondary.Tag()},
		now:   time.Now,
		log:   logger.Named("store"),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, tag := range m.order {
		if _, ok := m.stores[tag]; !ok {
			return nil, fmt.Errorf("%w: lookup order references unknown store %q", repository.ErrInvalidInput, tag)
		}
	}
	return m, nil
}

// Store retorna el UserStore de un tag.
func (m *Manager) Store(tag repository.StoreTag) (UserStore, bool) {
	s, ok := m.stores[tag]
	return s, ok
}

func hintKey(identifier string) string { return "hint:" + identifier }

// searchOrder arma el orden de búsqueda: preferencia explícita, hint, orden configurado.
// Cada store aparece exactamente una vez.
func (m *Manager) searchOrder(ctx context.Context, identifier string, preferred repository.StoreTag) []repository.StoreTag {
	first := preferred
	if !first.Valid() && m.hints != nil {
		if v, err := m.hints.Get(ctx, hintKey(identifier)); err == nil {
			first = repository.StoreTag(v)
		}
	}
	if _, ok := m.stores[first]; !ok {
		return m.order
	}
	out := []repository.StoreTag{first}
	for _, tag := range m.order {
		if tag != first {
			out = append(out, tag)
		}
	}
	return out
}

// ResolveUser busca el usuario en los stores en orden de fallback. Un store caído se trata
// como "sin match" y la búsqueda sigue; sólo falla por indisponibilidad si fallaron todos.
func (m *Manager) ResolveUser(ctx context.Context, identifier string, preferred repository.StoreTag) (*repository.UserRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", repository.ErrInvalidInput)
	}

	order := m.searchOrder(ctx, identifier, preferred)
	var unavailable []error
	for _, tag := range order {
		u, err := m.stores[tag].Find(ctx, identifier)
		switch {
		case err == nil:
			m.saveHint(ctx, identifier, tag)
			return u, nil
		case errors.Is(err, repository.ErrNotFound):
			continue
		default:
			metrics.StoreLookupFailures.WithLabelValues(string(tag)).Inc()
			m.log.Warn("store lookup failed, trying next store",
				logger.Store(string(tag)), logger.Op("resolve_user"), logger.Identifier(identifier), logger.Err(err))
			unavailable = append(unavailable, err)
		}
	}

	if len(unavailable) == len(order) {
		return nil, fmt.Errorf("resolve %q: all stores failed: %w", identifier, errors.Join(unavailable...))
	}
	notFound := fmt.Errorf("%w: %q", repository.ErrUserNotFound, identifier)
	if len(unavailable) > 0 {
		return nil, errors.Join(notFound, errors.Join(unavailable...))
	}
	return nil, notFound
}

func (m *Manager) saveHint(ctx context.Context, identifier string, tag repository.StoreTag) {
	if m.hints == nil {
		return
	}
	if err := m.hints.Set(ctx, hintKey(identifier), string(tag), m.hintTTL); err != nil {
		m.log.Debug("store hint not saved", logger.Err(err))
	}
}

func (m *Manager) owner(user *repository.UserRecord) (UserStore, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: nil user", repository.ErrInvalidInput)
	}
	s, ok := m.stores[user.Store]
	if !ok {
		return nil, fmt.Errorf("%w: user %s has unknown store %q", repository.ErrInvalidInput, user.ID, user.Store)
	}
	return s, nil
}

// GetConnections relee las conexiones del store dueño. No modifica user: varias goroutines
// pueden leer el mismo usuario en paralelo.
func (m *Manager) GetConnections(ctx context.Context, user *repository.UserRecord) (map[repository.Platform]repository.PlatformConnection, error) {
	s, err := m.owner(user)
	if err != nil {
		return nil, err
	}
	return s.Connections(ctx, user.ID)
}

// UpdateConnection mergea campos y estampa lastValidated. Nunca hace panic: cualquier falla de
// persistencia vuelve como error que envuelve ErrStoreWriteFailed.
func (m *Manager) UpdateConnection(ctx context.Context, user *repository.UserRecord, p repository.Platform, upd repository.ConnectionUpdate) error {
	s, err := m.owner(user)
	if err != nil {
		return err
	}
	if !p.Valid() {
		return fmt.Errorf("%w: %q", repository.ErrPlatformUnsupported, p)
	}
	if err := s.Update(ctx, user.ID, p, upd, m.now()); err != nil {
		metrics.StoreWriteFailures.WithLabelValues(string(user.Store)).Inc()
		m.log.Warn("connection update not persisted",
			logger.Store(string(user.Store)), logger.UserID(user.ID), logger.Platform(string(p)), logger.Err(err))
		return err
	}
	return nil
}

// RemoveConnection borra los campos de la plataforma en el store dueño.
func (m *Manager) RemoveConnection(ctx context.Context, user *repository.UserRecord, p repository.Platform) error {
	s, err := m.owner(user)
	if err != nil {
		return err
	}
	if !p.Valid() {
		return fmt.Errorf("%w: %q", repository.ErrPlatformUnsupported, p)
	}
	if err := s.Remove(ctx, user.ID, p); err != nil {
		metrics.StoreWriteFailures.WithLabelValues(string(user.Store)).Inc()
		m.log.Warn("connection remove not persisted",
			logger.Store(string(user.Store)), logger.UserID(user.ID), logger.Platform(string(p)), logger.Err(err))
		return err
	}
	return nil
}

// Ping verifica cada store. El mapa sólo contiene los stores con error.
func (m *Manager) Ping(ctx context.Context) map[repository.StoreTag]error {
	out := map[repository.StoreTag]error{}
	for tag, s := range m.stores {
		if err := s.Ping(ctx); err != nil {
			out[tag] = err
		}
	}
	return out
}

// Close cierra ambos stores.
func (m *Manager) Close() error {
	var errs []error
	for _, s := range m.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
