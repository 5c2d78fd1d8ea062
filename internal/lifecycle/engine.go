package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/cache"
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
	"github.com/dropDatabas3/connkeeper/internal/platforms"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

// Config son los parámetros del engine.
type Config struct {
	Parallelism     int
	ProbeTimeout    time.Duration
	RefreshTimeout  time.Duration
	PlatformTimeout time.Duration
	ExpiryBuffer    time.Duration
	DefaultTokenTTL time.Duration
	StaleAfter      time.Duration
	SnapshotTTL     time.Duration
}

// DefaultConfig retorna los valores por defecto.
func DefaultConfig() Config {
	return Config{
		Parallelism:     4,
		ProbeTimeout:    5 * time.Second,
		RefreshTimeout:  15 * time.Second,
		PlatformTimeout: 10 * time.Second,
		ExpiryBuffer:    5 * time.Minute,
		DefaultTokenTTL: time.Hour,
		StaleAfter:      30 * 24 * time.Hour,
		SnapshotTTL:     7 * 24 * time.Hour,
	}
}

// Registry es lo que el engine necesita del registry de plataformas.
type Registry interface {
	Prober
	Refresher
	Platforms() []repository.Platform
	Supports(p repository.Platform) bool
}

var _ Registry = (*platforms.Registry)(nil)

// Syncer es implementado por repositorios que soportan copia explícita entre stores.
type Syncer interface {
	SyncUser(ctx context.Context, identifier string, from, to repository.StoreTag) (*store.SyncResult, error)
}

// Engine es la fachada con todas las operaciones expuestas a callers (CLI, HTTP, schedulers).
type Engine struct {
	repo         repository.ConnectionRepository
	registry     Registry
	classifier   *Classifier
	orchestrator *Orchestrator
	aggregator   *Aggregator
	repair       *RepairEngine
	migration    *MigrationAnalyzer
	snapshots    cache.Client
	cfg          Config
	now          func() time.Time
	log          *zap.Logger
}

// Option configura el Engine.
type Option func(*Engine)

// WithClock reemplaza el reloj.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger setea el logger base; cada componente usa un hijo con nombre.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithSnapshots habilita HealthTrend guardando el último reporte por usuario.
func WithSnapshots(c cache.Client) Option {
	return func(e *Engine) { e.snapshots = c }
}

// New arma el engine y sus componentes.
func New(repo repository.ConnectionRepository, registry Registry, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		repo:     repo,
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	now := func() time.Time { return e.now().UTC() }

	e.classifier = NewClassifier(registry, cfg.ExpiryBuffer, cfg.ProbeTimeout, now, e.log.Named("classifier"))
	e.orchestrator = NewOrchestrator(repo, e.classifier, registry, cfg.RefreshTimeout, cfg.DefaultTokenTTL, now, e.log.Named("refresh"))
	e.aggregator = NewAggregator(repo, e.classifier, registry.Platforms, cfg.Parallelism, cfg.PlatformTimeout, now, e.log.Named("health"))
	e.repair = NewRepairEngine(repo, e.classifier, e.orchestrator, registry.Supports, cfg.Parallelism, cfg.PlatformTimeout, now, e.log.Named("repair"))
	e.migration = NewMigrationAnalyzer(repo, cfg.StaleAfter, now)
	return e
}

// ResolveUser busca al usuario en los stores.
func (e *Engine) ResolveUser(ctx context.Context, identifier string, preferred repository.StoreTag) (*repository.UserRecord, error) {
	return e.repo.ResolveUser(ctx, identifier, preferred)
}

// GetConnections lee las conexiones canónicas del usuario.
func (e *Engine) GetConnections(ctx context.Context, user *repository.UserRecord) (map[repository.Platform]repository.PlatformConnection, error) {
	return e.repo.GetConnections(ctx, user)
}

// CheckHealth clasifica una plataforma. El error sólo se usa cuando no se pudieron leer las conexiones.
func (e *Engine) CheckHealth(ctx context.Context, user *repository.UserRecord, p repository.Platform) (HealthResult, error) {
	if !p.Valid() {
		r := HealthResult{Platform: p, Status: StatusError, CheckedAt: e.now().UTC()}
		r.setErr(fmt.Errorf("%w: %q", repository.ErrPlatformUnsupported, p))
		return r, nil
	}
	conns, err := e.repo.GetConnections(ctx, user)
	if err != nil {
		return HealthResult{}, err
	}
	return classifyIsolated(ctx, e.classifier, p, conns[p], e.cfg.PlatformTimeout), nil
}

// CheckAllHealth chequea todas las plataformas del registry.
func (e *Engine) CheckAllHealth(ctx context.Context, user *repository.UserRecord) (*HealthReport, error) {
	return e.aggregator.CheckAll(ctx, user)
}

// CompareHealth diffea dos reportes.
func (e *Engine) CompareHealth(prev, curr *HealthReport) HealthComparison {
	return Compare(prev, curr)
}

// RefreshIfNeeded refresca el token si está vencido y se puede.
func (e *Engine) RefreshIfNeeded(ctx context.Context, user *repository.UserRecord, p repository.Platform) RefreshResult {
	return e.orchestrator.RefreshIfNeeded(ctx, user, p)
}

// RepairConnections repara las plataformas dadas (o todas las conectadas).
func (e *Engine) RepairConnections(ctx context.Context, user *repository.UserRecord, targets ...repository.Platform) (*RepairReport, error) {
	return e.repair.Repair(ctx, user, targets)
}

// MigrationStatus calcula el reporte de future-proofing.
func (e *Engine) MigrationStatus(ctx context.Context, user *repository.UserRecord) (*MigrationReport, error) {
	return e.migration.Analyze(ctx, user)
}

// UpdateConnection escribe campos parciales de una conexión.
func (e *Engine) UpdateConnection(ctx context.Context, user *repository.UserRecord, p repository.Platform, upd repository.ConnectionUpdate) error {
	return e.repo.UpdateConnection(ctx, user, p, upd)
}

// RemoveConnection desconecta una plataforma.
func (e *Engine) RemoveConnection(ctx context.Context, user *repository.UserRecord, p repository.Platform) error {
	return e.repo.RemoveConnection(ctx, user, p)
}

// SyncUser copia un usuario entre stores si el repositorio lo soporta.
func (e *Engine) SyncUser(ctx context.Context, identifier string, from, to repository.StoreTag) (*store.SyncResult, error) {
	s, ok := e.repo.(Syncer)
	if !ok {
		return nil, fmt.Errorf("%w: repository does not support sync", repository.ErrInvalidInput)
	}
	return s.SyncUser(ctx, identifier, from, to)
}

func snapshotKey(user *repository.UserRecord) string {
	return "health:last:" + user.Key()
}

// HealthTrend corre CheckAllHealth, lo compara con el snapshot anterior y guarda el nuevo.
// Sin snapshot previo la comparación es contra un reporte vacío.
func (e *Engine) HealthTrend(ctx context.Context, user *repository.UserRecord) (*HealthReport, HealthComparison, error) {
	if e.snapshots == nil {
		return nil, HealthComparison{}, fmt.Errorf("%w: snapshots not configured", repository.ErrInvalidInput)
	}
	curr, err := e.CheckAllHealth(ctx, user)
	if err != nil {
		return nil, HealthComparison{}, err
	}

	var prev *HealthReport
	raw, err := e.snapshots.Get(ctx, snapshotKey(user))
	switch {
	case err == nil:
		var r HealthReport
		if jerr := json.Unmarshal([]byte(raw), &r); jerr != nil {
			e.log.Warn("discarding unreadable health snapshot", logger.UserID(user.ID), logger.Err(jerr))
			_ = e.snapshots.Delete(ctx, snapshotKey(user))
		} else {
			prev = &r
		}
	case !cache.IsNotFound(err):
		e.log.Warn("health snapshot not loaded", logger.UserID(user.ID), logger.Err(err))
	}

	cmp := Compare(prev, curr)

	if curr.Partial {
		// Un reporte cortado por deadline no reemplaza al anterior.
		return curr, cmp, nil
	}
	if b, err := json.Marshal(curr); err == nil {
		if err := e.snapshots.Set(ctx, snapshotKey(user), string(b), e.cfg.SnapshotTTL); err != nil {
			e.log.Warn("health snapshot not saved", logger.UserID(user.ID), logger.Err(err))
		}
	}
	return curr, cmp, nil
}
