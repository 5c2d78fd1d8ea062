package lifecycle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/metrics"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
	"github.com/dropDatabas3/connkeeper/internal/platforms"
)

// Refresher es la parte de refresh del registry.
type Refresher interface {
	Refresh(ctx context.Context, p repository.Platform, id platforms.Identity) (*platforms.Token, error)
}

// Orchestrator refresca tokens bajo un guard single-flight por (usuario, plataforma).
// La tabla de guards es del Orchestrator: dos instancias no comparten vuelos.
type Orchestrator struct {
	repo       repository.ConnectionRepository
	classifier *Classifier
	refresher  Refresher
	flights    singleflight.Group
	timeout    time.Duration
	defaultTTL time.Duration
	now        func() time.Time
	log        *zap.Logger
}

// NewOrchestrator crea el orquestador.
func NewOrchestrator(repo repository.ConnectionRepository, classifier *Classifier, refresher Refresher, timeout, defaultTTL time.Duration, now func() time.Time, log *zap.Logger) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		repo:       repo,
		classifier: classifier,
		refresher:  refresher,
		timeout:    timeout,
		defaultTTL: defaultTTL,
		now:        now,
		log:        log,
	}
}

// RefreshIfNeeded clasifica la conexión y refresca sólo si está vencida con refresh token.
func (o *Orchestrator) RefreshIfNeeded(ctx context.Context, user *repository.UserRecord, p repository.Platform) RefreshResult {
	conns, err := o.repo.GetConnections(ctx, user)
	if err != nil {
		res := RefreshResult{Platform: p}
		res.setErr(err)
		return res
	}
	conn := conns[p]
	hr := o.classifier.Classify(ctx, p, conn)
	return o.refreshClassified(ctx, user, p, conn, hr)
}

// refreshClassified decide a partir de una clasificación ya hecha. Lo usa el repair para no
// probar dos veces. Sólo HEALTHY es un no-op exitoso; el resto de los estados sin refresh
// posible falla con su ErrorKind.
func (o *Orchestrator) refreshClassified(ctx context.Context, user *repository.UserRecord, p repository.Platform, conn repository.PlatformConnection, hr HealthResult) RefreshResult {
	res := RefreshResult{Platform: p, StatusBefore: hr.Status}

	switch hr.Status {
	case StatusHealthy:
		res.Success = true
		return res
	case StatusNotConnected:
		res.setErr(fmt.Errorf("%w: %s", repository.ErrNotConnected, p))
		return res
	case StatusInvalidToken:
		res.setErr(fmt.Errorf("%w: %s: token rejected before expiry, reauthorization required", repository.ErrTokenInvalid, p))
		return res
	case StatusError:
		if hr.Err != nil {
			res.setErr(hr.Err)
		} else {
			res.setErr(fmt.Errorf("%w: %s", repository.ErrProbeFailed, p))
		}
		return res
	case StatusExpiredNoRefresh:
		res.setErr(fmt.Errorf("%w: %s: manual reconnection required", repository.ErrNoRefreshToken, p))
		return res
	}

	return o.refresh(ctx, user, p, conn.RefreshToken, res)
}

type refreshOutcome struct {
	expiry time.Time
}

func flightKey(user *repository.UserRecord, p repository.Platform) string {
	return user.Key() + "|" + string(p)
}

func (o *Orchestrator) refresh(ctx context.Context, user *repository.UserRecord, p repository.Platform, refreshToken string, res RefreshResult) RefreshResult {
	res.Refreshed = true

	// El vuelo no hereda la cancelación del caller que lo inició: otros callers pueden estar
	// esperando el mismo resultado. Lo acota el timeout propio.
	flightCtx := context.WithoutCancel(ctx)
	ch := o.flights.DoChan(flightKey(user, p), func() (any, error) {
		return o.doRefresh(flightCtx, user, p, refreshToken)
	})

	select {
	case r := <-ch:
		res.Shared = r.Shared
		if r.Shared {
			metrics.RefreshShared.WithLabelValues(string(p)).Inc()
		}
		if r.Err != nil {
			res.setErr(r.Err)
			return res
		}
		out := r.Val.(*refreshOutcome)
		exp := out.expiry
		res.Success = true
		res.TokenExpiry = &exp
		return res
	case <-ctx.Done():
		res.setErr(fmt.Errorf("%w: %s: %w", repository.ErrRefreshFailed, p, ctx.Err()))
		return res
	}
}

// doRefresh corre dentro del vuelo. Recupera panics: con DoChan un panic no recuperado
// tiraría el proceso.
func (o *Orchestrator) doRefresh(ctx context.Context, user *repository.UserRecord, p repository.Platform, refreshToken string) (out *refreshOutcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %s: panic: %v", repository.ErrRefreshFailed, p, rec)
			out = nil
		}
	}()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	log := o.log.With(logger.UserID(user.ID), logger.Store(string(user.Store)), logger.Platform(string(p)))

	tok, err := o.refresher.Refresh(ctx, p, platforms.Identity{UserID: user.ID, Platform: p, RefreshToken: refreshToken})
	if err != nil {
		metrics.RefreshTotal.WithLabelValues(string(p), "failed").Inc()
		log.Warn("token refresh failed", logger.Err(err))
		return nil, err
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = o.now().Add(o.defaultTTL)
	}
	expiry = expiry.UTC()

	upd := repository.ConnectionUpdate{AccessToken: &tok.AccessToken, TokenExpiry: &expiry}
	if tok.RefreshToken != "" {
		upd.RefreshToken = &tok.RefreshToken
	}
	if err := o.repo.UpdateConnection(ctx, user, p, upd); err != nil {
		// El proveedor ya emitió el token nuevo pero el store no lo confirmó: se reporta, no se oculta.
		metrics.RefreshTotal.WithLabelValues(string(p), "persist_failed").Inc()
		log.Error("refreshed token not persisted", logger.Secret("access_token", tok.AccessToken), logger.Err(err))
		return nil, err
	}

	metrics.RefreshTotal.WithLabelValues(string(p), "success").Inc()
	log.Info("token refreshed", logger.Bool("rotated", tok.RefreshToken != ""))
	return &refreshOutcome{expiry: expiry}, nil
}
