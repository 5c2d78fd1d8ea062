package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/metrics"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
	"github.com/dropDatabas3/connkeeper/internal/platforms"
)

// Prober es la parte de probe del registry.
type Prober interface {
	Probe(ctx context.Context, p repository.Platform, accessToken string) (platforms.ProbeResult, error)
}

// refreshCapability la implementan registries que saben si un proveedor soporta refresh.
type refreshCapability interface {
	CanRefresh(p repository.Platform) bool
}

// Classifier calcula el HealthStatus de una conexión a partir de sus campos y un probe en vivo.
type Classifier struct {
	probes       Prober
	buffer       time.Duration
	probeTimeout time.Duration
	now          func() time.Time
	log          *zap.Logger
}

// NewClassifier crea un clasificador. buffer es el margen antes del vencimiento nominal a partir
// del cual el token se considera vencido.
func NewClassifier(probes Prober, buffer, probeTimeout time.Duration, now func() time.Time, log *zap.Logger) *Classifier {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{probes: probes, buffer: buffer, probeTimeout: probeTimeout, now: now, log: log}
}

// IsExpired indica si el token está vencido o dentro del buffer. Sin vencimiento = vencido.
func (c *Classifier) IsExpired(conn repository.PlatformConnection) bool {
	if conn.TokenExpiry == nil {
		return true
	}
	return !c.now().Before(conn.TokenExpiry.Add(-c.buffer))
}

// providerRefreshes es true si el prober no informa capacidades.
func (c *Classifier) providerRefreshes(p repository.Platform) bool {
	if rc, ok := c.probes.(refreshCapability); ok {
		return rc.CanRefresh(p)
	}
	return true
}

// Classify ejecuta la máquina de estados. Nunca retorna error: las fallas quedan en el resultado.
func (c *Classifier) Classify(ctx context.Context, p repository.Platform, conn repository.PlatformConnection) HealthResult {
	res := HealthResult{
		Platform:        p,
		HasRefreshToken: conn.HasRefreshToken(),
		TokenExpiry:     conn.TokenExpiry,
		LastValidated:   conn.LastValidated,
		CheckedAt:       c.now(),
	}
	defer func() {
		metrics.ClassificationsTotal.WithLabelValues(string(p), string(res.Status)).Inc()
	}()

	if !conn.Connected() {
		res.Status = StatusNotConnected
		return res
	}
	res.IsExpired = c.IsExpired(conn)

	pctx := ctx
	if c.probeTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, c.probeTimeout)
		defer cancel()
	}

	probe, err := c.probes.Probe(pctx, p, conn.AccessToken)
	if err != nil {
		res.Status = StatusError
		res.setErr(err)
		c.log.Debug("probe failed", logger.Platform(string(p)), logger.Err(err))
		return res
	}

	switch {
	case probe.Valid:
		res.Status = StatusHealthy
	case res.IsExpired && res.HasRefreshToken:
		res.Status = StatusExpiredRefreshable
	case res.IsExpired:
		res.Status = StatusExpiredNoRefresh
	default:
		res.Status = StatusInvalidToken
	}
	res.Reason = probe.Reason
	res.NeedsRefresh = res.Status == StatusExpiredRefreshable || res.Status == StatusExpiredNoRefresh
	res.CanRefresh = res.HasRefreshToken && c.providerRefreshes(p)
	if res.Status != StatusHealthy {
		c.log.Debug("connection not healthy", logger.Platform(string(p)), logger.Status(string(res.Status)), logger.String("reason", res.Reason))
	}
	return res
}
