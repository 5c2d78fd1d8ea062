package lifecycle

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
)

// RepairEngine recorre las plataformas conectadas y refresca las que se pueden auto-reparar.
type RepairEngine struct {
	repo            repository.ConnectionRepository
	classifier      *Classifier
	orchestrator    *Orchestrator
	supports        func(repository.Platform) bool
	parallelism     int
	platformTimeout time.Duration
	now             func() time.Time
	log             *zap.Logger
}

// NewRepairEngine crea el repair engine. supports indica si el registry conoce la plataforma.
func NewRepairEngine(repo repository.ConnectionRepository, classifier *Classifier, orchestrator *Orchestrator, supports func(repository.Platform) bool, parallelism int, platformTimeout time.Duration, now func() time.Time, log *zap.Logger) *RepairEngine {
	if parallelism <= 0 {
		parallelism = 1
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RepairEngine{
		repo:            repo,
		classifier:      classifier,
		orchestrator:    orchestrator,
		supports:        supports,
		parallelism:     parallelism,
		platformTimeout: platformTimeout,
		now:             now,
		log:             log,
	}
}

// Repair repara las plataformas pedidas; sin lista, todas las conectadas.
func (e *RepairEngine) Repair(ctx context.Context, user *repository.UserRecord, targets []repository.Platform) (*RepairReport, error) {
	conns, err := e.repo.GetConnections(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		for p, c := range conns {
			if c.Connected() {
				targets = append(targets, p)
			}
		}
		repository.SortPlatforms(targets)
	}

	report := &RepairReport{
		ReportID:   uuid.NewString(),
		UserID:     user.ID,
		Identifier: user.Identifier,
		Store:      user.Store,
		StartedAt:  e.now(),
		Results:    make(map[repository.Platform]RepairResult, len(targets)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(e.parallelism)
	for _, p := range targets {
		p := p
		conn := conns[p]
		g.Go(func() error {
			r := e.repairOne(ctx, user, p, conn)
			mu.Lock()
			report.Results[p] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range report.Results {
		if r.Attempted {
			report.Attempted++
			if r.Success {
				report.Successful++
			}
		}
		if r.Action == ActionManualIntervention {
			report.ManualRequired++
		}
	}
	report.SuccessRate = successRate(report.Successful, report.Attempted)
	report.CompletedAt = e.now()

	e.log.Info("repair completed",
		logger.UserID(user.ID), logger.ReportID(report.ReportID),
		logger.Int("attempted", report.Attempted), logger.Int("successful", report.Successful))
	return report, nil
}

func successRate(successful, attempted int) float64 {
	if attempted == 0 {
		return 100
	}
	return math.Round(1000*float64(successful)/float64(attempted)) / 10
}

func (e *RepairEngine) repairOne(ctx context.Context, user *repository.UserRecord, p repository.Platform, conn repository.PlatformConnection) (res RepairResult) {
	res = RepairResult{Platform: p}
	defer func() {
		if rec := recover(); rec != nil {
			res = RepairResult{Platform: p, StatusBefore: StatusError, StatusAfter: StatusError, Action: ActionRetryLater}
			res.setErr(fmt.Errorf("repair panic on %s: %v", p, rec))
		}
	}()

	if !p.Valid() || !e.supports(p) {
		res.StatusBefore = statusForUnsupported(conn)
		res.StatusAfter = res.StatusBefore
		res.Action = ActionUnsupportedPlatform
		res.setErr(fmt.Errorf("%w: %q", repository.ErrPlatformUnsupported, p))
		return res
	}

	hr := classifyIsolated(ctx, e.classifier, p, conn, e.platformTimeout)
	res.StatusBefore, res.StatusAfter = hr.Status, hr.Status

	switch hr.Status {
	case StatusHealthy:
		res.Action = ActionNoActionNeeded
		res.Success = true
	case StatusExpiredRefreshable:
		res.Attempted = true
		rr := e.orchestrator.refreshClassified(ctx, user, p, conn, hr)
		if !rr.Success {
			res.Action = ActionRefreshFailed
			res.errorFields = rr.errorFields
			return res
		}
		res.Action = ActionTokenRefreshed
		res.Success = true
		res.StatusAfter = e.verify(ctx, user, p)
	case StatusExpiredNoRefresh, StatusNotConnected:
		res.Action = ActionManualIntervention
		res.Message = "reconnect the account"
	case StatusInvalidToken:
		res.Action = ActionManualIntervention
		res.Message = "token was revoked, reauthorize the account"
	default:
		res.Action = ActionRetryLater
		res.errorFields = hr.errorFields
	}
	return res
}

// verify relee la conexión recién refrescada y la vuelve a probar. Nada se reporta HEALTHY
// sin un probe en vivo.
func (e *RepairEngine) verify(ctx context.Context, user *repository.UserRecord, p repository.Platform) HealthStatus {
	conns, err := e.repo.GetConnections(ctx, user)
	if err != nil {
		e.log.Warn("post-refresh verification skipped", logger.UserID(user.ID), logger.Platform(string(p)), logger.Err(err))
		return StatusError
	}
	return classifyIsolated(ctx, e.classifier, p, conns[p], e.platformTimeout).Status
}

func statusForUnsupported(conn repository.PlatformConnection) HealthStatus {
	if !conn.Connected() {
		return StatusNotConnected
	}
	return StatusError
}
