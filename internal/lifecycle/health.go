package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/metrics"
	"github.com/dropDatabas3/connkeeper/internal/observability/logger"
)

// Aggregator corre el clasificador sobre todas las plataformas del registry en paralelo.
type Aggregator struct {
	repo            repository.ConnectionRepository
	classifier      *Classifier
	platforms       func() []repository.Platform
	parallelism     int
	platformTimeout time.Duration
	now             func() time.Time
	log             *zap.Logger
}

// NewAggregator crea el agregador. platforms retorna el set fijo a chequear.
func NewAggregator(repo repository.ConnectionRepository, classifier *Classifier, platforms func() []repository.Platform, parallelism int, platformTimeout time.Duration, now func() time.Time, log *zap.Logger) *Aggregator {
	if parallelism <= 0 {
		parallelism = 1
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		repo:            repo,
		classifier:      classifier,
		platforms:       platforms,
		parallelism:     parallelism,
		platformTimeout: platformTimeout,
		now:             now,
		log:             log,
	}
}

// CheckAll arma el HealthReport. Sólo falla si no se pudieron leer las conexiones; las fallas
// por plataforma quedan en el reporte.
func (a *Aggregator) CheckAll(ctx context.Context, user *repository.UserRecord) (*HealthReport, error) {
	start := a.now()
	conns, err := a.repo.GetConnections(ctx, user)
	if err != nil {
		return nil, err
	}

	plats := a.platforms()
	results := make(map[repository.Platform]HealthResult, len(plats))
	for _, p := range plats {
		results[p] = HealthResult{Platform: p, Status: StatusChecking}
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.parallelism)
	for _, p := range plats {
		p := p
		conn := conns[p]
		g.Go(func() error {
			r := classifyIsolated(ctx, a.classifier, p, conn, a.platformTimeout)
			mu.Lock()
			results[p] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := &HealthReport{
		ReportID:   uuid.NewString(),
		UserID:     user.ID,
		Identifier: user.Identifier,
		Store:      user.Store,
		CheckedAt:  start,
		Platforms:  results,
	}
	summarize(report)
	report.Partial = ctx.Err() != nil && anyInterrupted(results)
	report.Duration = a.now().Sub(start)

	metrics.HealthScore.Observe(float64(report.OverallScore))
	a.log.Debug("health check completed",
		logger.UserID(user.ID), logger.ReportID(report.ReportID),
		logger.Int("score", report.OverallScore), logger.Bool("partial", report.Partial))
	return report, nil
}

func anyInterrupted(results map[repository.Platform]HealthResult) bool {
	for _, r := range results {
		if r.Status != StatusError {
			continue
		}
		if errors.Is(r.Err, context.Canceled) || errors.Is(r.Err, context.DeadlineExceeded) {
			return true
		}
	}
	return false
}

// Score calcula 100*healthy/connected redondeado; 0 si no hay nada conectado.
func Score(healthy, connected int) int {
	if connected == 0 {
		return 0
	}
	return int(math.Round(100 * float64(healthy) / float64(connected)))
}

// summarize completa score, banda, action items y recomendaciones.
func summarize(r *HealthReport) {
	r.ActionItems = []ActionItem{}
	r.Recommendations = []Recommendation{}
	for _, p := range sortedKeys(r.Platforms) {
		res := r.Platforms[p]
		if !res.Status.Connected() {
			continue
		}
		r.ConnectedCount++
		if res.Status == StatusHealthy {
			r.HealthyCount++
			continue
		}
		r.ActionItems = append(r.ActionItems, actionItemFor(res))
		if rec, ok := recommendationFor(res); ok {
			r.Recommendations = append(r.Recommendations, rec)
		}
	}
	r.OverallScore = Score(r.HealthyCount, r.ConnectedCount)
	r.OverallStatus = BandFor(r.OverallScore)
	sort.SliceStable(r.ActionItems, func(i, j int) bool {
		return r.ActionItems[i].Priority.weight() > r.ActionItems[j].Priority.weight()
	})
}

func actionItemFor(res HealthResult) ActionItem {
	item := ActionItem{Platform: res.Platform, Status: res.Status, Priority: PriorityMedium}
	switch res.Status {
	case StatusExpiredNoRefresh:
		item.Priority = PriorityHigh
		item.Action = "reconnect account"
	case StatusExpiredRefreshable:
		if !res.CanRefresh {
			item.Priority = PriorityHigh
			item.Action = "reconnect account"
			break
		}
		item.Action = "refresh token"
	case StatusInvalidToken:
		item.Action = "reauthorize account"
	default:
		item.Action = "retry health check"
	}
	return item
}

func recommendationFor(res HealthResult) (Recommendation, bool) {
	p := res.Platform
	switch res.Status {
	case StatusExpiredRefreshable:
		if !res.CanRefresh {
			return Recommendation{Type: RecommendReconnect, Platform: p,
				Message: fmt.Sprintf("%s token expired and the provider does not support automatic refresh, reconnect the account", p)}, true
		}
		return Recommendation{Type: RecommendTokenRefresh, Platform: p,
			Message: fmt.Sprintf("%s token expired and can be refreshed automatically", p)}, true
	case StatusExpiredNoRefresh:
		return Recommendation{Type: RecommendReconnect, Platform: p,
			Message: fmt.Sprintf("%s token expired without refresh capability, reconnect the account", p)}, true
	case StatusInvalidToken:
		return Recommendation{Type: RecommendReauthorization, Platform: p,
			Message: fmt.Sprintf("%s rejected a non-expired token, access was likely revoked", p)}, true
	case StatusError:
		return Recommendation{Type: RecommendRetryLater, Platform: p,
			Message: fmt.Sprintf("%s could not be checked, try again later", p)}, true
	}
	return Recommendation{}, false
}

func sortedKeys[V any](m map[repository.Platform]V) []repository.Platform {
	out := make([]repository.Platform, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	repository.SortPlatforms(out)
	return out
}
