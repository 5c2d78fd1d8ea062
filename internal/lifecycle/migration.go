package lifecycle

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

// Scores de future-proofing.
const (
	migrationScoreNoRefresh = 25
	migrationScoreStale     = 50
	migrationScoreReady     = 100

	// Debajo de este promedio la migración se recomienda.
	migrationRecommendBelow = 75
)

// MigrationAnalyzer puntúa qué tan preparada está cada conexión, independiente de su salud actual.
// No llama a ningún proveedor.
type MigrationAnalyzer struct {
	repo       repository.ConnectionRepository
	staleAfter time.Duration
	now        func() time.Time
}

// NewMigrationAnalyzer crea el analizador.
func NewMigrationAnalyzer(repo repository.ConnectionRepository, staleAfter time.Duration, now func() time.Time) *MigrationAnalyzer {
	if now == nil {
		now = time.Now
	}
	return &MigrationAnalyzer{repo: repo, staleAfter: staleAfter, now: now}
}

// ScoreConnection puntúa una conexión: 25 sin refresh token, 50 si lastValidated es más viejo
// que staleAfter (o no existe), 100 si no.
func (m *MigrationAnalyzer) ScoreConnection(p repository.Platform, c repository.PlatformConnection) PlatformMigration {
	pm := PlatformMigration{
		Platform:        p,
		HasRefreshToken: c.HasRefreshToken(),
		LastValidated:   c.LastValidated,
	}
	pm.Stale = c.LastValidated == nil || m.now().Sub(*c.LastValidated) > m.staleAfter
	switch {
	case !pm.HasRefreshToken:
		pm.Score = migrationScoreNoRefresh
		pm.Reason = "no refresh token, reconnect with offline access"
	case pm.Stale:
		pm.Score = migrationScoreStale
		pm.Reason = "not validated recently"
	default:
		pm.Score = migrationScoreReady
		pm.Reason = "ready"
	}
	return pm
}

// Analyze arma el MigrationReport del usuario.
func (m *MigrationAnalyzer) Analyze(ctx context.Context, user *repository.UserRecord) (*MigrationReport, error) {
	conns, err := m.repo.GetConnections(ctx, user)
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{
		ReportID:         uuid.NewString(),
		UserID:           user.ID,
		Identifier:       user.Identifier,
		Store:            user.Store,
		AnalyzedAt:       m.now(),
		Platforms:        map[repository.Platform]PlatformMigration{},
		MigrationNeeded:  []repository.Platform{},
		StaleConnections: []repository.Platform{},
	}

	total := 0
	for _, p := range sortedKeys(conns) {
		c := conns[p]
		if !c.Connected() {
			continue
		}
		pm := m.ScoreConnection(p, c)
		report.Platforms[p] = pm
		report.ConnectedCount++
		total += pm.Score
		switch pm.Score {
		case migrationScoreNoRefresh:
			report.MigrationNeeded = append(report.MigrationNeeded, p)
		case migrationScoreStale:
			report.StaleConnections = append(report.StaleConnections, p)
		}
	}

	if report.ConnectedCount == 0 {
		report.Score = migrationScoreReady
		report.Status = MigrationCompleted
		return report, nil
	}

	mean := float64(total) / float64(report.ConnectedCount)
	report.Score = int(math.Round(mean))
	switch {
	case len(report.MigrationNeeded) > 0:
		report.Status = MigrationNeeded
	case mean < migrationRecommendBelow:
		report.Status = MigrationRecommended
	default:
		report.Status = MigrationCompleted
	}
	return report, nil
}
