package lifecycle

import (
	"time"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

// HealthStatus es la clasificación de una conexión. Se deriva en cada check, nunca se persiste.
type HealthStatus string

const (
	StatusHealthy            HealthStatus = "HEALTHY"
	StatusExpiredRefreshable HealthStatus = "EXPIRED_REFRESHABLE"
	StatusExpiredNoRefresh   HealthStatus = "EXPIRED_NO_REFRESH"
	StatusInvalidToken       HealthStatus = "INVALID_TOKEN"
	StatusNotConnected       HealthStatus = "NOT_CONNECTED"
	StatusError              HealthStatus = "ERROR"

	// StatusChecking es transitorio: sólo existe mientras el probe está en vuelo.
	StatusChecking HealthStatus = "CHECKING"
)

// Connected indica si la conexión tiene access token.
func (s HealthStatus) Connected() bool {
	return s != StatusNotConnected && s != ""
}

// statusRank ordena estados de peor a mejor para comparar reportes.
var statusRank = map[HealthStatus]int{
	StatusNotConnected:       0,
	StatusExpiredNoRefresh:   1,
	StatusInvalidToken:       2,
	StatusError:              3,
	StatusChecking:           3,
	StatusExpiredRefreshable: 4,
	StatusHealthy:            5,
}

// errorFields es el bloque de error común a todos los resultados por plataforma.
type errorFields struct {
	Err       error                `json:"-"`
	Error     string               `json:"error,omitempty"`
	ErrorKind repository.ErrorKind `json:"errorKind,omitempty"`
}

func (e *errorFields) setErr(err error) {
	if err == nil {
		return
	}
	e.Err = err
	e.Error = err.Error()
	e.ErrorKind = repository.KindOf(err)
}

// HealthResult es la clasificación de una plataforma.
type HealthResult struct {
	Platform        repository.Platform `json:"platform"`
	Status          HealthStatus        `json:"status"`
	NeedsRefresh    bool                `json:"needsRefresh"`
	CanRefresh      bool                `json:"canRefresh"`
	IsExpired       bool                `json:"isExpired"`
	HasRefreshToken bool                `json:"hasRefreshToken"`
	TokenExpiry     *time.Time          `json:"tokenExpiry,omitempty"`
	LastValidated   *time.Time          `json:"lastValidated,omitempty"`
	Reason          string              `json:"reason,omitempty"`
	CheckedAt       time.Time           `json:"checkedAt"`
	errorFields
}

// Band es la banda cualitativa del score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandPoor      Band = "poor"
	BandCritical  Band = "critical"
)

// BandFor mapea un score 0-100 a su banda.
func BandFor(score int) Band {
	switch {
	case score >= 90:
		return BandExcellent
	case score >= 70:
		return BandGood
	case score >= 50:
		return BandFair
	case score >= 30:
		return BandPoor
	default:
		return BandCritical
	}
}

// Priority de un action item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

func (p Priority) weight() int {
	if p == PriorityHigh {
		return 2
	}
	return 1
}

// ActionItem es una tarea sugerida para una plataforma conectada pero no sana.
type ActionItem struct {
	Platform repository.Platform `json:"platform"`
	Status   HealthStatus        `json:"status"`
	Priority Priority            `json:"priority"`
	Action   string              `json:"action"`
}

// RecommendationType clasifica recomendaciones.
type RecommendationType string

const (
	RecommendTokenRefresh    RecommendationType = "token_refresh_available"
	RecommendReconnect       RecommendationType = "reconnect_required"
	RecommendReauthorization RecommendationType = "reauthorization_required"
	RecommendRetryLater      RecommendationType = "retry_later"
)

// Recommendation es una sugerencia legible para el usuario final.
type Recommendation struct {
	Type     RecommendationType  `json:"type"`
	Platform repository.Platform `json:"platform"`
	Message  string              `json:"message"`
}

// HealthReport es el resultado de CheckAllHealth.
type HealthReport struct {
	ReportID        string                                `json:"reportId"`
	UserID          string                                `json:"userId"`
	Identifier      string                                `json:"identifier"`
	Store           repository.StoreTag                   `json:"store"`
	CheckedAt       time.Time                             `json:"checkedAt"`
	Platforms       map[repository.Platform]HealthResult `json:"platforms"`
	ConnectedCount  int                                   `json:"connectedCount"`
	HealthyCount    int                                   `json:"healthyCount"`
	OverallScore    int                                   `json:"overallScore"`
	OverallStatus   Band                                  `json:"overallStatus"`
	ActionItems     []ActionItem                          `json:"actionItems"`
	Recommendations []Recommendation                      `json:"recommendations"`
	// Partial indica que el deadline del caller cortó algún probe.
	Partial  bool          `json:"partial"`
	Duration time.Duration `json:"durationNs"`
}

// Trend de una comparación.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDegrading Trend = "degrading"
	TrendStable    Trend = "stable"
)

// StatusChange es un cambio de estado de una plataforma entre dos reportes.
type StatusChange struct {
	Platform repository.Platform `json:"platform"`
	From     HealthStatus        `json:"from"`
	To       HealthStatus        `json:"to"`
}

// HealthComparison diffea dos reportes.
type HealthComparison struct {
	PreviousReportID string         `json:"previousReportId,omitempty"`
	CurrentReportID  string         `json:"currentReportId"`
	PreviousScore    int            `json:"previousScore"`
	CurrentScore     int            `json:"currentScore"`
	ScoreDelta       int            `json:"scoreDelta"`
	Improvements     []StatusChange `json:"improvements"`
	Degradations     []StatusChange `json:"degradations"`
	Trend            Trend          `json:"trend"`
}

// RefreshResult es el resultado de RefreshIfNeeded.
type RefreshResult struct {
	Platform     repository.Platform `json:"platform"`
	Refreshed    bool                `json:"refreshed"`
	Success      bool                `json:"success"`
	Shared       bool                `json:"shared,omitempty"`
	StatusBefore HealthStatus        `json:"statusBefore,omitempty"`
	TokenExpiry  *time.Time          `json:"tokenExpiry,omitempty"`
	errorFields
}

// RepairAction es lo que hizo (o no) el repair sobre una plataforma.
type RepairAction string

const (
	ActionNoActionNeeded      RepairAction = "no_action_needed"
	ActionTokenRefreshed      RepairAction = "token_refreshed"
	ActionRefreshFailed       RepairAction = "refresh_failed"
	ActionManualIntervention  RepairAction = "manual_intervention_required"
	ActionRetryLater          RepairAction = "retry_later"
	ActionUnsupportedPlatform RepairAction = "unsupported_platform"
)

// RepairResult es el resultado del repair de una plataforma.
type RepairResult struct {
	Platform     repository.Platform `json:"platform"`
	StatusBefore HealthStatus        `json:"statusBefore"`
	StatusAfter  HealthStatus        `json:"statusAfter"`
	Action       RepairAction        `json:"action"`
	Attempted    bool                `json:"attempted"`
	Success      bool                `json:"success"`
	Message      string              `json:"message,omitempty"`
	errorFields
}

// RepairReport agrega los resultados de RepairConnections.
type RepairReport struct {
	ReportID       string                                `json:"reportId"`
	UserID         string                                `json:"userId"`
	Identifier     string                                `json:"identifier"`
	Store          repository.StoreTag                   `json:"store"`
	StartedAt      time.Time                             `json:"startedAt"`
	CompletedAt    time.Time                             `json:"completedAt"`
	Results        map[repository.Platform]RepairResult `json:"results"`
	Attempted      int                                   `json:"attempted"`
	Successful     int                                   `json:"successful"`
	ManualRequired int                                   `json:"manualRequired"`
	// SuccessRate es successful/attempted en porcentaje; 100 si no se intentó nada.
	SuccessRate float64 `json:"successRate"`
}

// MigrationStatus es el estado global de future-proofing.
type MigrationStatus string

const (
	MigrationNeeded      MigrationStatus = "needed"
	MigrationRecommended MigrationStatus = "recommended"
	MigrationCompleted   MigrationStatus = "completed"
)

// PlatformMigration es el score de una conexión.
type PlatformMigration struct {
	Platform        repository.Platform `json:"platform"`
	Score           int                 `json:"score"`
	HasRefreshToken bool                `json:"hasRefreshToken"`
	LastValidated   *time.Time          `json:"lastValidated,omitempty"`
	Stale           bool                `json:"stale"`
	Reason          string              `json:"reason"`
}

// MigrationReport es el resultado de MigrationStatus.
type MigrationReport struct {
	ReportID         string                                     `json:"reportId"`
	UserID           string                                     `json:"userId"`
	Identifier       string                                     `json:"identifier"`
	Store            repository.StoreTag                        `json:"store"`
	AnalyzedAt       time.Time                                  `json:"analyzedAt"`
	Platforms        map[repository.Platform]PlatformMigration `json:"platforms"`
	ConnectedCount   int                                        `json:"connectedCount"`
	Score            int                                        `json:"score"`
	Status           MigrationStatus                            `json:"status"`
	MigrationNeeded  []repository.Platform                      `json:"migrationNeeded"`
	StaleConnections []repository.Platform                      `json:"staleConnections"`
}
