package lifecycle

import (
	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
)

// Compare diffea el estado de cada plataforma entre dos reportes. prev puede ser nil
// (primer snapshot): todo lo conectado cuenta como mejora.
func Compare(prev, curr *HealthReport) HealthComparison {
	cmp := HealthComparison{
		CurrentReportID: curr.ReportID,
		CurrentScore:    curr.OverallScore,
		Improvements:    []StatusChange{},
		Degradations:    []StatusChange{},
	}
	var prevPlatforms map[repository.Platform]HealthResult
	if prev != nil {
		cmp.PreviousReportID = prev.ReportID
		cmp.PreviousScore = prev.OverallScore
		prevPlatforms = prev.Platforms
	}
	cmp.ScoreDelta = cmp.CurrentScore - cmp.PreviousScore

	union := map[repository.Platform]struct{}{}
	for p := range prevPlatforms {
		union[p] = struct{}{}
	}
	for p := range curr.Platforms {
		union[p] = struct{}{}
	}

	for _, p := range sortedKeys(union) {
		from := statusOrNotConnected(prevPlatforms, p)
		to := statusOrNotConnected(curr.Platforms, p)
		if from == to {
			continue
		}
		change := StatusChange{Platform: p, From: from, To: to}
		switch {
		case statusRank[to] > statusRank[from]:
			cmp.Improvements = append(cmp.Improvements, change)
		case statusRank[to] < statusRank[from]:
			cmp.Degradations = append(cmp.Degradations, change)
		}
	}

	switch {
	case len(cmp.Improvements) > len(cmp.Degradations):
		cmp.Trend = TrendImproving
	case len(cmp.Improvements) < len(cmp.Degradations):
		cmp.Trend = TrendDegrading
	case cmp.ScoreDelta > 0:
		cmp.Trend = TrendImproving
	case cmp.ScoreDelta < 0:
		cmp.Trend = TrendDegrading
	default:
		cmp.Trend = TrendStable
	}
	return cmp
}

func statusOrNotConnected(m map[repository.Platform]HealthResult, p repository.Platform) HealthStatus {
	if r, ok := m[p]; ok && r.Status != "" {
		return r.Status
	}
	return StatusNotConnected
}
