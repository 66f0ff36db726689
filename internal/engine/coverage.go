package engine

import (
	"github.com/andresuchdata/backroom/internal/domain"
)

// CoverageAnalyzer decides how many forecast days on-hand stock covers.
type CoverageAnalyzer struct {
	CriticalDays int
	LowDays      int
}

// NewCoverageAnalyzer builds an analyzer from the policy thresholds.
func NewCoverageAnalyzer(p Policy) CoverageAnalyzer {
	return CoverageAnalyzer{
		CriticalDays: p.CriticalCoverageDays,
		LowDays:      p.LowCoverageDays,
	}
}

// Analyze walks the depletion curve of f until cumulative demand reaches onHand.
func (a CoverageAnalyzer) Analyze(f domain.Forecast, onHand int) (domain.CoverageResult, error) {
	if f.IsEmpty() {
		return domain.CoverageResult{}, domain.InvalidInputf("coverage: forecast is empty")
	}
	if onHand < 0 {
		return domain.CoverageResult{}, domain.InvalidInputf("coverage: on-hand units %d is negative", onHand)
	}

	curve := NewDepletionCurve(f, onHand)

	if i, ok := curve.ExhaustionIndex(); ok {
		date := f.At(i).Date
		return domain.CoverageResult{
			Status:         a.classify(i),
			CoverageDays:   domain.ExactCoverage(i),
			ExhaustionDate: &date,
		}, nil
	}

	remaining := float64(onHand) - curve.TotalDemand()
	return domain.CoverageResult{
		Status:                     domain.CoverageSufficient,
		CoverageDays:               domain.BeyondHorizon(f.Len()),
		RemainingUnitsAtHorizonEnd: &remaining,
	}, nil
}

func (a CoverageAnalyzer) classify(days int) domain.CoverageStatus {
	switch {
	case days <= a.CriticalDays:
		return domain.CoverageCritical
	case days <= a.LowDays:
		return domain.CoverageLow
	default:
		return domain.CoverageAdequate
	}
}
