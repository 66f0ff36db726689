package ranker

import (
	"fmt"

	"github.com/andresuchdata/backroom/internal/domain"
)

// Score computes the urgency score and its reasons for one insight.
// lowMarginPct is the margin below which the penalty applies.
func (w Weights) Score(in *domain.InventoryInsight, lowMarginPct float64) (int, []string) {
	score := 0
	reasons := make([]string, 0, 3)

	switch in.Coverage.Status {
	case domain.CoverageCritical:
		score += w.Critical
		reasons = append(reasons, fmt.Sprintf("CRITICAL: %s days coverage", in.Coverage.CoverageDays))
	case domain.CoverageLow:
		score += w.Low
		reasons = append(reasons, fmt.Sprintf("LOW: %s days coverage", in.Coverage.CoverageDays))
	}

	if in.BelowReorderPoint() {
		score += w.BelowReorderPoint
		reasons = append(reasons, fmt.Sprintf("Below ROP: %d ≤ %d", in.Snapshot.OnHandUnits, in.Reorder.RoundedReorderPoint()))
	}

	if in.Financial.ProfitMarginPct < lowMarginPct {
		score -= w.LowMarginPenalty
		reasons = append(reasons, fmt.Sprintf("Low margin: %.1f%%", in.Financial.ProfitMarginPct))
	}

	return score, reasons
}

// Bucket maps a score to its reporting priority.
func (w Weights) Bucket(score int) domain.Priority {
	switch {
	case score >= w.HighThreshold:
		return domain.PriorityHigh
	case score >= w.MediumCutoff():
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// Entry builds the ranking row for an insight.
func (w Weights) Entry(in *domain.InventoryInsight, lowMarginPct float64) domain.ReorderPriorityEntry {
	score, reasons := w.Score(in, lowMarginPct)
	return domain.ReorderPriorityEntry{
		ItemID:            in.Profile.ItemID,
		Description:       in.Profile.Description,
		UrgencyScore:      score,
		UrgencyReasons:    reasons,
		Priority:          w.Bucket(score),
		CoverageDays:      in.Coverage.CoverageDays,
		CoverageStatus:    in.Coverage.Status,
		OnHandUnits:       in.Snapshot.OnHandUnits,
		ReorderPoint:      in.Reorder.RoundedReorderPoint(),
		BelowReorderPoint: in.BelowReorderPoint(),
		ExpectedRevenue:   in.Financial.ExpectedRevenue,
		ProfitMarginPct:   in.Financial.ProfitMarginPct,
		Recommendations:   in.Recommendations,
	}
}
