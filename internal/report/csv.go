package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/backroom/internal/domain"
)

var rankingHeader = []string{
	"item_id",
	"description",
	"priority",
	"urgency_score",
	"on_hand_units",
	"coverage_days",
	"coverage_status",
	"reorder_point",
	"below_reorder_point",
	"expected_revenue",
	"profit_margin_pct",
	"urgency_reasons",
	"recommendations",
}

// listSeparator joins reasons and recommendations inside a single CSV cell.
const listSeparator = "; "

// WriteRankingCSV writes one row per ranked entry in rank order.
func WriteRankingCSV(w io.Writer, r *domain.RankingReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rankingHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, e := range r.Entries {
		row := []string{
			e.ItemID,
			e.Description,
			string(e.Priority),
			strconv.Itoa(e.UrgencyScore),
			strconv.Itoa(e.OnHandUnits),
			e.CoverageDays.String(),
			string(e.CoverageStatus),
			strconv.FormatInt(e.ReorderPoint, 10),
			strconv.FormatBool(e.BelowReorderPoint),
			Money(e.ExpectedRevenue),
			Percent(e.ProfitMarginPct),
			strings.Join(e.UrgencyReasons, listSeparator),
			strings.Join(e.Recommendations, listSeparator),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", e.ItemID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSkippedCSV writes the items a ranking could not analyze.
func WriteSkippedCSV(w io.Writer, r *domain.RankingReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"item_id", "kind", "reason"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range r.Skipped {
		if err := cw.Write([]string{s.ItemID, string(s.Kind), s.Reason}); err != nil {
			return fmt.Errorf("write csv row %s: %w", s.ItemID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteForecastCSV writes a forecast as date, expected_demand, lower_bound, upper_bound.
func WriteForecastCSV(w io.Writer, itemID string, f domain.Forecast) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"item_id", "date", "expected_demand", "lower_bound", "upper_bound"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range f.Points() {
		row := []string{
			itemID,
			p.Date.String(),
			decimal.NewFromFloat(p.ExpectedDemand).String(),
			decimal.NewFromFloat(p.LowerBound).String(),
			decimal.NewFromFloat(p.UpperBound).String(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", p.Date, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Money renders an amount with exactly two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Percent renders a percentage with one decimal.
func Percent(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}
