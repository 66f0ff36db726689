package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// CoverageDays is either a concrete day count or "beyond the forecast horizon".
// The zero value is an exact coverage of 0 days.
type CoverageDays struct {
	days    int
	beyond  bool
	horizon int
}

// ExactCoverage is stock exhausted on day index days of the forecast.
func ExactCoverage(days int) CoverageDays {
	return CoverageDays{days: days}
}

// BeyondHorizon is stock outlasting a forecast of horizon days.
func BeyondHorizon(horizon int) CoverageDays {
	return CoverageDays{beyond: true, horizon: horizon}
}

// Days returns the concrete day count; ok is false when coverage is beyond the horizon.
func (c CoverageDays) Days() (days int, ok bool) {
	if c.beyond {
		return 0, false
	}
	return c.days, true
}

// IsBeyondHorizon reports whether stock outlasts the forecast.
func (c CoverageDays) IsBeyondHorizon() bool { return c.beyond }

// Horizon is the forecast length the sentinel refers to; 0 for exact coverage.
func (c CoverageDays) Horizon() int { return c.horizon }

// String renders "12" or ">30".
func (c CoverageDays) String() string {
	if c.beyond {
		return fmt.Sprintf(">%d", c.horizon)
	}
	return fmt.Sprintf("%d", c.days)
}

// Less orders coverage so that any exact count sorts before beyond-horizon values.
func (c CoverageDays) Less(other CoverageDays) bool {
	switch {
	case c.beyond && other.beyond:
		return c.horizon < other.horizon
	case c.beyond:
		return false
	case other.beyond:
		return true
	default:
		return c.days < other.days
	}
}

type coverageDaysJSON struct {
	Kind        string `json:"kind"`
	Days        *int   `json:"days,omitempty"`
	HorizonDays *int   `json:"horizon_days,omitempty"`
}

const (
	coverageKindExact  = "exact"
	coverageKindBeyond = "beyond_horizon"
)

func (c CoverageDays) MarshalJSON() ([]byte, error) {
	if c.beyond {
		h := c.horizon
		return json.Marshal(coverageDaysJSON{Kind: coverageKindBeyond, HorizonDays: &h})
	}
	d := c.days
	return json.Marshal(coverageDaysJSON{Kind: coverageKindExact, Days: &d})
}

func (c *CoverageDays) UnmarshalJSON(b []byte) error {
	var raw coverageDaysJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case coverageKindBeyond:
		if raw.HorizonDays == nil {
			return fmt.Errorf("coverage_days: %s without horizon_days", raw.Kind)
		}
		*c = BeyondHorizon(*raw.HorizonDays)
	case coverageKindExact:
		if raw.Days == nil {
			return fmt.Errorf("coverage_days: %s without days", raw.Kind)
		}
		*c = ExactCoverage(*raw.Days)
	default:
		return fmt.Errorf("coverage_days: unknown kind %q", raw.Kind)
	}
	return nil
}

// CoverageResult describes how long on-hand stock lasts against a forecast.
type CoverageResult struct {
	Status       CoverageStatus `json:"status"`
	CoverageDays CoverageDays   `json:"coverage_days"`
	// ExhaustionDate is set only when CoverageDays is exact.
	ExhaustionDate *Date `json:"exhaustion_date,omitempty"`
	// RemainingUnitsAtHorizonEnd is set only for CoverageSufficient.
	RemainingUnitsAtHorizonEnd *float64 `json:"remaining_units_at_horizon_end,omitempty"`
}

// ReorderPolicy is the lead-time demand, safety stock and reorder point for an item.
// Values keep full precision; use the Rounded helpers for display.
type ReorderPolicy struct {
	LeadTimeDays   int      `json:"lead_time_days"`
	LeadTimeDemand float64  `json:"lead_time_demand"`
	SafetyStock    float64  `json:"safety_stock"`
	ReorderPoint   float64  `json:"reorder_point"`
	SafetyFactor   float64  `json:"safety_factor"`
	Extrapolated   bool     `json:"extrapolated"`
	Warnings       []string `json:"warnings,omitempty"`
}

// RoundedReorderPoint is the reorder point in whole units.
func (p ReorderPolicy) RoundedReorderPoint() int64 { return int64(math.Round(p.ReorderPoint)) }

// RoundedSafetyStock is the safety stock in whole units.
func (p ReorderPolicy) RoundedSafetyStock() int64 { return int64(math.Round(p.SafetyStock)) }

// RoundedLeadTimeDemand is the lead-time demand in whole units.
func (p ReorderPolicy) RoundedLeadTimeDemand() int64 { return int64(math.Round(p.LeadTimeDemand)) }

// FinancialProjection is the revenue and holding-cost outlook over the forecast horizon.
type FinancialProjection struct {
	TotalForecastDemand float64 `json:"total_forecast_demand"`
	ExpectedSalesUnits  float64 `json:"expected_sales_units"`
	ExpectedRevenue     float64 `json:"expected_revenue"`
	AverageOnHand       float64 `json:"average_on_hand"`
	HoldingCost         float64 `json:"holding_cost"`
	GrossProfit         float64 `json:"gross_profit"`
	ProfitMarginPct     float64 `json:"profit_margin_pct"`
}

// InventoryInsight is the composed analysis for one item.
type InventoryInsight struct {
	Profile             ItemProfile         `json:"profile"`
	Snapshot            InventorySnapshot   `json:"snapshot"`
	Coverage            CoverageResult      `json:"coverage"`
	Reorder             ReorderPolicy       `json:"reorder"`
	Financial           FinancialProjection `json:"financial"`
	Recommendations     []string            `json:"recommendations"`
	ForecastHorizonDays int                 `json:"forecast_horizon_days"`
}

// BelowReorderPoint reports whether on-hand stock is at or below the reorder point.
func (i InventoryInsight) BelowReorderPoint() bool {
	return float64(i.Snapshot.OnHandUnits) <= i.Reorder.ReorderPoint
}

// ReorderPriorityEntry is one row of the multi-item ranking.
type ReorderPriorityEntry struct {
	ItemID            string         `json:"item_id"`
	Description       string         `json:"description"`
	UrgencyScore      int            `json:"urgency_score"`
	UrgencyReasons    []string       `json:"urgency_reasons"`
	Priority          Priority       `json:"priority"`
	CoverageDays      CoverageDays   `json:"coverage_days"`
	CoverageStatus    CoverageStatus `json:"coverage_status"`
	OnHandUnits       int            `json:"on_hand_units"`
	ReorderPoint      int64          `json:"reorder_point"`
	BelowReorderPoint bool           `json:"below_reorder_point"`
	ExpectedRevenue   float64        `json:"expected_revenue"`
	ProfitMarginPct   float64        `json:"profit_margin_pct"`
	Recommendations   []string       `json:"recommendations"`
}

// SkippedItem records an item the ranking could not analyze.
type SkippedItem struct {
	ItemID string    `json:"item_id"`
	Kind   ErrorKind `json:"kind"`
	Reason string    `json:"reason"`
}

// RankingReport is the ordered output of a ranking run.
type RankingReport struct {
	Entries []ReorderPriorityEntry `json:"entries"`
	Skipped []SkippedItem          `json:"skipped"`
}

// ByPriority returns the entries in bucket p, preserving rank order.
func (r *RankingReport) ByPriority(p Priority) []ReorderPriorityEntry {
	out := make([]ReorderPriorityEntry, 0)
	for _, e := range r.Entries {
		if e.Priority == p {
			out = append(out, e)
		}
	}
	return out
}

// RankingSummary holds the headline counts of a ranking run.
type RankingSummary struct {
	Analyzed      int               `json:"analyzed"`
	Skipped       int               `json:"skipped"`
	High          int               `json:"high"`
	Medium        int               `json:"medium"`
	Low           int               `json:"low"`
	RevenueAtRisk float64           `json:"revenue_at_risk"`
	SkippedByKind map[ErrorKind]int `json:"skipped_by_kind,omitempty"`
}

// Summary counts entries per bucket and sums the expected revenue of high-priority items.
func (r *RankingReport) Summary() RankingSummary {
	s := RankingSummary{
		Analyzed: len(r.Entries),
		Skipped:  len(r.Skipped),
	}
	for _, e := range r.Entries {
		switch e.Priority {
		case PriorityHigh:
			s.High++
			s.RevenueAtRisk += e.ExpectedRevenue
		case PriorityMedium:
			s.Medium++
		default:
			s.Low++
		}
	}
	if len(r.Skipped) > 0 {
		s.SkippedByKind = make(map[ErrorKind]int)
		for _, sk := range r.Skipped {
			s.SkippedByKind[sk.Kind]++
		}
	}
	return s
}
