package engine

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Policy holds the tunable thresholds of the single-item analysis.
// Zero and nil fields are filled from the default tags by NewPolicy.
type Policy struct {
	// SafetyFactor multiplies lead-time demand into the reorder point.
	SafetyFactor float64 `json:"safety_factor" default:"1.25" validate:"gt=0"`
	// CriticalCoverageDays is the inclusive upper bound of the critical status.
	CriticalCoverageDays int `json:"critical_coverage_days" default:"7" validate:"gte=0"`
	// LowCoverageDays is the inclusive upper bound of the low status.
	LowCoverageDays int `json:"low_coverage_days" default:"14" validate:"gtefield=CriticalCoverageDays"`
	// LowMarginPct triggers the margin recommendation when the profit margin is below it.
	// nil takes the default; an explicit 0 turns the check off for non-negative margins.
	LowMarginPct *float64 `json:"low_margin_pct" default:"10"`
}

// MarginFloor is the low-margin threshold.
func (p Policy) MarginFloor() float64 {
	if p.LowMarginPct == nil {
		return *DefaultPolicy().LowMarginPct
	}
	return *p.LowMarginPct
}

// DefaultPolicy returns the policy with every documented default applied.
func DefaultPolicy() Policy {
	var p Policy
	defaults.MustSet(&p)
	return p
}

// NewPolicy fills unset fields of p with defaults and validates the result.
func NewPolicy(p Policy) (Policy, error) {
	if err := defaults.Set(&p); err != nil {
		return Policy{}, fmt.Errorf("apply policy defaults: %w", err)
	}
	if err := validate.Struct(p); err != nil {
		return Policy{}, fmt.Errorf("validate policy: %w", err)
	}
	return p, nil
}
