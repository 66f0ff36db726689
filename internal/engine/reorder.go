package engine

import (
	"fmt"
	"math"

	"github.com/andresuchdata/backroom/internal/domain"
)

// ReorderCalculator computes reorder points from forecast lead-time demand.
type ReorderCalculator struct {
	SafetyFactor float64
}

// NewReorderCalculator creates a calculator using the policy safety factor.
func NewReorderCalculator(p Policy) ReorderCalculator {
	return ReorderCalculator{SafetyFactor: p.SafetyFactor}
}

// Compute derives the reorder policy for the given lead time using the calculator's factor.
func (c ReorderCalculator) Compute(f domain.Forecast, leadTimeDays int) (domain.ReorderPolicy, error) {
	return ComputeReorderPolicy(f, leadTimeDays, c.SafetyFactor)
}

// ComputeReorderPolicy derives lead-time demand, safety stock and reorder point.
func ComputeReorderPolicy(f domain.Forecast, leadTimeDays int, safetyFactor float64) (domain.ReorderPolicy, error) {
	if f.IsEmpty() {
		return domain.ReorderPolicy{}, domain.InvalidInputf("reorder: forecast is empty")
	}
	if leadTimeDays < 0 {
		return domain.ReorderPolicy{}, domain.InvalidInputf("reorder: lead time %d is negative", leadTimeDays)
	}
	if math.IsNaN(safetyFactor) || math.IsInf(safetyFactor, 0) || safetyFactor < 0 {
		return domain.ReorderPolicy{}, domain.InvalidInputf("reorder: safety factor %v out of range", safetyFactor)
	}

	policy := domain.ReorderPolicy{
		LeadTimeDays: leadTimeDays,
		SafetyFactor: safetyFactor,
	}

	// 1. Lead-time demand: sum the first leadTimeDays points, or extrapolate the mean
	// when the horizon is shorter than the lead time
	if f.Len() >= leadTimeDays {
		demand := f.ExpectedDemand()
		for _, d := range demand[:leadTimeDays] {
			policy.LeadTimeDemand += d
		}
	} else {
		policy.LeadTimeDemand = f.MeanDemand() * float64(leadTimeDays)
		policy.Extrapolated = true
	}

	// 2. Safety stock = lead-time demand × (factor − 1)
	policy.SafetyStock = policy.LeadTimeDemand * (safetyFactor - 1)

	// 3. Reorder point = lead-time demand × factor
	policy.ReorderPoint = policy.LeadTimeDemand * safetyFactor

	if safetyFactor < 1 {
		policy.Warnings = append(policy.Warnings,
			fmt.Sprintf("safety factor %.2f is below 1 and implies negative safety stock", safetyFactor))
	}

	return policy, nil
}
