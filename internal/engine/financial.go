package engine

import (
	"math"

	"github.com/andresuchdata/backroom/internal/domain"
)

// FinancialProjector projects revenue and holding cost over a forecast horizon.
type FinancialProjector struct{}

// Compute sells at most the on-hand stock against forecast demand and charges holding
// cost on the average projected stock of the shared depletion curve.
func (FinancialProjector) Compute(f domain.Forecast, onHand int, unitPrice, holdingCostRate float64) (domain.FinancialProjection, error) {
	if f.IsEmpty() {
		return domain.FinancialProjection{}, domain.InvalidInputf("financial: forecast is empty")
	}
	if onHand < 0 {
		return domain.FinancialProjection{}, domain.InvalidInputf("financial: on-hand units %d is negative", onHand)
	}
	if !finiteNonNegative(unitPrice) {
		return domain.FinancialProjection{}, domain.InvalidInputf("financial: unit price %v must be a non-negative number", unitPrice)
	}
	if !finiteNonNegative(holdingCostRate) {
		return domain.FinancialProjection{}, domain.InvalidInputf("financial: holding cost rate %v must be a non-negative number", holdingCostRate)
	}

	curve := NewDepletionCurve(f, onHand)

	var p domain.FinancialProjection

	// 1. Total demand
	p.TotalForecastDemand = curve.TotalDemand()

	// 2. Expected sales are capped by stock
	p.ExpectedSalesUnits = math.Min(float64(onHand), p.TotalForecastDemand)
	p.ExpectedRevenue = p.ExpectedSalesUnits * unitPrice

	// 3. Holding cost on the average projected stock
	p.AverageOnHand = curve.AverageOnHand()
	p.HoldingCost = p.AverageOnHand * holdingCostRate * float64(curve.Len())

	// 4. Profit and margin
	p.GrossProfit = p.ExpectedRevenue - p.HoldingCost
	if p.ExpectedRevenue > 0 {
		p.ProfitMarginPct = p.GrossProfit / p.ExpectedRevenue * 100
	}

	return p, nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
