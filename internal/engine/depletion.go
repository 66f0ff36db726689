package engine

import (
	"math"

	"github.com/andresuchdata/backroom/internal/domain"
)

// DepletionCurve is the single depletion model shared by coverage and financial
// analysis: cumulative expected demand per forecast day and the stock left on hand
// after that day, floored at zero (unmet demand is lost, not backordered).
type DepletionCurve struct {
	startUnits float64
	cumulative []float64
	onHand     []float64
}

// NewDepletionCurve runs onHand units down the expected demand of f.
func NewDepletionCurve(f domain.Forecast, onHand int) DepletionCurve {
	n := f.Len()
	c := DepletionCurve{
		startUnits: float64(onHand),
		cumulative: make([]float64, n),
		onHand:     make([]float64, n),
	}

	var running float64
	for i := 0; i < n; i++ {
		running += f.At(i).ExpectedDemand
		c.cumulative[i] = running
		c.onHand[i] = math.Max(c.startUnits-running, 0)
	}
	return c
}

// Len is the number of forecast days on the curve.
func (c DepletionCurve) Len() int { return len(c.cumulative) }

// CumulativeDemand returns the cumulative demand through day i.
func (c DepletionCurve) CumulativeDemand(i int) float64 { return c.cumulative[i] }

// ProjectedOnHand returns the stock left after day i.
func (c DepletionCurve) ProjectedOnHand(i int) float64 { return c.onHand[i] }

// TotalDemand is the cumulative demand at the end of the horizon.
func (c DepletionCurve) TotalDemand() float64 {
	if len(c.cumulative) == 0 {
		return 0
	}
	return c.cumulative[len(c.cumulative)-1]
}

// ExhaustionIndex returns the first day whose cumulative demand reaches the starting
// stock. A day only counts once some demand has occurred, so zero stock facing zero
// demand is not exhausted.
func (c DepletionCurve) ExhaustionIndex() (int, bool) {
	for i, cum := range c.cumulative {
		if cum >= c.startUnits && cum > 0 {
			return i, true
		}
	}
	return 0, false
}

// AverageOnHand is the mean projected stock across the horizon.
func (c DepletionCurve) AverageOnHand() float64 {
	if len(c.onHand) == 0 {
		return 0
	}
	var sum float64
	for _, v := range c.onHand {
		sum += v
	}
	return sum / float64(len(c.onHand))
}
