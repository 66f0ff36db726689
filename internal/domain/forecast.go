package domain

import (
	"encoding/json"
	"math"
)

// DemandForecastPoint is one predicted day.
type DemandForecastPoint struct {
	Date           Date    `json:"date"`
	ExpectedDemand float64 `json:"expected_demand"`
	LowerBound     float64 `json:"lower_bound"`
	UpperBound     float64 `json:"upper_bound"`
}

// Forecast is an immutable, gap-free, strictly date-ordered run of forecast points.
// The only way to obtain a non-empty Forecast is NewForecast, so every consumer can
// rely on the ordering and non-negativity invariants without re-checking them.
type Forecast struct {
	points []DemandForecastPoint
}

// NewForecast validates points and returns a Forecast that owns a copy of them.
func NewForecast(points []DemandForecastPoint) (Forecast, error) {
	if len(points) == 0 {
		return Forecast{}, InvalidInputf("forecast has no points")
	}

	for i, p := range points {
		if err := validatePoint(i, p); err != nil {
			return Forecast{}, err
		}
		if i == 0 {
			continue
		}
		prev := points[i-1].Date
		if !p.Date.After(prev.Time) {
			return Forecast{}, MalformedForecastf("point %d (%s) is not after %s", i, p.Date, prev)
		}
		if want := prev.AddDays(1); !p.Date.Equal(want.Time) {
			return Forecast{}, MalformedForecastf("gap between %s and %s", prev, p.Date)
		}
	}

	owned := make([]DemandForecastPoint, len(points))
	copy(owned, points)
	return Forecast{points: owned}, nil
}

func validatePoint(i int, p DemandForecastPoint) error {
	for _, v := range []float64{p.ExpectedDemand, p.LowerBound, p.UpperBound} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return MalformedForecastf("point %d (%s) has a non-finite value", i, p.Date)
		}
		if v < 0 {
			return MalformedForecastf("point %d (%s) has negative demand", i, p.Date)
		}
	}
	if p.LowerBound > p.ExpectedDemand || p.ExpectedDemand > p.UpperBound {
		return MalformedForecastf("point %d (%s) violates lower <= expected <= upper", i, p.Date)
	}
	return nil
}

// Len is the horizon length in days.
func (f Forecast) Len() int { return len(f.points) }

// IsEmpty reports whether f is the zero Forecast.
func (f Forecast) IsEmpty() bool { return len(f.points) == 0 }

// Points returns a copy of the forecast points.
func (f Forecast) Points() []DemandForecastPoint {
	out := make([]DemandForecastPoint, len(f.points))
	copy(out, f.points)
	return out
}

// At returns the i-th point.
func (f Forecast) At(i int) DemandForecastPoint { return f.points[i] }

// Start is the first forecast date. It panics on an empty forecast.
func (f Forecast) Start() Date { return f.points[0].Date }

// End is the last forecast date. It panics on an empty forecast.
func (f Forecast) End() Date { return f.points[len(f.points)-1].Date }

// ExpectedDemand returns the expected demand series in date order.
func (f Forecast) ExpectedDemand() []float64 {
	out := make([]float64, len(f.points))
	for i, p := range f.points {
		out[i] = p.ExpectedDemand
	}
	return out
}

// TotalDemand sums expected demand over the horizon.
func (f Forecast) TotalDemand() float64 {
	var total float64
	for _, p := range f.points {
		total += p.ExpectedDemand
	}
	return total
}

// MeanDemand is the mean daily expected demand, 0 for an empty forecast.
func (f Forecast) MeanDemand() float64 {
	if len(f.points) == 0 {
		return 0
	}
	return f.TotalDemand() / float64(len(f.points))
}

func (f Forecast) MarshalJSON() ([]byte, error) {
	if f.points == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(f.points)
}

func (f *Forecast) UnmarshalJSON(b []byte) error {
	var points []DemandForecastPoint
	if err := json.Unmarshal(b, &points); err != nil {
		return err
	}
	if len(points) == 0 {
		*f = Forecast{}
		return nil
	}
	parsed, err := NewForecast(points)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ForecastSummary condenses a forecast the way the forecast response reports it.
type ForecastSummary struct {
	HorizonDays        int     `json:"horizon_days"`
	AverageDailyDemand float64 `json:"average_daily_demand"`
	TotalDemand        float64 `json:"total_demand"`
	NextWeekAverage    float64 `json:"next_week_average,omitempty"`
	Trend              string  `json:"trend,omitempty"`
}

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Summarize computes the headline numbers of f.
func (f Forecast) Summarize() ForecastSummary {
	s := ForecastSummary{
		HorizonDays:        f.Len(),
		AverageDailyDemand: f.MeanDemand(),
		TotalDemand:        f.TotalDemand(),
	}

	if f.Len() >= 7 {
		var week float64
		for _, p := range f.points[:7] {
			week += p.ExpectedDemand
		}
		s.NextWeekAverage = week / 7
	}

	if f.Len() >= 2 {
		first, last := f.points[0].ExpectedDemand, f.points[f.Len()-1].ExpectedDemand
		switch {
		case last > first:
			s.Trend = TrendIncreasing
		case last < first:
			s.Trend = TrendDecreasing
		default:
			s.Trend = TrendStable
		}
	}

	return s
}
