package predictor

import (
	"math"
	"sort"

	"github.com/andresuchdata/backroom/internal/domain"
)

// Series is a gap-free daily demand history.
type Series struct {
	Start  domain.Date
	Values []float64
}

// Len is the number of days in the series.
func (s Series) Len() int { return len(s.Values) }

// DateAt returns the calendar date of day i.
func (s Series) DateAt(i int) domain.Date { return s.Start.AddDays(i) }

// End is the last date in the series.
func (s Series) End() domain.Date { return s.Start.AddDays(len(s.Values) - 1) }

// Observations converts the series back to one observation per day.
func (s Series) Observations() []domain.SalesObservation {
	out := make([]domain.SalesObservation, len(s.Values))
	for i, v := range s.Values {
		out[i] = domain.SalesObservation{Date: s.DateAt(i), Quantity: v}
	}
	return out
}

// FillHistoryGaps sorts history, sums observations that share a date and inserts a
// zero for every missing calendar day between the first and last date.
func FillHistoryGaps(history []domain.SalesObservation) (Series, error) {
	if len(history) == 0 {
		return Series{}, nil
	}

	for _, obs := range history {
		if math.IsNaN(obs.Quantity) || math.IsInf(obs.Quantity, 0) || obs.Quantity < 0 {
			return Series{}, domain.InvalidInputf("sales history: quantity %v on %s", obs.Quantity, obs.Date)
		}
	}

	sorted := make([]domain.SalesObservation, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date.Time) })

	start := sorted[0].Date
	days := start.DaysUntil(sorted[len(sorted)-1].Date) + 1
	values := make([]float64, days)
	for _, obs := range sorted {
		values[start.DaysUntil(obs.Date)] += obs.Quantity
	}

	return Series{Start: start, Values: values}, nil
}
