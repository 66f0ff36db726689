package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/domain"
)

// DemandPredictor produces a daily demand forecast for an item from its sales history.
type DemandPredictor interface {
	Forecast(ctx context.Context, itemID string, history []domain.SalesObservation, horizonDays int) (domain.Forecast, error)
}

// Model fits a gap-free series and returns raw points for the horizon days after it.
type Model interface {
	Name() string
	Predict(ctx context.Context, s Series, horizon int) ([]domain.DemandForecastPoint, error)
}

// Service prepares history for a Model and turns its output into a valid Forecast.
type Service struct {
	model Model
}

func NewService(model Model) *Service {
	return &Service{model: model}
}

// Forecast fills history gaps, runs the model and clamps every value to be non-negative.
// A missing history, a model failure or an empty prediction is ErrUpstreamForecast.
func (s *Service) Forecast(ctx context.Context, itemID string, history []domain.SalesObservation, horizonDays int) (domain.Forecast, error) {
	if horizonDays <= 0 {
		return domain.Forecast{}, domain.InvalidInputf("forecast %s: horizon %d must be positive", itemID, horizonDays)
	}

	series, err := FillHistoryGaps(history)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecast %s: %w", itemID, err)
	}
	if series.Len() == 0 {
		return domain.Forecast{}, fmt.Errorf("forecast %s: no sales history: %w", itemID, domain.ErrUpstreamForecast)
	}

	started := time.Now()
	points, err := s.model.Predict(ctx, series, horizonDays)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Forecast{}, fmt.Errorf("forecast %s: %w", itemID, ctxErr)
		}
		return domain.Forecast{}, fmt.Errorf("forecast %s: %s: %v: %w", itemID, s.model.Name(), err, domain.ErrUpstreamForecast)
	}
	if len(points) == 0 {
		return domain.Forecast{}, fmt.Errorf("forecast %s: %s returned no points: %w", itemID, s.model.Name(), domain.ErrUpstreamForecast)
	}

	for i := range points {
		if err := clamp(&points[i]); err != nil {
			return domain.Forecast{}, fmt.Errorf("forecast %s: %v: %w", itemID, err, domain.ErrUpstreamForecast)
		}
	}

	f, err := domain.NewForecast(points)
	if err != nil {
		return domain.Forecast{}, fmt.Errorf("forecast %s: %w", itemID, err)
	}

	log.Debug().
		Str("item_id", itemID).
		Str("model", s.model.Name()).
		Int("history_days", series.Len()).
		Int("horizon", horizonDays).
		Dur("elapsed", time.Since(started)).
		Msg("predictor: forecast generated")

	return f, nil
}

var errNonFinite = errors.New("non-finite prediction")

// clamp floors all three values at zero and restores lower <= expected <= upper.
func clamp(p *domain.DemandForecastPoint) error {
	for _, v := range []float64{p.ExpectedDemand, p.LowerBound, p.UpperBound} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w on %s", errNonFinite, p.Date)
		}
	}
	p.ExpectedDemand = math.Max(p.ExpectedDemand, 0)
	p.LowerBound = math.Min(math.Max(p.LowerBound, 0), p.ExpectedDemand)
	p.UpperBound = math.Max(math.Max(p.UpperBound, 0), p.ExpectedDemand)
	return nil
}
