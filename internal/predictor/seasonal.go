package predictor

import (
	"context"
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/backroom/internal/domain"
)

var validate = validator.New()

// minSeasonalDays is the shortest window that gets day-of-week offsets.
const minSeasonalDays = 14

// SeasonalConfig tunes the weekly seasonal model.
type SeasonalConfig struct {
	// LookbackDays is how much recent history the model fits on.
	LookbackDays int `default:"56" validate:"gte=1"`
	// IntervalZ is the normal quantile of the two-sided band (1.2816 gives 80%).
	IntervalZ float64 `default:"1.2816" validate:"gte=0"`
	// TrendDamping shrinks each further step of the fitted trend; 1 keeps it linear, 0 drops it.
	TrendDamping *float64 `default:"0.9" validate:"required,gte=0,lte=1"`
}

// WeeklySeasonalModel fits a linear trend with additive day-of-week offsets.
type WeeklySeasonalModel struct {
	cfg SeasonalConfig
}

// NewWeeklySeasonalModel applies defaults to unset fields and validates cfg.
func NewWeeklySeasonalModel(cfg SeasonalConfig) (*WeeklySeasonalModel, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("apply seasonal defaults: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate seasonal config: %w", err)
	}
	return &WeeklySeasonalModel{cfg: cfg}, nil
}

func (m *WeeklySeasonalModel) Name() string { return "weekly_seasonal" }

// Predict forecasts horizon days following the last day of s. Values are not clamped.
func (m *WeeklySeasonalModel) Predict(ctx context.Context, s Series, horizon int) ([]domain.DemandForecastPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("weekly seasonal: empty series")
	}

	// 1. Fit window
	offset := 0
	if s.Len() > m.cfg.LookbackDays {
		offset = s.Len() - m.cfg.LookbackDays
	}
	ys := s.Values[offset:]
	n := len(ys)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}

	// 2. Level and trend
	var alpha, beta float64
	if n >= 2 {
		alpha, beta = stat.LinearRegression(xs, ys, nil, false)
	} else {
		alpha = ys[0]
	}

	residuals := make([]float64, n)
	for i, y := range ys {
		residuals[i] = y - (alpha + beta*xs[i])
	}

	// 3. Day-of-week offsets on the detrended residuals, centred on zero
	var seasonal [7]float64
	if n >= minSeasonalDays {
		var byDay [7][]float64
		for i, r := range residuals {
			wd := s.DateAt(offset + i).Weekday()
			byDay[wd] = append(byDay[wd], r)
		}
		for wd := range byDay {
			seasonal[wd] = stat.Mean(byDay[wd], nil)
		}
		centre := stat.Mean(seasonal[:], nil)
		for wd := range seasonal {
			seasonal[wd] -= centre
		}
		for i := range residuals {
			residuals[i] -= seasonal[s.DateAt(offset+i).Weekday()]
		}
	}

	// 4. Interval half-width from the remaining noise
	var sigma float64
	if n > 2 {
		sigma = stat.StdDev(residuals, nil)
	}
	halfWidth := m.cfg.IntervalZ * sigma

	// 5. Project with a damped trend
	last := alpha + beta*float64(n-1)
	lastDate := s.End()
	points := make([]domain.DemandForecastPoint, horizon)
	stepSum, phi := 0.0, 1.0
	for h := 1; h <= horizon; h++ {
		phi *= *m.cfg.TrendDamping
		stepSum += phi
		date := lastDate.AddDays(h)
		expected := last + beta*stepSum + seasonal[date.Weekday()]
		points[h-1] = domain.DemandForecastPoint{
			Date:           date,
			ExpectedDemand: expected,
			LowerBound:     expected - halfWidth,
			UpperBound:     expected + halfWidth,
		}
	}

	if math.IsNaN(last) || math.IsNaN(beta) {
		return nil, fmt.Errorf("weekly seasonal: fit produced NaN")
	}
	return points, nil
}
