package predictor

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/cache"
	"github.com/andresuchdata/backroom/internal/domain"
)

// Cached serves forecasts from a cache keyed by item, horizon and filled history.
type Cached struct {
	next  DemandPredictor
	cache cache.ForecastCache
}

func NewCached(next DemandPredictor, c cache.ForecastCache) *Cached {
	if c == nil {
		c = cache.NewNoopForecastCache()
	}
	return &Cached{next: next, cache: c}
}

func (c *Cached) Forecast(ctx context.Context, itemID string, history []domain.SalesObservation, horizonDays int) (domain.Forecast, error) {
	series, err := FillHistoryGaps(history)
	if err != nil {
		return c.next.Forecast(ctx, itemID, history, horizonDays)
	}
	key := cache.ForecastKey{ItemID: itemID, HorizonDays: horizonDays, History: series.Observations()}

	if f, ok, err := c.cache.GetForecast(ctx, key); err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("predictor: cache get forecast failed")
	} else if ok {
		return f, nil
	}

	f, err := c.next.Forecast(ctx, itemID, history, horizonDays)
	if err != nil {
		return domain.Forecast{}, err
	}

	if err := c.cache.SetForecast(ctx, key, f); err != nil {
		log.Warn().Err(err).Str("item_id", itemID).Msg("predictor: cache set forecast failed")
	}
	return f, nil
}
