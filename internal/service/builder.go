package service

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/cache"
	"github.com/andresuchdata/backroom/internal/config"
	"github.com/andresuchdata/backroom/internal/engine"
	"github.com/andresuchdata/backroom/internal/predictor"
	"github.com/andresuchdata/backroom/internal/ranker"
	"github.com/andresuchdata/backroom/internal/repository"
)

// Build wires an InventoryService from configuration: the weekly seasonal
// predictor behind the forecast cache, the composer and the ranker.
// rec may be nil.
func Build(cfg *config.Config, store repository.CatalogStore, rec ranker.Recorder) (*InventoryService, error) {
	policy, err := cfg.Engine.Policy()
	if err != nil {
		return nil, fmt.Errorf("engine policy: %w", err)
	}
	rankerCfg, err := cfg.Ranker.Ranker()
	if err != nil {
		return nil, fmt.Errorf("ranker config: %w", err)
	}

	damping := cfg.Predictor.TrendDamping
	model, err := predictor.NewWeeklySeasonalModel(predictor.SeasonalConfig{
		LookbackDays: cfg.Predictor.LookbackDays,
		IntervalZ:    cfg.Predictor.IntervalZ,
		TrendDamping: &damping,
	})
	if err != nil {
		return nil, fmt.Errorf("demand model: %w", err)
	}

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("service: forecast cache unavailable, continuing without cache")
		forecastCache = cache.NewNoopForecastCache()
	}

	composer := engine.NewComposer(policy)
	rk, err := ranker.New(composer, rankerCfg)
	if err != nil {
		return nil, fmt.Errorf("ranker: %w", err)
	}
	rk.WithRecorder(rec)

	demand := predictor.NewCached(predictor.NewService(model), forecastCache)
	return NewInventoryService(store, demand, composer, rk, cfg.Engine.HorizonDays), nil
}
