package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/engine"
	"github.com/andresuchdata/backroom/internal/predictor"
	"github.com/andresuchdata/backroom/internal/ranker"
	"github.com/andresuchdata/backroom/internal/repository"
)

const defaultHorizonDays = 30

// maxHorizonDays bounds caller-supplied horizons.
const maxHorizonDays = 365

// ForecastResult is a forecast with its headline numbers.
type ForecastResult struct {
	ItemID   string                 `json:"item_id"`
	Forecast domain.Forecast        `json:"forecast"`
	Summary  domain.ForecastSummary `json:"summary"`
}

type InventoryService struct {
	store       repository.CatalogStore
	predictor   predictor.DemandPredictor
	composer    *engine.Composer
	ranker      *ranker.Ranker
	horizonDays int
}

func NewInventoryService(
	store repository.CatalogStore,
	demand predictor.DemandPredictor,
	composer *engine.Composer,
	rk *ranker.Ranker,
	horizonDays int,
) *InventoryService {
	if horizonDays <= 0 {
		horizonDays = defaultHorizonDays
	}
	return &InventoryService{
		store:       store,
		predictor:   demand,
		composer:    composer,
		ranker:      rk,
		horizonDays: horizonDays,
	}
}

// HorizonDays is the forecast length used when callers pass zero.
func (s *InventoryService) HorizonDays() int { return s.horizonDays }

func (s *InventoryService) resolveHorizon(horizon int) (int, error) {
	switch {
	case horizon == 0:
		return s.horizonDays, nil
	case horizon < 0 || horizon > maxHorizonDays:
		return 0, domain.InvalidInputf("horizon %d must be between 1 and %d days", horizon, maxHorizonDays)
	default:
		return horizon, nil
	}
}

// Forecast loads the sales history of itemID and predicts horizon days of demand.
func (s *InventoryService) Forecast(ctx context.Context, itemID string, horizon int) (*ForecastResult, error) {
	horizon, err := s.resolveHorizon(horizon)
	if err != nil {
		return nil, err
	}
	f, err := s.forecast(ctx, itemID, horizon)
	if err != nil {
		return nil, err
	}
	return &ForecastResult{ItemID: itemID, Forecast: f, Summary: f.Summarize()}, nil
}

func (s *InventoryService) forecast(ctx context.Context, itemID string, horizon int) (domain.Forecast, error) {
	history, err := s.store.GetSalesHistory(ctx, itemID)
	if err != nil {
		return domain.Forecast{}, err
	}
	return s.predictor.Forecast(ctx, itemID, history, horizon)
}

// Analyze runs the single-item path: lookup, forecast, compose. Any failure is returned.
func (s *InventoryService) Analyze(ctx context.Context, itemID string, horizon int) (*domain.InventoryInsight, error) {
	horizon, err := s.resolveHorizon(horizon)
	if err != nil {
		return nil, err
	}

	subject, err := s.loadSubject(ctx, itemID, horizon)
	if err != nil {
		return nil, err
	}

	insight, err := s.composer.Compose(subject.Profile, subject.Snapshot, subject.Forecast)
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("item_id", itemID).
		Str("status", string(insight.Coverage.Status)).
		Msg("inventory: insight composed")
	return insight, nil
}

// LoadSubject implements ranker.SubjectLoader with the default horizon.
func (s *InventoryService) LoadSubject(ctx context.Context, itemID string) (ranker.Subject, error) {
	return s.loadSubject(ctx, itemID, s.horizonDays)
}

func (s *InventoryService) loadSubject(ctx context.Context, itemID string, horizon int) (ranker.Subject, error) {
	profile, err := s.store.GetItemProfile(ctx, itemID)
	if err != nil {
		return ranker.Subject{}, err
	}
	snapshot, err := s.store.GetCurrentStock(ctx, itemID)
	if err != nil {
		return ranker.Subject{}, err
	}
	f, err := s.forecast(ctx, itemID, horizon)
	if err != nil {
		return ranker.Subject{}, err
	}
	return ranker.Subject{Profile: profile, Snapshot: snapshot, Forecast: f}, nil
}

// RankAll ranks every item that has a stock record.
func (s *InventoryService) RankAll(ctx context.Context) (*domain.RankingReport, error) {
	ids, err := s.store.ListItemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return s.RankItems(ctx, ids)
}

// RankItems ranks the given items. A cancelled context still returns the partial report.
func (s *InventoryService) RankItems(ctx context.Context, itemIDs []string) (*domain.RankingReport, error) {
	return s.ranker.Rank(ctx, itemIDs, s)
}
