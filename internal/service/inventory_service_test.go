package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/backroom/internal/config"
	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/engine"
	"github.com/andresuchdata/backroom/internal/predictor"
	"github.com/andresuchdata/backroom/internal/ranker"
	"github.com/andresuchdata/backroom/internal/repository"
)

var historyStart = domain.NewDate(2024, time.April, 1)

func flatHistory(days int, perDay float64) []domain.SalesObservation {
	out := make([]domain.SalesObservation, days)
	for i := range out {
		out[i] = domain.SalesObservation{Date: historyStart.AddDays(i), Quantity: perDay}
	}
	return out
}

func addItem(store *repository.MemoryCatalog, id string, onHand int, perDay float64) {
	store.PutItem(domain.ItemProfile{ItemID: id, Description: "item " + id, UnitPrice: 10, LeadTimeDays: 5, HoldingCostRate: 0.01})
	store.PutStock(domain.InventorySnapshot{ItemID: id, OnHandUnits: onHand})
	if perDay >= 0 {
		store.PutSales(id, flatHistory(28, perDay))
	}
}

func newService(t *testing.T, store repository.CatalogStore) *InventoryService {
	t.Helper()
	model, err := predictor.NewWeeklySeasonalModel(predictor.SeasonalConfig{})
	require.NoError(t, err)

	composer := engine.NewComposer(engine.DefaultPolicy())
	rk, err := ranker.New(composer, ranker.Config{Workers: 2})
	require.NoError(t, err)

	return NewInventoryService(store, predictor.NewService(model), composer, rk, 30)
}

func TestInventoryService_Analyze(t *testing.T) {
	store := repository.NewMemoryCatalog()
	addItem(store, "A", 250, 100)
	svc := newService(t, store)

	insight, err := svc.Analyze(context.Background(), "A", 0)
	require.NoError(t, err)

	assert.Equal(t, 30, insight.ForecastHorizonDays)
	assert.Equal(t, domain.CoverageCritical, insight.Coverage.Status)
	days, ok := insight.Coverage.CoverageDays.Days()
	require.True(t, ok)
	assert.Equal(t, 2, days)
	assert.Equal(t, "2024-05-01", insight.Coverage.ExhaustionDate.String())
	assert.InDelta(t, 625, insight.Reorder.ReorderPoint, 1e-6)
	assert.Contains(t, insight.Recommendations, engine.RecommendReorderNow)
}

func TestInventoryService_AnalyzeFailures(t *testing.T) {
	store := repository.NewMemoryCatalog()
	addItem(store, "NOSALES", 10, -1)
	store.PutItem(domain.ItemProfile{ItemID: "NOSTOCK"})
	svc := newService(t, store)
	ctx := context.Background()

	_, err := svc.Analyze(ctx, "UNKNOWN", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Analyze(ctx, "NOSTOCK", 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Analyze(ctx, "NOSALES", 0)
	assert.ErrorIs(t, err, domain.ErrUpstreamForecast)

	_, err = svc.Analyze(ctx, "NOSALES", -3)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInventoryService_Forecast(t *testing.T) {
	store := repository.NewMemoryCatalog()
	addItem(store, "A", 250, 12)
	svc := newService(t, store)

	res, err := svc.Forecast(context.Background(), "A", 14)
	require.NoError(t, err)
	assert.Equal(t, "A", res.ItemID)
	assert.Equal(t, 14, res.Forecast.Len())
	assert.Equal(t, 14, res.Summary.HorizonDays)
	assert.InDelta(t, 12, res.Summary.NextWeekAverage, 1e-9)
	assert.Equal(t, domain.TrendStable, res.Summary.Trend)
}

func TestInventoryService_RankAll(t *testing.T) {
	store := repository.NewMemoryCatalog()
	addItem(store, "A", 250, 100)
	addItem(store, "B", 5000, 100)
	addItem(store, "C", 1000, 100)
	addItem(store, "D", 10, -1)
	addItem(store, "E", 300, 100)
	svc := newService(t, store)

	report, err := svc.RankAll(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Entries, 4)
	assert.Equal(t, "A", report.Entries[0].ItemID)
	assert.Equal(t, "E", report.Entries[1].ItemID)
	assert.Equal(t, "C", report.Entries[2].ItemID)
	assert.Equal(t, "B", report.Entries[3].ItemID)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "D", report.Skipped[0].ItemID)
	assert.Equal(t, domain.KindUpstreamForecast, report.Skipped[0].Kind)
}

func TestBuild_DefaultsFromEmptyConfig(t *testing.T) {
	store := repository.NewMemoryCatalog()
	addItem(store, "A", 250, 100)

	svc, err := Build(&config.Config{}, store, nil)
	require.NoError(t, err)
	assert.Equal(t, 30, svc.HorizonDays())

	insight, err := svc.Analyze(context.Background(), "A", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.CoverageCritical, insight.Coverage.Status)
}

func TestBuild_RejectsInvalidPolicy(t *testing.T) {
	cfg := &config.Config{Engine: config.EngineConfig{CriticalCoverageDays: 20, LowCoverageDays: 10}}
	_, err := Build(cfg, repository.NewMemoryCatalog(), nil)
	assert.Error(t, err)
}
