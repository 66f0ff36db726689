package ranker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/engine"
)

func flatForecast(t *testing.T, days int, perDay float64) domain.Forecast {
	t.Helper()
	start := domain.NewDate(2024, time.June, 1)
	points := make([]domain.DemandForecastPoint, days)
	for i := range points {
		points[i] = domain.DemandForecastPoint{
			Date:           start.AddDays(i),
			ExpectedDemand: perDay,
			LowerBound:     perDay,
			UpperBound:     perDay,
		}
	}
	f, err := domain.NewForecast(points)
	require.NoError(t, err)
	return f
}

func subject(t *testing.T, id string, onHand int, price float64) Subject {
	return Subject{
		Profile: domain.ItemProfile{
			ItemID:          id,
			Description:     "item " + id,
			UnitPrice:       price,
			LeadTimeDays:    5,
			HoldingCostRate: 0.01,
		},
		Snapshot: domain.InventorySnapshot{ItemID: id, OnHandUnits: onHand},
		Forecast: flatForecast(t, 30, 100),
	}
}

type fakeLoader struct {
	subjects map[string]Subject
	errs     map[string]error
	delay    map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

func (l *fakeLoader) LoadSubject(ctx context.Context, itemID string) (Subject, error) {
	l.mu.Lock()
	l.calls = append(l.calls, itemID)
	l.mu.Unlock()

	if d, ok := l.delay[itemID]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Subject{}, ctx.Err()
		}
	}
	if err, ok := l.errs[itemID]; ok {
		return Subject{}, err
	}
	s, ok := l.subjects[itemID]
	if !ok {
		return Subject{}, domain.NotFoundf("item %s", itemID)
	}
	return s, nil
}

func newRanker(t *testing.T, cfg Config) *Ranker {
	t.Helper()
	r, err := New(engine.NewComposer(engine.DefaultPolicy()), cfg)
	require.NoError(t, err)
	return r
}

func TestWeights_Score(t *testing.T) {
	w := DefaultWeights()
	composer := engine.NewComposer(engine.DefaultPolicy())

	tests := []struct {
		name        string
		onHand      int
		price       float64
		wantScore   int
		wantReasons []string
		wantBucket  domain.Priority
	}{
		{
			name:        "critical and below reorder point",
			onHand:      250,
			price:       10,
			wantScore:   175,
			wantReasons: []string{"CRITICAL: 2 days coverage", "Below ROP: 250 ≤ 625"},
			wantBucket:  domain.PriorityHigh,
		},
		{
			name:        "low coverage",
			onHand:      1000,
			price:       10,
			wantScore:   50,
			wantReasons: []string{"LOW: 9 days coverage"},
			wantBucket:  domain.PriorityMedium,
		},
		{
			name:        "adequate",
			onHand:      2000,
			price:       10,
			wantScore:   0,
			wantReasons: []string{},
			wantBucket:  domain.PriorityLow,
		},
		{
			name:        "sufficient with zero price",
			onHand:      5000,
			price:       0,
			wantScore:   -20,
			wantReasons: []string{"Low margin: 0.0%"},
			wantBucket:  domain.PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := subject(t, "A", tt.onHand, tt.price)
			in, err := composer.Compose(s.Profile, s.Snapshot, s.Forecast)
			require.NoError(t, err)

			score, reasons := w.Score(in, 10)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantReasons, reasons)
			assert.Equal(t, tt.wantBucket, w.Bucket(score))
		})
	}
}

func TestWeights_Bucket(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, domain.PriorityHigh, w.Bucket(75))
	assert.Equal(t, domain.PriorityMedium, w.Bucket(74))
	assert.Equal(t, domain.PriorityMedium, w.Bucket(25))
	assert.Equal(t, domain.PriorityLow, w.Bucket(24))
	assert.Equal(t, domain.PriorityLow, w.Bucket(-20))
}

func TestRanker_OrdersByScoreThenItemID(t *testing.T) {
	r := newRanker(t, Config{Workers: 3})

	subjects := []Subject{
		subject(t, "D", 2000, 10), // 0
		subject(t, "C", 250, 10),  // 175
		subject(t, "B", 1000, 10), // 50
		subject(t, "A", 250, 10),  // 175
		subject(t, "E", 5000, 0),  // -20
	}

	report, err := r.RankSubjects(context.Background(), subjects)
	require.NoError(t, err)
	require.Empty(t, report.Skipped)

	var order []string
	for _, e := range report.Entries {
		order = append(order, e.ItemID)
	}
	assert.Equal(t, []string{"A", "C", "B", "D", "E"}, order)
	assert.Len(t, report.ByPriority(domain.PriorityHigh), 2)

	summary := report.Summary()
	assert.Equal(t, 5, summary.Analyzed)
	assert.Equal(t, 2, summary.High)
	assert.Equal(t, 1, summary.Medium)
	assert.Equal(t, 2, summary.Low)
	assert.Equal(t, 5000.0, summary.RevenueAtRisk)
}

func TestRanker_Deterministic(t *testing.T) {
	subjects := make([]Subject, 0, 20)
	for i := 0; i < 20; i++ {
		subjects = append(subjects, subject(t, fmt.Sprintf("SKU-%02d", i), 200*(i%6), 10))
	}

	first, err := newRanker(t, Config{Workers: 8}).RankSubjects(context.Background(), subjects)
	require.NoError(t, err)
	second, err := newRanker(t, Config{Workers: 1}).RankSubjects(context.Background(), subjects)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRanker_SkipsFailedItem(t *testing.T) {
	loader := &fakeLoader{
		subjects: map[string]Subject{},
		errs: map[string]error{
			"SKU-3": fmt.Errorf("fit model: %w", domain.ErrUpstreamForecast),
		},
	}
	ids := []string{"SKU-1", "SKU-2", "SKU-3", "SKU-4", "SKU-5"}
	for _, id := range ids {
		loader.subjects[id] = subject(t, id, 500, 10)
	}

	report, err := newRanker(t, Config{}).Rank(context.Background(), ids, loader)
	require.NoError(t, err)

	assert.Len(t, report.Entries, 4)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "SKU-3", report.Skipped[0].ItemID)
	assert.Equal(t, domain.KindUpstreamForecast, report.Skipped[0].Kind)
	assert.Contains(t, report.Skipped[0].Reason, "upstream forecast failure")
	assert.Equal(t, map[domain.ErrorKind]int{domain.KindUpstreamForecast: 1}, report.Summary().SkippedByKind)
}

func TestRanker_SkipsUnknownAndInvalidItems(t *testing.T) {
	bad := subject(t, "BAD", 10, 10)
	bad.Snapshot.ItemID = "OTHER"

	loader := &fakeLoader{subjects: map[string]Subject{
		"OK":  subject(t, "OK", 10, 10),
		"BAD": bad,
	}}

	report, err := newRanker(t, Config{}).Rank(context.Background(), []string{"OK", "MISSING", "BAD", "OK"}, loader)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, "BAD", report.Skipped[0].ItemID)
	assert.Equal(t, domain.KindInvalidInput, report.Skipped[0].Kind)
	assert.Equal(t, "MISSING", report.Skipped[1].ItemID)
	assert.Equal(t, domain.KindNotFound, report.Skipped[1].Kind)
}

func TestRanker_ItemTimeout(t *testing.T) {
	loader := &fakeLoader{
		subjects: map[string]Subject{
			"FAST": subject(t, "FAST", 250, 10),
			"SLOW": subject(t, "SLOW", 250, 10),
		},
		delay: map[string]time.Duration{"SLOW": time.Second},
	}

	r := newRanker(t, Config{Workers: 2, ItemTimeout: 20 * time.Millisecond})
	report, err := r.Rank(context.Background(), []string{"FAST", "SLOW"}, loader)
	require.NoError(t, err)

	require.Len(t, report.Entries, 1)
	assert.Equal(t, "FAST", report.Entries[0].ItemID)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, domain.KindTimeout, report.Skipped[0].Kind)
}

func TestRanker_Cancelled(t *testing.T) {
	loader := &fakeLoader{subjects: map[string]Subject{"A": subject(t, "A", 10, 10)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newRanker(t, Config{Workers: 1}).Rank(ctx, []string{"A", "B", "C"}, loader)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, report.Entries)
	require.Len(t, report.Skipped, 3)
	for _, s := range report.Skipped {
		assert.Equal(t, domain.KindCancelled, s.Kind)
	}
}

type countingRecorder struct {
	mu       sync.Mutex
	analyzed int
	skipped  map[domain.ErrorKind]int
	runs     int
}

func (c *countingRecorder) ItemAnalyzed(domain.Priority, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyzed++
}

func (c *countingRecorder) ItemSkipped(kind domain.ErrorKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped[kind]++
}

func (c *countingRecorder) RunCompleted(domain.RankingSummary, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
}

func TestRanker_Recorder(t *testing.T) {
	rec := &countingRecorder{skipped: map[domain.ErrorKind]int{}}
	r := newRanker(t, Config{}).WithRecorder(rec)

	_, err := r.RankSubjects(context.Background(), []Subject{subject(t, "A", 10, 10), subject(t, "B", 10, 10)})
	require.NoError(t, err)

	_, err = r.Rank(context.Background(), []string{"X"}, &fakeLoader{})
	require.NoError(t, err)

	assert.Equal(t, 2, rec.analyzed)
	assert.Equal(t, 1, rec.skipped[domain.KindNotFound])
	assert.Equal(t, 2, rec.runs)
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.ItemTimeout)
	assert.Equal(t, DefaultWeights(), cfg.Weights)

	_, err = NewConfig(Config{Weights: Weights{HighThreshold: 10, MediumThreshold: ptr(50)}})
	assert.Error(t, err)
}

func ptr[T any](v T) *T { return &v }

func TestWeights_ZeroMediumThreshold(t *testing.T) {
	cfg, err := NewConfig(Config{Weights: Weights{MediumThreshold: ptr(0)}})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Weights.MediumCutoff())
	assert.Equal(t, domain.PriorityMedium, cfg.Weights.Bucket(0))
	assert.Equal(t, domain.PriorityLow, cfg.Weights.Bucket(-20))

	assert.Equal(t, domain.PriorityLow, DefaultWeights().Bucket(0))
	assert.Equal(t, 25, Weights{}.MediumCutoff())
}
