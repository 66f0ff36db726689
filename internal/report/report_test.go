package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/storage"
)

func sampleReport() *domain.RankingReport {
	return &domain.RankingReport{
		Entries: []domain.ReorderPriorityEntry{
			{
				ItemID:            "A",
				Description:       "Anchor, galvanised",
				UrgencyScore:      175,
				UrgencyReasons:    []string{"CRITICAL: 2 days coverage", "Below ROP: 250 ≤ 625"},
				Priority:          domain.PriorityHigh,
				CoverageDays:      domain.ExactCoverage(2),
				CoverageStatus:    domain.CoverageCritical,
				OnHandUnits:       250,
				ReorderPoint:      625,
				BelowReorderPoint: true,
				ExpectedRevenue:   12345.678,
				ProfitMarginPct:   99.9237,
				Recommendations:   []string{"reorder immediately — low inventory coverage"},
			},
			{
				ItemID:          "B",
				Description:     "Bolt",
				UrgencyScore:    50,
				UrgencyReasons:  []string{"LOW: 9 days coverage"},
				Priority:        domain.PriorityMedium,
				CoverageDays:    domain.ExactCoverage(9),
				CoverageStatus:  domain.CoverageLow,
				OnHandUnits:     1000,
				ReorderPoint:    625,
				ExpectedRevenue: 10000,
				ProfitMarginPct: 99.55,
			},
			{
				ItemID:          "C",
				Description:     "Clamp",
				Priority:        domain.PriorityLow,
				CoverageDays:    domain.BeyondHorizon(30),
				CoverageStatus:  domain.CoverageSufficient,
				OnHandUnits:     5000,
				ReorderPoint:    625,
				ExpectedRevenue: 0.1,
			},
		},
		Skipped: []domain.SkippedItem{
			{ItemID: "D", Kind: domain.KindUpstreamForecast, Reason: "no sales history"},
		},
	}
}

func TestWriteRankingCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRankingCSV(&buf, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, rankingHeader, rows[0])
	assert.Equal(t, []string{
		"A", "Anchor, galvanised", "high", "175", "250", "2", "critical", "625", "true",
		"12345.68", "99.9", "CRITICAL: 2 days coverage; Below ROP: 250 ≤ 625",
		"reorder immediately — low inventory coverage",
	}, rows[1])
	assert.Equal(t, ">30", rows[3][5])
	assert.Equal(t, "0.10", rows[3][9])
}

func TestWriteSkippedCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSkippedCSV(&buf, sampleReport()))
	assert.Equal(t, "item_id,kind,reason\nD,upstream_forecast_failure,no sales history\n", buf.String())
}

func TestWriteForecastCSV(t *testing.T) {
	start := domain.NewDate(2024, time.July, 30)
	f, err := domain.NewForecast([]domain.DemandForecastPoint{
		{Date: start, ExpectedDemand: 1.5, LowerBound: 0.25, UpperBound: 3},
		{Date: start.AddDays(1), ExpectedDemand: 2, LowerBound: 2, UpperBound: 2},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteForecastCSV(&buf, "A", f))
	assert.Equal(t,
		"item_id,date,expected_demand,lower_bound,upper_bound\n"+
			"A,2024-07-30,1.5,0.25,3\n"+
			"A,2024-07-31,2,2,2\n",
		buf.String())
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "HIGH PRIORITY - ORDER IMMEDIATELY:")
	assert.Contains(t, out, "   Revenue Impact: $12,345.68\n")
	assert.Contains(t, out, "   Coverage: 2 days (CRITICAL)\n")
	assert.Contains(t, out, "   ROP: 625 units (Below: Yes)\n")
	assert.Contains(t, out, "MEDIUM PRIORITY - ORDER SOON:")
	assert.Contains(t, out, "LOW PRIORITY: 1 items have adequate inventory levels")
	assert.Contains(t, out, "Revenue at Risk (High Priority): $12,345.68\n")
	assert.Contains(t, out, "D (upstream_forecast_failure): no sales history")
}

func TestWriteSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, &domain.RankingReport{}))
	assert.Contains(t, buf.String(), "No successful analyses completed")
}

func TestGroupThousands(t *testing.T) {
	assert.Equal(t, "0.00", groupThousands("0.00"))
	assert.Equal(t, "999.10", groupThousands("999.10"))
	assert.Equal(t, "1,000", groupThousands("1000"))
	assert.Equal(t, "-1,234,567.89", groupThousands("-1234567.89"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

type memoryStore struct {
	objects map[string][]byte
	failOn  string
}

func (m *memoryStore) ListObjects(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (m *memoryStore) DownloadObject(_ context.Context, key, dest string) error {
	data, ok := m.objects[key]
	if !ok {
		return errors.New("no such key")
	}
	return os.WriteFile(dest, data, 0o644)
}

func (m *memoryStore) UploadObject(_ context.Context, key string, data []byte) error {
	if m.failOn != "" && strings.HasSuffix(key, m.failOn) {
		return errors.New("upload refused")
	}
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func TestPublisher(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{}}
	p := NewPublisher(store, "reorder")
	p.now = func() time.Time { return time.Date(2024, time.August, 9, 23, 30, 0, 0, time.UTC) }

	keys, err := p.Publish(context.Background(), "run-42", sampleReport())
	require.NoError(t, err)

	assert.Equal(t, "reorder/2024-08-09/run-42.csv", keys.CSVKey)
	assert.Equal(t, "reorder/2024-08-09/run-42.json", keys.JSONKey)
	assert.Equal(t, "reorder/2024-08-09/run-42.skipped.csv", keys.SkippedKey)
	require.Contains(t, store.objects, keys.CSVKey)
	assert.Equal(t, "item_id,kind,reason\nD,upstream_forecast_failure,no sales history\n", string(store.objects[keys.SkippedKey]))

	var doc Document
	require.NoError(t, json.Unmarshal(store.objects[keys.JSONKey], &doc))
	assert.Equal(t, "run-42", doc.RunID)
	assert.Equal(t, 1, doc.Summary.High)
	assert.Len(t, doc.Entries, 3)
	assert.Equal(t, domain.BeyondHorizon(30), doc.Entries[2].CoverageDays)
}

func TestPublisher_UploadFailure(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{}, failOn: ".json"}
	_, err := NewPublisher(store, "reorder").Publish(context.Background(), "run-1", sampleReport())
	assert.Error(t, err)
}

func TestPublisher_Latest(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	p := NewPublisher(store, "reorder")

	_, _, ok, err := p.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	publishAt := func(runID string, at time.Time) {
		p.now = func() time.Time { return at }
		_, err := p.Publish(ctx, runID, sampleReport())
		require.NoError(t, err)
	}
	publishAt("run-old", time.Date(2024, time.August, 8, 22, 0, 0, 0, time.UTC))
	publishAt("run-morning", time.Date(2024, time.August, 9, 6, 0, 0, 0, time.UTC))
	publishAt("run-evening", time.Date(2024, time.August, 9, 18, 0, 0, 0, time.UTC))
	require.NoError(t, store.UploadObject(ctx, "reorder/notes.json", []byte("{}")))

	doc, keys, ok, err := p.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run-evening", doc.RunID)
	assert.Equal(t, 1, doc.Summary.Skipped)
	assert.Equal(t, "reorder/2024-08-09/run-evening.json", keys.JSONKey)
	assert.Equal(t, "reorder/2024-08-09/run-evening.csv", keys.CSVKey)
	assert.Equal(t, "reorder/2024-08-09/run-evening.skipped.csv", keys.SkippedKey)
}

func TestPublisher_LatestCorruptDocument(t *testing.T) {
	store := &memoryStore{objects: map[string][]byte{
		"reorder/2024-08-09/run-1.json": []byte("not json"),
	}}
	_, _, _, err := NewPublisher(store, "reorder").Latest(context.Background())
	assert.ErrorContains(t, err, "decode reorder/2024-08-09/run-1.json")
}

func sampleInsight() *domain.InventoryInsight {
	exhausted := domain.NewDate(2024, time.March, 3)
	return &domain.InventoryInsight{
		Profile:  domain.ItemProfile{ItemID: "A", Description: "Anchor", UnitPrice: 10, LeadTimeDays: 5, HoldingCostRate: 0.01},
		Snapshot: domain.InventorySnapshot{ItemID: "A", OnHandUnits: 1250},
		Coverage: domain.CoverageResult{
			Status:         domain.CoverageCritical,
			CoverageDays:   domain.ExactCoverage(2),
			ExhaustionDate: &exhausted,
		},
		Reorder: domain.ReorderPolicy{
			LeadTimeDays:   5,
			LeadTimeDemand: 1000.4,
			SafetyStock:    250.1,
			ReorderPoint:   1250.5,
			SafetyFactor:   1.25,
		},
		Financial: domain.FinancialProjection{
			ExpectedRevenue: 12500,
			HoldingCost:     4.5,
			GrossProfit:     12495.5,
			ProfitMarginPct: 99.964,
		},
		Recommendations:     []string{"reorder immediately — low inventory coverage"},
		ForecastHorizonDays: 30,
	}
}

func TestWriteInsight(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteInsight(&buf, sampleInsight()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "INVENTORY ANALYSIS FOR ANCHOR (A)\n"))
	assert.Contains(t, out, "   Stock Level: 1,250 units\n")
	assert.Contains(t, out, "   Status: CRITICAL\n")
	assert.Contains(t, out, "   Inventory will be exhausted in 2 days (2024-03-03)\n")
	assert.Contains(t, out, "   Reorder Point: 1,251 units (Below: Yes)\n")
	assert.Contains(t, out, "   Lead Time Demand: 1,000 units over 5 days\n")
	assert.Contains(t, out, "   Safety Stock: 250 units\n")
	assert.Contains(t, out, "   Expected Revenue: $12,500.00\n")
	assert.Contains(t, out, "   Holding Costs: $4.50\n")
	assert.Contains(t, out, "   Gross Profit: $12,495.50\n")
	assert.Contains(t, out, "   Profit Margin: 100.0%\n")
	assert.Contains(t, out, "RECOMMENDATIONS:\n   - reorder immediately — low inventory coverage\n")
}

func TestWriteInsight_BeyondHorizon(t *testing.T) {
	in := sampleInsight()
	in.Coverage = domain.CoverageResult{Status: domain.CoverageSufficient, CoverageDays: domain.BeyondHorizon(30)}
	in.Recommendations = nil

	var buf bytes.Buffer
	require.NoError(t, WriteInsight(&buf, in))
	assert.Contains(t, buf.String(), "   Inventory will last beyond the 30 day forecast period\n")
	assert.NotContains(t, buf.String(), "RECOMMENDATIONS")
}
