package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverageDaysDistinguishesSentinel(t *testing.T) {
	exact := ExactCoverage(30)
	beyond := BeyondHorizon(30)

	d, ok := exact.Days()
	assert.True(t, ok)
	assert.Equal(t, 30, d)
	assert.Equal(t, "30", exact.String())

	_, ok = beyond.Days()
	assert.False(t, ok)
	assert.Equal(t, ">30", beyond.String())
	assert.NotEqual(t, exact, beyond)

	assert.True(t, exact.Less(beyond))
	assert.False(t, beyond.Less(exact))
	assert.True(t, ExactCoverage(2).Less(ExactCoverage(3)))
}

func TestCoverageResultJSON(t *testing.T) {
	date := NewDate(2024, 5, 3)
	remaining := 7000.0
	results := []CoverageResult{
		{Status: CoverageCritical, CoverageDays: ExactCoverage(2), ExhaustionDate: &date},
		{Status: CoverageSufficient, CoverageDays: BeyondHorizon(30), RemainingUnitsAtHorizonEnd: &remaining},
	}

	for _, in := range results {
		b, err := json.Marshal(in)
		require.NoError(t, err)

		var out CoverageResult
		require.NoError(t, json.Unmarshal(b, &out))
		assert.Equal(t, in.Status, out.Status)
		assert.Equal(t, in.CoverageDays, out.CoverageDays)
		if in.ExhaustionDate != nil {
			require.NotNil(t, out.ExhaustionDate)
			assert.Equal(t, in.ExhaustionDate.String(), out.ExhaustionDate.String())
		} else {
			assert.Nil(t, out.ExhaustionDate)
		}
	}
}

func TestCoverageDaysUnmarshalRejectsUnknownKind(t *testing.T) {
	var c CoverageDays
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"forever"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"exact"}`), &c))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{InvalidInputf("price %v", -1), KindInvalidInput},
		{MalformedForecastf("gap"), KindMalformedForecast},
		{NotFoundf("item %s", "X"), KindNotFound},
		{fmt.Errorf("predict: %w", ErrUpstreamForecast), KindUpstreamForecast},
		{fmt.Errorf("predict: %w: %w", ErrUpstreamForecast, context.DeadlineExceeded), KindTimeout},
		{context.Canceled, KindCancelled},
		{fmt.Errorf("boom"), KindInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestRankingReportSummary(t *testing.T) {
	r := &RankingReport{
		Entries: []ReorderPriorityEntry{
			{ItemID: "A", Priority: PriorityHigh, ExpectedRevenue: 100.25},
			{ItemID: "B", Priority: PriorityHigh, ExpectedRevenue: 50},
			{ItemID: "C", Priority: PriorityMedium, ExpectedRevenue: 999},
			{ItemID: "D", Priority: PriorityLow},
		},
		Skipped: []SkippedItem{{ItemID: "E", Kind: KindUpstreamForecast}},
	}

	s := r.Summary()
	assert.Equal(t, 4, s.Analyzed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 2, s.High)
	assert.Equal(t, 1, s.Medium)
	assert.Equal(t, 1, s.Low)
	assert.InDelta(t, 150.25, s.RevenueAtRisk, 1e-9)
	assert.Equal(t, 1, s.SkippedByKind[KindUpstreamForecast])

	high := r.ByPriority(PriorityHigh)
	require.Len(t, high, 2)
	assert.Equal(t, "A", high[0].ItemID)
}

func TestParseCoverageStatus(t *testing.T) {
	s, ok := ParseCoverageStatus(" Critical ")
	assert.True(t, ok)
	assert.Equal(t, CoverageCritical, s)
	assert.Equal(t, "Critical", s.Label())

	_, ok = ParseCoverageStatus("drowning")
	assert.False(t, ok)
}
