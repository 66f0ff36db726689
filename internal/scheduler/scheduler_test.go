package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/report"
)

type fakeSource struct {
	report *domain.RankingReport
	err    error
}

func (f *fakeSource) RankAll(ctx context.Context) (*domain.RankingReport, error) {
	return f.report, f.err
}

type fakePublisher struct {
	runIDs []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, runID string, _ *domain.RankingReport) (report.Published, error) {
	f.runIDs = append(f.runIDs, runID)
	if f.err != nil {
		return report.Published{}, f.err
	}
	return report.Published{CSVKey: runID + ".csv", JSONKey: runID + ".json"}, nil
}

func rankedReport() *domain.RankingReport {
	return &domain.RankingReport{
		Entries: []domain.ReorderPriorityEntry{
			{ItemID: "A", Priority: domain.PriorityHigh, ExpectedRevenue: 100},
			{ItemID: "B", Priority: domain.PriorityLow},
		},
	}
}

func TestReorderJob_PublishesWithRunID(t *testing.T) {
	pub := &fakePublisher{}
	job := NewReorderJob(&fakeSource{report: rankedReport()}, pub, time.Minute)
	job.newID = func() string { return "run-1" }

	_, ok := job.LastRun()
	assert.False(t, ok)

	require.NoError(t, job.Run())

	assert.Equal(t, []string{"run-1"}, pub.runIDs)
	last, ok := job.LastRun()
	require.True(t, ok)
	assert.Equal(t, "run-1", last.RunID)
	assert.Equal(t, 1, last.Summary.High)
	assert.Equal(t, 100.0, last.Summary.RevenueAtRisk)
	require.NotNil(t, last.Published)
	assert.Equal(t, "run-1.json", last.Published.JSONKey)
	assert.Empty(t, last.Error)
}

func TestReorderJob_WithoutPublisher(t *testing.T) {
	job := NewReorderJob(&fakeSource{report: rankedReport()}, nil, 0)
	rep, err := job.RunContext(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.Entries, 2)

	last, _ := job.LastRun()
	assert.Nil(t, last.Published)
}

func TestReorderJob_Failures(t *testing.T) {
	t.Run("ranking error skips publish", func(t *testing.T) {
		pub := &fakePublisher{}
		job := NewReorderJob(&fakeSource{err: errors.New("store down")}, pub, 0)

		err := job.Run()
		require.Error(t, err)
		assert.Empty(t, pub.runIDs)

		last, _ := job.LastRun()
		assert.Contains(t, last.Error, "store down")
	})

	t.Run("partial report is summarised", func(t *testing.T) {
		job := NewReorderJob(&fakeSource{report: rankedReport(), err: context.Canceled}, nil, 0)
		_, err := job.RunContext(context.Background())
		assert.ErrorIs(t, err, context.Canceled)

		last, _ := job.LastRun()
		assert.Equal(t, 2, last.Summary.Analyzed)
	})

	t.Run("publish error", func(t *testing.T) {
		job := NewReorderJob(&fakeSource{report: rankedReport()}, &fakePublisher{err: errors.New("bucket gone")}, 0)
		assert.Error(t, job.Run())
	})
}

type fakeHistory struct {
	doc  report.Document
	keys report.Published
	ok   bool
	err  error
}

func (f *fakeHistory) Latest(context.Context) (report.Document, report.Published, bool, error) {
	return f.doc, f.keys, f.ok, f.err
}

func TestReorderJob_Restore(t *testing.T) {
	generated := time.Date(2024, time.August, 9, 6, 0, 0, 0, time.UTC)
	history := &fakeHistory{
		doc: report.Document{
			RunID:       "run-7",
			GeneratedAt: generated,
			Summary:     domain.RankingSummary{Analyzed: 3, High: 1, Low: 2},
		},
		keys: report.Published{JSONKey: "reorder/2024-08-09/run-7.json"},
		ok:   true,
	}

	t.Run("seeds last run after restart", func(t *testing.T) {
		job := NewReorderJob(&fakeSource{report: rankedReport()}, nil, 0)
		restored, err := job.Restore(context.Background(), history)
		require.NoError(t, err)
		assert.True(t, restored)

		last, ok := job.LastRun()
		require.True(t, ok)
		assert.Equal(t, "run-7", last.RunID)
		assert.True(t, last.Restored)
		assert.Equal(t, generated, last.FinishedAt)
		assert.Equal(t, 1, last.Summary.High)
		require.NotNil(t, last.Published)
		assert.Equal(t, "reorder/2024-08-09/run-7.json", last.Published.JSONKey)
	})

	t.Run("keeps a run made by this process", func(t *testing.T) {
		job := NewReorderJob(&fakeSource{report: rankedReport()}, nil, 0)
		job.newID = func() string { return "fresh" }
		require.NoError(t, job.Run())

		restored, err := job.Restore(context.Background(), history)
		require.NoError(t, err)
		assert.False(t, restored)

		last, _ := job.LastRun()
		assert.Equal(t, "fresh", last.RunID)
		assert.False(t, last.Restored)
	})

	t.Run("nothing published", func(t *testing.T) {
		job := NewReorderJob(&fakeSource{}, nil, 0)
		restored, err := job.Restore(context.Background(), &fakeHistory{})
		require.NoError(t, err)
		assert.False(t, restored)
		_, ok := job.LastRun()
		assert.False(t, ok)
	})

	t.Run("history error", func(t *testing.T) {
		job := NewReorderJob(&fakeSource{}, nil, 0)
		_, err := job.Restore(context.Background(), &fakeHistory{err: errors.New("bucket gone")})
		assert.ErrorContains(t, err, "bucket gone")
	})
}

type countingJob struct{ runs atomic.Int32 }

func (c *countingJob) Run() error {
	c.runs.Add(1)
	return nil
}

func (c *countingJob) Name() string { return "counting" }

func TestScheduler(t *testing.T) {
	s := New(zerolog.Nop())

	assert.Error(t, s.AddJob("not a schedule", &countingJob{}))

	job := &countingJob{}
	require.NoError(t, s.AddJob("@every 1s", job))
	require.NoError(t, s.RunNow(job))
	assert.Equal(t, int32(1), job.runs.Load())

	s.Start()
	s.Stop()
}
