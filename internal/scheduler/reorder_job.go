package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/report"
)

// RankingSource produces a catalog-wide ranking.
type RankingSource interface {
	RankAll(ctx context.Context) (*domain.RankingReport, error)
}

// ReportPublisher stores a finished ranking.
type ReportPublisher interface {
	Publish(ctx context.Context, runID string, r *domain.RankingReport) (report.Published, error)
}

// ReportHistory finds the newest published ranking.
type ReportHistory interface {
	Latest(ctx context.Context) (report.Document, report.Published, bool, error)
}

// RunResult describes the most recent ranking run.
type RunResult struct {
	RunID      string                `json:"run_id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Summary    domain.RankingSummary `json:"summary"`
	Published  *report.Published     `json:"published,omitempty"`
	Error      string                `json:"error,omitempty"`
	// Restored marks a result read back from published reports rather than run by this process.
	Restored bool `json:"restored,omitempty"`
}

// ReorderJob ranks the whole catalog and publishes the report.
type ReorderJob struct {
	source    RankingSource
	publisher ReportPublisher
	timeout   time.Duration
	newID     func() string

	mu   sync.RWMutex
	last *RunResult
}

// NewReorderJob creates the job. publisher may be nil, in which case reports
// are only kept in memory. A zero timeout means no deadline.
func NewReorderJob(source RankingSource, publisher ReportPublisher, timeout time.Duration) *ReorderJob {
	return &ReorderJob{
		source:    source,
		publisher: publisher,
		timeout:   timeout,
		newID:     uuid.NewString,
	}
}

func (j *ReorderJob) Name() string { return "reorder_ranking" }

// Restore seeds LastRun from the newest published report when this process has not run yet.
// It reports whether a result was restored.
func (j *ReorderJob) Restore(ctx context.Context, history ReportHistory) (bool, error) {
	doc, keys, ok, err := history.Latest(ctx)
	if err != nil {
		return false, fmt.Errorf("restore last ranking: %w", err)
	}
	if !ok {
		return false, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last != nil {
		return false, nil
	}
	j.last = &RunResult{
		RunID:      doc.RunID,
		StartedAt:  doc.GeneratedAt,
		FinishedAt: doc.GeneratedAt,
		Summary:    doc.Summary,
		Published:  &keys,
		Restored:   true,
	}

	log.Info().
		Str("run_id", doc.RunID).
		Time("generated_at", doc.GeneratedAt).
		Msg("scheduler: restored last reorder ranking")
	return true, nil
}

// Run executes one ranking with a background context.
func (j *ReorderJob) Run() error {
	_, err := j.RunContext(context.Background())
	return err
}

// RunContext executes one ranking and records its result.
func (j *ReorderJob) RunContext(ctx context.Context) (*domain.RankingReport, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	res := RunResult{RunID: j.newID(), StartedAt: time.Now().UTC()}
	rep, err := j.run(ctx, &res)
	res.FinishedAt = time.Now().UTC()
	if err != nil {
		res.Error = err.Error()
	}
	j.mu.Lock()
	j.last = &res
	j.mu.Unlock()

	return rep, err
}

func (j *ReorderJob) run(ctx context.Context, res *RunResult) (*domain.RankingReport, error) {
	rep, err := j.source.RankAll(ctx)
	if rep != nil {
		res.Summary = rep.Summary()
	}
	if err != nil {
		return rep, fmt.Errorf("rank catalog: %w", err)
	}

	log.Info().
		Str("run_id", res.RunID).
		Int("high", res.Summary.High).
		Int("medium", res.Summary.Medium).
		Int("low", res.Summary.Low).
		Int("skipped", res.Summary.Skipped).
		Msg("scheduler: reorder ranking finished")

	if j.publisher == nil {
		return rep, nil
	}
	published, err := j.publisher.Publish(ctx, res.RunID, rep)
	if err != nil {
		return rep, fmt.Errorf("publish ranking %s: %w", res.RunID, err)
	}
	res.Published = &published
	return rep, nil
}

// LastRun returns the most recent run, if any.
func (j *ReorderJob) LastRun() (RunResult, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.last == nil {
		return RunResult{}, false
	}
	return *j.last, true
}
