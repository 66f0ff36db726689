package ranker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/backroom/internal/domain"
	"github.com/andresuchdata/backroom/internal/engine"
)

// Subject is everything needed to analyze one item.
type Subject struct {
	Profile  domain.ItemProfile
	Snapshot domain.InventorySnapshot
	Forecast domain.Forecast
}

// SubjectLoader fetches the profile, stock and forecast of an item. It is the
// blocking part of a ranking (store reads and model fitting).
type SubjectLoader interface {
	LoadSubject(ctx context.Context, itemID string) (Subject, error)
}

// Recorder observes ranking progress.
type Recorder interface {
	ItemAnalyzed(priority domain.Priority, elapsed time.Duration)
	ItemSkipped(kind domain.ErrorKind)
	RunCompleted(summary domain.RankingSummary, elapsed time.Duration)
}

type noopRecorder struct{}

func (noopRecorder) ItemAnalyzed(domain.Priority, time.Duration)       {}
func (noopRecorder) ItemSkipped(domain.ErrorKind)                      {}
func (noopRecorder) RunCompleted(domain.RankingSummary, time.Duration) {}

// Ranker analyzes many items with bounded concurrency and orders them by urgency.
type Ranker struct {
	composer *engine.Composer
	cfg      Config
	recorder Recorder
}

// New creates a ranker. Unset config fields take their defaults.
func New(composer *engine.Composer, cfg Config) (*Ranker, error) {
	cfg, err := NewConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Ranker{
		composer: composer,
		cfg:      cfg,
		recorder: noopRecorder{},
	}, nil
}

// WithRecorder sets the progress recorder.
func (r *Ranker) WithRecorder(rec Recorder) *Ranker {
	if rec == nil {
		rec = noopRecorder{}
	}
	r.recorder = rec
	return r
}

// Config returns the effective configuration.
func (r *Ranker) Config() Config { return r.cfg }

type outcome struct {
	entry   *domain.ReorderPriorityEntry
	skipped *domain.SkippedItem
}

// Rank loads and analyzes every item. Per-item failures are recorded as skipped
// entries. When ctx is cancelled no further items are started; the partial report
// is returned together with ctx.Err().
func (r *Ranker) Rank(ctx context.Context, itemIDs []string, loader SubjectLoader) (*domain.RankingReport, error) {
	started := time.Now()
	ids := dedupe(itemIDs)
	results := make([]outcome, len(ids))

	workerCount := r.cfg.Workers
	if workerCount > len(ids) {
		workerCount = len(ids)
	}

	jobChan := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobChan {
				results[i] = r.analyze(ctx, ids[i], loader)
			}
		}()
	}

	next := 0
enqueue:
	for ; next < len(ids); next++ {
		select {
		case <-ctx.Done():
			break enqueue
		case jobChan <- next:
		}
	}
	close(jobChan)
	wg.Wait()

	for i := next; i < len(ids); i++ {
		results[i] = r.skip(ids[i], domain.KindCancelled, "ranking cancelled before analysis started")
	}

	report := assemble(results)
	summary := report.Summary()
	r.recorder.RunCompleted(summary, time.Since(started))

	log.Info().
		Int("analyzed", summary.Analyzed).
		Int("skipped", summary.Skipped).
		Int("high", summary.High).
		Dur("elapsed", time.Since(started)).
		Msg("ranker: run completed")

	return report, ctx.Err()
}

// RankSubjects ranks subjects that are already in memory.
func (r *Ranker) RankSubjects(ctx context.Context, subjects []Subject) (*domain.RankingReport, error) {
	loader := make(staticLoader, len(subjects))
	ids := make([]string, 0, len(subjects))
	for _, s := range subjects {
		loader[s.Profile.ItemID] = s
		ids = append(ids, s.Profile.ItemID)
	}
	return r.Rank(ctx, ids, loader)
}

func (r *Ranker) analyze(ctx context.Context, itemID string, loader SubjectLoader) outcome {
	if err := ctx.Err(); err != nil {
		return r.skip(itemID, domain.KindOf(err), "ranking cancelled before analysis started")
	}

	started := time.Now()
	itemCtx, cancel := context.WithTimeout(ctx, r.cfg.ItemTimeout)
	defer cancel()

	subject, err := load(itemCtx, loader, itemID)
	if err != nil {
		return r.fail(itemID, err)
	}

	insight, err := r.composer.Compose(subject.Profile, subject.Snapshot, subject.Forecast)
	if err != nil {
		return r.fail(itemID, err)
	}

	entry := r.cfg.Weights.Entry(insight, r.composer.Policy().MarginFloor())
	r.recorder.ItemAnalyzed(entry.Priority, time.Since(started))

	log.Debug().
		Str("item_id", itemID).
		Int("score", entry.UrgencyScore).
		Str("coverage", entry.CoverageDays.String()).
		Msg("ranker: item analyzed")

	return outcome{entry: &entry}
}

// load runs the loader but stops waiting once ctx is done, so a loader that
// ignores its context cannot stall a worker past the item timeout.
func load(ctx context.Context, loader SubjectLoader, itemID string) (Subject, error) {
	type result struct {
		subject Subject
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := loader.LoadSubject(ctx, itemID)
		ch <- result{subject: s, err: err}
	}()

	select {
	case res := <-ch:
		return res.subject, res.err
	case <-ctx.Done():
		return Subject{}, fmt.Errorf("load %s: %w", itemID, ctx.Err())
	}
}

func (r *Ranker) fail(itemID string, err error) outcome {
	kind := domain.KindOf(err)
	log.Warn().Err(err).Str("item_id", itemID).Str("kind", string(kind)).Msg("ranker: item skipped")
	return r.skip(itemID, kind, err.Error())
}

func (r *Ranker) skip(itemID string, kind domain.ErrorKind, reason string) outcome {
	r.recorder.ItemSkipped(kind)
	return outcome{skipped: &domain.SkippedItem{ItemID: itemID, Kind: kind, Reason: reason}}
}

func assemble(results []outcome) *domain.RankingReport {
	report := &domain.RankingReport{
		Entries: make([]domain.ReorderPriorityEntry, 0, len(results)),
		Skipped: make([]domain.SkippedItem, 0),
	}
	for _, res := range results {
		switch {
		case res.entry != nil:
			report.Entries = append(report.Entries, *res.entry)
		case res.skipped != nil:
			report.Skipped = append(report.Skipped, *res.skipped)
		}
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		a, b := report.Entries[i], report.Entries[j]
		if a.UrgencyScore != b.UrgencyScore {
			return a.UrgencyScore > b.UrgencyScore
		}
		return a.ItemID < b.ItemID
	})
	sort.SliceStable(report.Skipped, func(i, j int) bool {
		return report.Skipped[i].ItemID < report.Skipped[j].ItemID
	})
	return report
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			log.Debug().Str("item_id", id).Msg("ranker: duplicate item ignored")
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type staticLoader map[string]Subject

func (l staticLoader) LoadSubject(_ context.Context, itemID string) (Subject, error) {
	s, ok := l[itemID]
	if !ok {
		return Subject{}, domain.NotFoundf("item %s", itemID)
	}
	return s, nil
}
