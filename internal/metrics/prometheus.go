package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andresuchdata/backroom/internal/domain"
)

// Recorder implements ranker.Recorder using Prometheus.
type Recorder struct {
	itemsAnalyzed *prometheus.CounterVec
	itemsSkipped  *prometheus.CounterVec
	itemLatency   prometheus.Histogram
	runLatency    prometheus.Histogram
	revenueAtRisk prometheus.Gauge
	lastRun       *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New registers the ranking metrics on reg. A nil reg uses a fresh registry.
func New(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Recorder{
		itemsAnalyzed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backroom_items_analyzed_total",
				Help: "Items analyzed by the reorder ranking, by priority bucket",
			},
			[]string{"priority"},
		),
		itemsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backroom_items_skipped_total",
				Help: "Items skipped by the reorder ranking, by failure kind",
			},
			[]string{"kind"},
		),
		itemLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backroom_item_analysis_duration_seconds",
				Help:    "Duration of a single item analysis in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		runLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backroom_ranking_duration_seconds",
				Help:    "Duration of a full ranking run in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		revenueAtRisk: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backroom_revenue_at_risk",
				Help: "Expected revenue of high-priority items in the last ranking",
			},
		),
		lastRun: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "backroom_last_ranking_items",
				Help: "Item counts of the last ranking run, by outcome",
			},
			[]string{"outcome"},
		),
		gatherer: reg,
	}
}

// ItemAnalyzed records a ranked item.
func (r *Recorder) ItemAnalyzed(priority domain.Priority, elapsed time.Duration) {
	r.itemsAnalyzed.WithLabelValues(string(priority)).Inc()
	r.itemLatency.Observe(elapsed.Seconds())
}

// ItemSkipped records an item that could not be analyzed.
func (r *Recorder) ItemSkipped(kind domain.ErrorKind) {
	r.itemsSkipped.WithLabelValues(string(kind)).Inc()
}

// RunCompleted records the headline numbers of a finished run.
func (r *Recorder) RunCompleted(summary domain.RankingSummary, elapsed time.Duration) {
	r.runLatency.Observe(elapsed.Seconds())
	r.revenueAtRisk.Set(summary.RevenueAtRisk)
	r.lastRun.WithLabelValues(string(domain.PriorityHigh)).Set(float64(summary.High))
	r.lastRun.WithLabelValues(string(domain.PriorityMedium)).Set(float64(summary.Medium))
	r.lastRun.WithLabelValues(string(domain.PriorityLow)).Set(float64(summary.Low))
	r.lastRun.WithLabelValues("skipped").Set(float64(summary.Skipped))
}

// Handler exposes the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
