// Package metrics holds the Prometheus instruments for the aggregation
// pipeline. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "aggregator"

// Metrics groups the pipeline counters and histograms.
type Metrics struct {
	SourceJobsFetched *prometheus.CounterVec
	SourceFailures    *prometheus.CounterVec
	ItemsSkipped      *prometheus.CounterVec
	JobsAggregated    prometheus.Counter
	JobsInserted      prometheus.Counter
	PipelineRuns      *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	JobsDeleted       prometheus.Counter
}

// New creates and registers the metrics on reg (DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SourceJobsFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "jobs_fetched_total",
			Help:      "Jobs normalised by each source adapter",
		}, []string{"source"}),
		SourceFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "failures_total",
			Help:      "Source-level fetch failures",
		}, []string{"source"}),
		ItemsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "items_skipped_total",
			Help:      "Upstream items dropped during normalisation",
		}, []string{"source"}),
		JobsAggregated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_aggregated_total",
			Help:      "Unique jobs returned by the aggregator",
		}),
		JobsInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "jobs_inserted_total",
			Help:      "Jobs newly inserted into the store",
		}),
		PipelineRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Pipeline runs by final status",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Wall time of a pipeline run",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		JobsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "jobs_deleted_total",
			Help:      "Jobs removed by the retention job",
		}),
	}
}

func (m *Metrics) SourceFetched(source string, n int) {
	if m == nil {
		return
	}
	m.SourceJobsFetched.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) SourceFailed(source string) {
	if m == nil {
		return
	}
	m.SourceFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) ItemSkipped(source string) {
	if m == nil {
		return
	}
	m.ItemsSkipped.WithLabelValues(source).Inc()
}

func (m *Metrics) Aggregated(n int) {
	if m == nil {
		return
	}
	m.JobsAggregated.Add(float64(n))
}

func (m *Metrics) Inserted(n int) {
	if m == nil {
		return
	}
	m.JobsInserted.Add(float64(n))
}

func (m *Metrics) RunFinished(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) Deleted(n int64) {
	if m == nil {
		return
	}
	m.JobsDeleted.Add(float64(n))
}
