package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the scholar discovery service.
// Metrics are organized by subsystem: pipeline, searches, caches, background
// tasks, and feedback. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// PipelineRequests counts discovery pipeline executions by outcome (success, failure).
	PipelineRequests *prometheus.CounterVec

	// PipelineDuration observes end-to-end pipeline duration in seconds.
	PipelineDuration prometheus.Histogram

	// StageDuration observes per-stage duration in seconds, labeled by stage.
	StageDuration *prometheus.HistogramVec

	// QueriesGenerated counts search queries generated, labeled by query type.
	QueriesGenerated *prometheus.CounterVec

	// SearchesStarted counts external index searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts external index searches that succeeded.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts failed external index searches, labeled by error type.
	SearchesFailed *prometheus.CounterVec

	// SearchDuration observes external search duration in seconds.
	SearchDuration prometheus.Histogram

	// ResultsPerSearch observes the distribution of results returned per search.
	ResultsPerSearch prometheus.Histogram

	// RateLimitRejections counts searches rejected by the sliding-window limiter,
	// labeled by window (minute, hour).
	RateLimitRejections *prometheus.CounterVec

	// CacheHits counts cache hits, labeled by cache (search, content, query).
	CacheHits *prometheus.CounterVec

	// CacheMisses counts cache misses, labeled by cache.
	CacheMisses *prometheus.CounterVec

	// CacheEvictions counts cache evictions, labeled by cache and reason
	// (expired, exhausted, lru).
	CacheEvictions *prometheus.CounterVec

	// TasksEnqueued counts background tasks enqueued, labeled by type and priority.
	TasksEnqueued *prometheus.CounterVec

	// TasksCompleted counts background tasks that completed, labeled by type.
	TasksCompleted *prometheus.CounterVec

	// TasksFailed counts background tasks that exhausted retries, labeled by type.
	TasksFailed *prometheus.CounterVec

	// TasksRetried counts background task retries, labeled by type.
	TasksRetried *prometheus.CounterVec

	// DuplicatesMerged counts duplicate results merged away.
	DuplicatesMerged prometheus.Counter

	// FeedbackRecorded counts feedback events recorded, labeled by action.
	FeedbackRecorded *prometheus.CounterVec

	// FeedbackRankingApplied counts searches where feedback re-ranking was applied.
	FeedbackRankingApplied prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PipelineRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_requests_total",
			Help:      "Total number of discovery pipeline executions by outcome",
		}, []string{"outcome"}),
		PipelineDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "End-to-end duration of discovery pipeline executions in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),

		QueriesGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_generated_total",
			Help:      "Total number of search queries generated by query type",
		}, []string{"query_type"}),

		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of external index searches started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of external index searches completed successfully",
		}),
		SearchesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of failed external index searches by error type",
		}, []string{"error_type"}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of external index searches in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		ResultsPerSearch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "results_per_search",
			Help:      "Distribution of result counts returned per search",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}),
		RateLimitRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of searches rejected by the sliding-window rate limiter",
		}, []string{"window"}),

		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits by cache",
		}, []string{"cache"}),
		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses by cache",
		}, []string{"cache"}),
		CacheEvictions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Total number of cache evictions by cache and reason",
		}, []string{"cache", "reason"}),

		TasksEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_enqueued_total",
			Help:      "Total number of background tasks enqueued by type and priority",
		}, []string{"type", "priority"}),
		TasksCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total number of background tasks completed by type",
		}, []string{"type"}),
		TasksFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_failed_total",
			Help:      "Total number of background tasks that exhausted retries by type",
		}, []string{"type"}),
		TasksRetried: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_retried_total",
			Help:      "Total number of background task retries by type",
		}, []string{"type"}),

		DuplicatesMerged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_merged_total",
			Help:      "Total number of duplicate results merged into a primary",
		}),

		FeedbackRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_recorded_total",
			Help:      "Total number of feedback events recorded by action",
		}, []string{"action"}),
		FeedbackRankingApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_ranking_applied_total",
			Help:      "Total number of searches where feedback-based re-ranking was applied",
		}),
	}
}

// RecordPipelineSuccess records a successful pipeline execution.
func (m *Metrics) RecordPipelineSuccess(durationSeconds float64) {
	m.PipelineRequests.WithLabelValues("success").Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordPipelineFailure records a failed pipeline execution.
func (m *Metrics) RecordPipelineFailure(durationSeconds float64) {
	m.PipelineRequests.WithLabelValues("failure").Inc()
	m.PipelineDuration.Observe(durationSeconds)
}

// RecordStage records the duration of one pipeline stage.
func (m *Metrics) RecordStage(stage string, durationSeconds float64) {
	m.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordSearch records one completed external search with its result count.
func (m *Metrics) RecordSearch(durationSeconds float64, resultCount int) {
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.ResultsPerSearch.Observe(float64(resultCount))
}
