// Package observability provides Prometheus metrics and structured logging.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Pipeline metrics
	PipelineRunsTotal  *prometheus.CounterVec
	PipelineDuration   *prometheus.HistogramVec
	CooldownRejections prometheus.Counter

	// Stage metrics
	CandidatesDiscovered   prometheus.Counter
	CandidatesAlreadyKnown prometheus.Counter
	TokensInserted         prometheus.Counter
	TokensAutoDeleted      prometheus.Counter
	StatsBatchFailures     prometheus.Counter
	MetadataLookups        *prometheus.CounterVec
	Dispositions           *prometheus.CounterVec

	// Oracle metrics
	OracleCalls   *prometheus.CounterVec
	OracleLatency prometheus.Histogram

	// Upstream HTTP metrics
	UpstreamRequests *prometheus.CounterVec
	UpstreamLatency  *prometheus.HistogramVec
	RateLimitWaits   *prometheus.CounterVec

	// Job queue metrics
	JobsEnqueued  prometheus.Counter
	JobOutcomes   *prometheus.CounterVec
	JobQueueDepth prometheus.Gauge

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "dex_scout"
	}

	return &Metrics{
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by entry point and status",
		}, []string{"entry", "status"}),
		PipelineDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"entry"}),
		CooldownRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "cooldown_rejections_total",
			Help:      "Total number of run requests refused by the cooldown",
		}),

		CandidatesDiscovered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "candidates_total",
			Help:      "Total number of candidates returned by the discovery feed",
		}),
		CandidatesAlreadyKnown: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "already_known_total",
			Help:      "Total number of candidates dropped as already stored",
		}),
		TokensInserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "tokens_inserted_total",
			Help:      "Total number of tokens inserted",
		}),
		TokensAutoDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "venue",
			Name:      "auto_deleted_total",
			Help:      "Total number of tokens rejected by the venue filter",
		}),
		StatsBatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "stats_batch_failures_total",
			Help:      "Total number of failed market-stats batches",
		}),
		MetadataLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "enrichment",
			Name:      "metadata_lookups_total",
			Help:      "Total number of secondary metadata lookups by outcome",
		}, []string{"outcome"}),
		Dispositions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "disposition",
			Name:      "applied_total",
			Help:      "Total number of disposition writes by outcome",
		}, []string{"outcome"}),

		OracleCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "calls_total",
			Help:      "Total number of classification calls by outcome",
		}, []string{"outcome"}),
		OracleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "call_latency_seconds",
			Help:      "Classification call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		UpstreamRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total number of upstream HTTP requests by source and status",
		}, []string{"source", "status"}),
		UpstreamLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "request_latency_seconds",
			Help:      "Upstream HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		RateLimitWaits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "upstream",
			Name:      "rate_limit_waits_total",
			Help:      "Total number of requests delayed by the client-side rate limiter",
		}, []string{"source"}),

		JobsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "enqueued_total",
			Help:      "Total number of jobs enqueued",
		}),
		JobOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "outcomes_total",
			Help:      "Total number of job attempts by kind and status",
		}, []string{"kind", "status"}),
		JobQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "queue_depth",
			Help:      "Number of jobs waiting to run",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a finished pipeline run.
func RecordRun(entry, status string, durationSeconds float64) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(entry, status).Inc()
	DefaultMetrics.PipelineDuration.WithLabelValues(entry).Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordCooldownRejection increments the cooldown rejection counter.
func RecordCooldownRejection() {
	DefaultMetrics.CooldownRejections.Inc()
}

// RecordDiscovery records discovery and dedup counts for one run.
func RecordDiscovery(discovered, alreadyKnown int) {
	DefaultMetrics.CandidatesDiscovered.Add(float64(discovered))
	DefaultMetrics.CandidatesAlreadyKnown.Add(float64(alreadyKnown))
}

// RecordInserted records tokens written and tokens auto-rejected for one run.
func RecordInserted(inserted, autoDeleted int) {
	DefaultMetrics.TokensInserted.Add(float64(inserted))
	DefaultMetrics.TokensAutoDeleted.Add(float64(autoDeleted))
}

// RecordStatsBatchFailure increments the failed stats batch counter.
func RecordStatsBatchFailure() {
	DefaultMetrics.StatsBatchFailures.Inc()
}

// RecordMetadataLookup records a secondary metadata lookup ("hit", "miss", "error").
func RecordMetadataLookup(outcome string) {
	DefaultMetrics.MetadataLookups.WithLabelValues(outcome).Inc()
}

// RecordDisposition records a disposition write ("kept", "deleted", "skipped", "error").
func RecordDisposition(outcome string) {
	DefaultMetrics.Dispositions.WithLabelValues(outcome).Inc()
}

// RecordOracleCall records a classification call and its latency.
func RecordOracleCall(outcome string, seconds float64) {
	DefaultMetrics.OracleCalls.WithLabelValues(outcome).Inc()
	DefaultMetrics.OracleLatency.Observe(seconds)
}

// RecordUpstreamRequest records an upstream HTTP request.
func RecordUpstreamRequest(source, status string, seconds float64) {
	DefaultMetrics.UpstreamRequests.WithLabelValues(source, status).Inc()
	DefaultMetrics.UpstreamLatency.WithLabelValues(source).Observe(seconds)
}

// RecordRateLimitWait increments the limiter wait counter for a source.
func RecordRateLimitWait(source string) {
	DefaultMetrics.RateLimitWaits.WithLabelValues(source).Inc()
}

// RecordJobEnqueued increments the enqueued counter and sets the queue depth.
func RecordJobEnqueued(depth int) {
	DefaultMetrics.JobsEnqueued.Inc()
	DefaultMetrics.JobQueueDepth.Set(float64(depth))
}

// RecordJobOutcome records one job attempt and the remaining queue depth.
func RecordJobOutcome(kind, status string, depth int) {
	DefaultMetrics.JobOutcomes.WithLabelValues(kind, status).Inc()
	DefaultMetrics.JobQueueDepth.Set(float64(depth))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
