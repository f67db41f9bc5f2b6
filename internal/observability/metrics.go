// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	PagesFetched      *prometheus.CounterVec
	PageFetchLatency  *prometheus.HistogramVec
	EventsIngested    *prometheus.CounterVec
	StallAdvances     prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	StreamFailures    *prometheus.CounterVec

	// Aggregation metrics
	BucketsEmitted    prometheus.Counter
	LedgerClamps      prometheus.Counter
	ZeroPriceTrades   prometheus.Counter
	AlignmentWarnings prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "uniswap_v3_data"
	}

	return &Metrics{
		// Ingestion metrics
		PagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "pages_fetched_total",
			Help:      "Total number of index pages fetched by stream",
		}, []string{"stream"}),
		PageFetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "page_fetch_latency_seconds",
			Help:      "Index page fetch latency in seconds, retries included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stream"}),
		EventsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_ingested_total",
			Help:      "Total number of events ingested by kind",
		}, []string{"kind"}),
		StallAdvances: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "stall_advances_total",
			Help:      "Total number of forced cursor advances past same-second bursts",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of page-overlap duplicates dropped",
		}),
		StreamFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "stream_failures_total",
			Help:      "Total number of streams aborted with partial data",
		}, []string{"stream"}),

		// Aggregation metrics
		BucketsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "buckets_emitted_total",
			Help:      "Total number of non-empty buckets emitted",
		}),
		LedgerClamps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "ledger_clamps_total",
			Help:      "Total number of liquidity underflow clamps",
		}),
		ZeroPriceTrades: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "zero_price_trades_total",
			Help:      "Total number of trades whose sqrt price decoded to zero",
		}),
		AlignmentWarnings: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregation",
			Name:      "alignment_warnings_total",
			Help:      "Total number of bucket timestamp mismatches between series",
		}),

		// Database metrics
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

		// Health metrics
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "runs_total",
			Help:      "Total number of runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "run_duration_seconds",
			Help:      "End-to-end run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of the last successful run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPageFetch records one fetched page and its latency.
func RecordPageFetch(stream string, seconds float64) {
	DefaultMetrics.PagesFetched.WithLabelValues(stream).Inc()
	DefaultMetrics.PageFetchLatency.WithLabelValues(stream).Observe(seconds)
}

// RecordEventsIngested adds to the ingested event counter for a kind.
func RecordEventsIngested(kind string, n int) {
	DefaultMetrics.EventsIngested.WithLabelValues(kind).Add(float64(n))
}

// RecordStallAdvance increments the forced cursor advance counter.
func RecordStallAdvance() {
	DefaultMetrics.StallAdvances.Inc()
}

// RecordDuplicatesSkipped adds to the dropped duplicate counter.
func RecordDuplicatesSkipped(n int) {
	DefaultMetrics.DuplicatesSkipped.Add(float64(n))
}

// RecordStreamFailure increments the partial-stream counter.
func RecordStreamFailure(stream string) {
	DefaultMetrics.StreamFailures.WithLabelValues(stream).Inc()
}

// RecordBucketsEmitted adds to the emitted bucket counter.
func RecordBucketsEmitted(n int) {
	DefaultMetrics.BucketsEmitted.Add(float64(n))
}

// RecordLedgerClamps adds to the underflow clamp counter.
func RecordLedgerClamps(n int) {
	DefaultMetrics.LedgerClamps.Add(float64(n))
}

// RecordZeroPriceTrades adds to the zero-price trade counter.
func RecordZeroPriceTrades(n int) {
	DefaultMetrics.ZeroPriceTrades.Add(float64(n))
}

// RecordAlignmentWarnings adds to the series mismatch counter.
func RecordAlignmentWarnings(n int) {
	DefaultMetrics.AlignmentWarnings.Add(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordRun records one end-to-end run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
	if status == "success" {
		DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	}
}
