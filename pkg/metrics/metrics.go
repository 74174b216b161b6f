package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection.
type Collector struct {
	// API metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Validation metrics
	ValidationDuration  *prometheus.HistogramVec
	ValidatedRowsTotal  *prometheus.CounterVec
	RowDefectsTotal     *prometheus.CounterVec
	ValidationBatchSize prometheus.Histogram

	// Correlation / enrichment metrics
	CorrelationFetchDuration prometheus.Histogram
	CorrelationMissesTotal   prometheus.Counter
	EnrichedRowsTotal        prometheus.Counter

	// Submission metrics
	SubmittedRowsTotal  *prometheus.CounterVec
	SubmissionBatchSize prometheus.Histogram

	// Database metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec

	// Upload metrics
	UploadedFilesTotal *prometheus.CounterVec
	UploadFileBytes    prometheus.Histogram
}

// NewCollector creates a new metrics collector registered on the default
// registry.
func NewCollector(namespace string) *Collector {
	return NewCollectorWith(namespace, prometheus.DefaultRegisterer)
}

// NewCollectorWith creates a collector on an explicit registerer. Tests
// pass a fresh prometheus.NewRegistry so packages can build collectors
// without colliding on the process-global registry.
func NewCollectorWith(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		APIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0, 5.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		ValidationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Batch validation duration in seconds by stream",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"stream"}, // "weather", "meter"
		),

		ValidatedRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validated_rows_total",
				Help:      "Total rows validated by stream and verdict",
			},
			[]string{"stream", "verdict"}, // "clean", "defective"
		),

		RowDefectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "row_defects_total",
				Help:      "Total field-level defects found by stream",
			},
			[]string{"stream"},
		),

		ValidationBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_batch_size",
				Help:      "Number of rows per validated batch",
				Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 10000},
			},
		),

		CorrelationFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "correlation_fetch_duration_seconds",
				Help:      "Duration of the per-batch weather correlation fetch",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
		),

		CorrelationMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "correlation_misses_total",
				Help:      "Meter rows processed with no weather coverage for their date",
			},
		),

		EnrichedRowsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "enriched_rows_total",
				Help:      "Meter rows enriched with derived operating-time fields and totals",
			},
		),

		SubmittedRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submitted_rows_total",
				Help:      "Total rows persisted by stream",
			},
			[]string{"stream"},
		),

		SubmissionBatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "submission_batch_size",
				Help:      "Number of rows per submitted batch",
				Buckets:   []float64{1, 10, 50, 100, 500, 1000, 5000},
			},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),

		UploadedFilesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "uploaded_files_total",
				Help:      "Spreadsheet files received by stream and outcome",
			},
			[]string{"stream", "outcome"}, // "parsed", "rejected"
		),

		UploadFileBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upload_file_bytes",
				Help:      "Size of uploaded spreadsheet files in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
			},
		),
	}
}

// Timer provides timing functionality for operations.
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer.
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation.
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments the API request counter.
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments the API error counter.
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordRowVerdict counts one validated row by outcome.
func (c *Collector) RecordRowVerdict(stream string, clean bool) {
	verdict := "clean"
	if !clean {
		verdict = "defective"
	}
	c.ValidatedRowsTotal.WithLabelValues(stream, verdict).Inc()
}

// RecordDefects counts field-level defects for a stream.
func (c *Collector) RecordDefects(stream string, n int) {
	if n > 0 {
		c.RowDefectsTotal.WithLabelValues(stream).Add(float64(n))
	}
}

// RecordDBError increments the database error counter.
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics.
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
