package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPMetrics contains all HTTP-related metrics
type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
}

// DatabaseMetrics contains all database-related metrics
type DatabaseMetrics struct {
	QueriesTotal    *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
	ConnectionsOpen prometheus.Gauge
	ConnectionsIdle prometheus.Gauge
}

// OrderSyncMetrics contains all RMS<->storefront order ingestion metrics
type OrderSyncMetrics struct {
	PollCycles          *prometheus.CounterVec
	PollDuration        prometheus.Histogram
	OrdersSynced        *prometheus.CounterVec
	SyncErrorsTotal     *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec
	RetryAttemptsTotal  *prometheus.CounterVec
}

var (
	// HTTP is the singleton instance for HTTP metrics
	HTTP *HTTPMetrics

	// Database is the singleton instance for database metrics
	Database *DatabaseMetrics

	// OrderSync is the singleton instance for order sync metrics
	OrderSync *OrderSyncMetrics
)

// Init initializes all metrics
func Init(namespace string) {
	HTTP = initHTTPMetrics(namespace)
	Database = initDatabaseMetrics(namespace)
	OrderSync = initOrderSyncMetrics(namespace)
}

func initOrderSyncMetrics(namespace string) *OrderSyncMetrics {
	return &OrderSyncMetrics{
		PollCycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_sync_poll_cycles_total",
				Help:      "Total number of order sync poll cycles, by outcome status",
			},
			[]string{"status"},
		),
		PollDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_sync_poll_duration_seconds",
			Help:      "Duration of one order sync poll cycle in seconds",
			Buckets:   []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		OrdersSynced: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_sync_orders_synced_total",
				Help:      "Total number of storefront orders synced into RMS, by action",
			},
			[]string{"action"},
		),
		SyncErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_sync_errors_total",
				Help:      "Total number of order sync errors, by error code",
			},
			[]string{"code"},
		),
		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "order_sync_circuit_breaker_state",
				Help:      "Circuit breaker state by name (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		RetryAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "order_sync_retry_attempts_total",
				Help:      "Total number of retry attempts, by named policy",
			},
			[]string{"policy"},
		),
	}
}

func initHTTPMetrics(namespace string) *HTTPMetrics {
	return &HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_size_bytes",
				Help:      "HTTP request size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 7), // 100 bytes to 100MB
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "HTTP response size in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 7),
			},
			[]string{"method", "path"},
		),
		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_errors_total",
				Help:      "Total number of HTTP errors",
			},
			[]string{"method", "path", "error_type"},
		),
	}
}

func initDatabaseMetrics(namespace string) *DatabaseMetrics {
	return &DatabaseMetrics{
		QueriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "database_queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "database_query_duration_seconds",
				Help:      "Database query latency in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "table"},
		),
		ConnectionsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_open",
			Help:      "Number of open database connections",
		}),
		ConnectionsIdle: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_idle",
			Help:      "Number of idle database connections",
		}),
	}
}

// RecordHTTPRequest records an HTTP request with all its metrics
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int64) {
	if HTTP == nil {
		return
	}

	HTTP.RequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	HTTP.RequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	HTTP.ResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// RecordHTTPError records an HTTP error
func RecordHTTPError(method, path, errorType string) {
	if HTTP == nil {
		return
	}
	HTTP.ErrorsTotal.WithLabelValues(method, path, errorType).Inc()
}

// RecordDatabaseQuery records a database query
func RecordDatabaseQuery(operation, table string, duration time.Duration) {
	if Database == nil {
		return
	}
	Database.QueriesTotal.WithLabelValues(operation, table).Inc()
	Database.QueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// UpdateDatabaseConnections updates database connection metrics
func UpdateDatabaseConnections(open, idle int) {
	if Database == nil {
		return
	}
	Database.ConnectionsOpen.Set(float64(open))
	Database.ConnectionsIdle.Set(float64(idle))
}

// RecordOrderSyncCycle records one completed poll cycle
func RecordOrderSyncCycle(status string, duration time.Duration) {
	if OrderSync == nil {
		return
	}
	OrderSync.PollCycles.WithLabelValues(status).Inc()
	OrderSync.PollDuration.Observe(duration.Seconds())
}

// RecordOrderSynced records one order written to RMS, by action
// ("created", "updated", "skipped")
func RecordOrderSynced(action string) {
	if OrderSync == nil {
		return
	}
	OrderSync.OrdersSynced.WithLabelValues(action).Inc()
}

// RecordOrderSyncError records one classified sync failure
func RecordOrderSyncError(code string) {
	if OrderSync == nil {
		return
	}
	OrderSync.SyncErrorsTotal.WithLabelValues(code).Inc()
}

// SetCircuitBreakerState reports a named breaker's current state
func SetCircuitBreakerState(name string, state int) {
	if OrderSync == nil {
		return
	}
	OrderSync.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordRetryAttempt records one retry attempt under a named policy
func RecordRetryAttempt(policy string) {
	if OrderSync == nil {
		return
	}
	OrderSync.RetryAttemptsTotal.WithLabelValues(policy).Inc()
}