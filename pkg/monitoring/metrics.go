package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code", "service"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	// Database metrics
	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		},
		[]string{"query_type", "service"},
	)

	// Approval workflow metrics
	approvalDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Total number of patient approval decisions",
		},
		[]string{"decision", "status", "service"},
	)

	// Account linking metrics
	linkOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "link_operations_total",
			Help: "Total number of patient account link operations",
		},
		[]string{"operation", "status", "service"},
	)

	// Offline sync metrics
	syncQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_queue_depth",
			Help: "Number of pending writes awaiting synchronization",
		},
		[]string{"service"},
	)

	syncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_runs_total",
			Help: "Total number of offline queue drain attempts",
		},
		[]string{"status", "service"},
	)

	// Notification surface metrics
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of user-facing notifications emitted",
		},
		[]string{"kind", "service"},
	)

	// System metrics
	systemErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "system_errors_total",
			Help: "Total number of system errors",
		},
		[]string{"error_type", "service", "component"},
	)
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	serviceName string
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(serviceName string) *MetricsCollector {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		dbQueryDuration,
		approvalDecisionsTotal,
		linkOperationsTotal,
		syncQueueDepth,
		syncRunsTotal,
		notificationsTotal,
		systemErrors,
	)

	return &MetricsCollector{
		serviceName: serviceName,
	}
}

// RecordHTTPRequest records HTTP request metrics
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, statusCode, m.serviceName).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, m.serviceName).Observe(duration.Seconds())
}

// RecordDBQuery records database query metrics
func (m *MetricsCollector) RecordDBQuery(queryType string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(queryType, m.serviceName).Observe(duration.Seconds())
}

// RecordApprovalDecision records an approve/reject outcome
func (m *MetricsCollector) RecordApprovalDecision(decision string, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	approvalDecisionsTotal.WithLabelValues(decision, status, m.serviceName).Inc()
}

// RecordLinkOperation records a link/unlink outcome
func (m *MetricsCollector) RecordLinkOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	linkOperationsTotal.WithLabelValues(operation, status, m.serviceName).Inc()
}

// SetSyncQueueDepth records the current pending write count
func (m *MetricsCollector) SetSyncQueueDepth(depth int) {
	syncQueueDepth.WithLabelValues(m.serviceName).Set(float64(depth))
}

// RecordSyncRun records the outcome of a queue drain attempt
func (m *MetricsCollector) RecordSyncRun(success bool) {
	status := "success"
	if !success {
		status = "failed"
	}
	syncRunsTotal.WithLabelValues(status, m.serviceName).Inc()
}

// RecordNotification records an emitted notification
func (m *MetricsCollector) RecordNotification(kind string) {
	notificationsTotal.WithLabelValues(kind, m.serviceName).Inc()
}

// RecordSystemError records system error metrics
func (m *MetricsCollector) RecordSystemError(errorType, component string) {
	systemErrors.WithLabelValues(errorType, m.serviceName, component).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware creates middleware for HTTP request metrics
func (m *MetricsCollector) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		statusCode := strconv.Itoa(wrapper.statusCode)

		m.RecordHTTPRequest(r.Method, r.URL.Path, statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
