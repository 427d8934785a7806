package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricHTTPRequestsTotal     = "http_requests_total"
	MetricHTTPRequestDuration   = "http_request_duration_seconds"
	MetricHTTPRequestSizeBytes  = "http_request_size_bytes"
	MetricHTTPResponseSizeBytes = "http_response_size_bytes"
	MetricRateLimitDecisions    = "rate_limit_decisions_total"
	MetricRateLimitStoreErrors  = "rate_limit_store_errors_total"
)

// Rate limit decision label values.
const (
	DecisionAllowed = "allowed"
	DecisionBlocked = "blocked"
)

// Metrics holds the collectors of the HTTP middleware. Create it with
// NewMetrics and register it once per registry.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	requestSize  *prometheus.HistogramVec
	responseSize *prometheus.HistogramVec
	decisions    *prometheus.CounterVec
	storeErrors  prometheus.Counter
}

// NewMetrics creates unregistered middleware metrics.
func NewMetrics() *Metrics {
	httpLabels := []string{"method", "path", "status"}
	sizeBuckets := prometheus.ExponentialBuckets(64, 4, 8)
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequestsTotal,
			Help: "HTTP requests served, by method, route and status",
		}, httpLabels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPRequestDuration,
			Help:    "HTTP request latency in seconds, by method, route and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, httpLabels),
		requestSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPRequestSizeBytes,
			Help:    "HTTP request body size in bytes, from Content-Length",
			Buckets: sizeBuckets,
		}, httpLabels),
		responseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPResponseSizeBytes,
			Help:    "HTTP response body size in bytes",
			Buckets: sizeBuckets,
		}, httpLabels),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRateLimitDecisions,
			Help: "Rate limit checks, by route and decision",
		}, []string{"route", "decision"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRateLimitStoreErrors,
			Help: "Rate limit store failures; the request was allowed",
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns every collector of m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests,
		m.duration,
		m.requestSize,
		m.responseSize,
		m.decisions,
		m.storeErrors,
	}
}

// ObserveRequest records one served request under its route pattern.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration, requestBytes, responseBytes int64) {
	labels := prometheus.Labels{"method": method, "path": route, "status": strconv.Itoa(status)}
	m.requests.With(labels).Inc()
	m.duration.With(labels).Observe(elapsed.Seconds())
	m.requestSize.With(labels).Observe(float64(requestBytes))
	m.responseSize.With(labels).Observe(float64(responseBytes))
}

// IncRateLimitDecision counts one rate limit check on route.
func (m *Metrics) IncRateLimitDecision(route string, allowed bool) {
	decision := DecisionBlocked
	if allowed {
		decision = DecisionAllowed
	}
	m.decisions.WithLabelValues(route, decision).Inc()
}

// IncRateLimitStoreErrors counts a store failure that let a request through.
func (m *Metrics) IncRateLimitStoreErrors() {
	m.storeErrors.Inc()
}

// HTTPMetrics records request count, latency and sizes per route pattern.
// Health routes (/health, /ready) are not recorded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			rec := newResponseRecorder(w)
			next.ServeHTTP(rec, r)

			requestBytes := r.ContentLength
			if requestBytes < 0 {
				requestBytes = 0
			}
			metrics.ObserveRequest(r.Method, routeOf(r.URL.Path), rec.status, time.Since(start), requestBytes, rec.bytes)
		})
	}
}
