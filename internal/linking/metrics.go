package linking

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricLinksRequestsTotal = "links_requests_total"
	MetricLinksErrorsTotal   = "links_errors_total"
)

// Cache results used as the "cache" label.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics contains Prometheus metrics for link assembly.
type Metrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance. The metrics are not registered;
// call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricLinksRequestsTotal,
				Help: "Total number of link bundle requests by page kind and cache result",
			},
			[]string{"kind", "cache"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricLinksErrorsTotal,
				Help: "Total number of link bundle requests that failed by page kind",
			},
			[]string{"kind"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncCacheResult counts a served bundle as a cache hit or miss.
func (m *Metrics) IncCacheResult(kind, result string) {
	m.requests.WithLabelValues(kind, result).Inc()
}

// IncErrors counts a failed bundle request.
func (m *Metrics) IncErrors(kind string) {
	m.errors.WithLabelValues(kind).Inc()
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests,
		m.errors,
	}
}
