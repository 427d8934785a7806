package alternatives

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricRankRequestsTotal  = "alternatives_rank_requests_total"
	MetricRankDuration       = "alternatives_rank_duration_seconds"
	MetricPoolBroadenedTotal = "alternatives_pool_broadened_total"
)

// Rank outcomes used as the "outcome" label.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics contains Prometheus metrics for alternatives ranking.
// All operations are thread-safe.
type Metrics struct {
	rankRequests  *prometheus.CounterVec
	rankDuration  prometheus.Histogram
	poolBroadened prometheus.Counter
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		rankRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRankRequestsTotal,
				Help: "Total number of alternatives ranking requests by outcome",
			},
			[]string{"outcome"},
		),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    MetricRankDuration,
			Help:    "Histogram of alternatives ranking duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		poolBroadened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricPoolBroadenedTotal,
			Help: "Total number of rankings whose category pool was broadened to shared use-cases",
		}),
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

// IncRankRequests increments the request counter for an outcome.
func (m *Metrics) IncRankRequests(outcome string) {
	m.rankRequests.WithLabelValues(outcome).Inc()
}

// ObserveRankDuration records a ranking duration sample.
func (m *Metrics) ObserveRankDuration(seconds float64) {
	m.rankDuration.Observe(seconds)
}

// IncPoolBroadened increments the broadened pool counter.
func (m *Metrics) IncPoolBroadened() {
	m.poolBroadened.Inc()
}

// Collectors returns all Prometheus collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.rankRequests,
		m.rankDuration,
		m.poolBroadened,
	}
}
