package erasure

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks erasure activity.
type Metrics struct {
	executed  *prometheus.CounterVec
	blocked   prometheus.Counter
	durations prometheus.Histogram
}

// NewMetrics creates and registers erasure metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		executed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_erasures_executed_total",
			Help: "Erasure executions by terminal status.",
		}, []string{"status"}),
		blocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certus_erasures_blocked_total",
			Help: "Erasure attempts blocked by the legal hold gate.",
		}),
		durations: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "certus_erasure_duration_seconds",
			Help:    "Wall time of erasure execution including proof generation.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncExecuted records a terminal erasure status.
func (m *Metrics) IncExecuted(status Status) {
	m.executed.WithLabelValues(string(status)).Inc()
}

// IncBlocked records a hold-gate rejection.
func (m *Metrics) IncBlocked() {
	m.blocked.Inc()
}

// ObserveDuration records an execution duration in seconds.
func (m *Metrics) ObserveDuration(seconds float64) {
	m.durations.Observe(seconds)
}
