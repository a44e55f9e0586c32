package rights

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks rights request activity.
type Metrics struct {
	submitted *prometheus.CounterVec
	completed *prometheus.CounterVec
}

// NewMetrics creates and registers rights metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		submitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_rights_requests_submitted_total",
			Help: "Rights requests filed, by right and initial status.",
		}, []string{"right", "status"}),
		completed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_rights_requests_completed_total",
			Help: "Rights requests completed with an approved outcome, by right.",
		}, []string{"right"}),
	}
}

// IncSubmitted records a filed request.
func (m *Metrics) IncSubmitted(right Right, status Status) {
	m.submitted.WithLabelValues(string(right), string(status)).Inc()
}

// IncCompleted records an approved completion.
func (m *Metrics) IncCompleted(right Right) {
	m.completed.WithLabelValues(string(right)).Inc()
}
