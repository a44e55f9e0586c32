package auditchain

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit chain activity.
type Metrics struct {
	appended   *prometheus.CounterVec
	violations prometheus.Counter
}

// NewMetrics creates and registers audit chain metrics with the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		appended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_audit_events_appended_total",
			Help: "Audit events appended to tenant chains, by event kind.",
		}, []string{"kind"}),
		violations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certus_audit_chain_violations_total",
			Help: "Chain integrity violations detected during replay verification.",
		}),
	}
}

// IncAppended records a successful append.
func (m *Metrics) IncAppended(kind string) {
	m.appended.WithLabelValues(kind).Inc()
}

// IncViolations records a detected chain violation.
func (m *Metrics) IncViolations() {
	m.violations.Inc()
}
