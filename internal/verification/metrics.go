package verification

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks proof verification activity.
type Metrics struct {
	verifications *prometheus.CounterVec
	confidence    *prometheus.HistogramVec
}

// NewMetrics creates and registers verification metrics with the default
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_proof_verifications_total",
			Help: "Proof verifications by strategy and result.",
		}, []string{"strategy", "result"}),
		confidence: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certus_proof_verification_confidence",
			Help:    "Confidence scores of proof verifications.",
			Buckets: []float64{0.2, 0.4, 0.6, 0.8, 0.9, 0.95, 1},
		}, []string{"strategy"}),
	}
}

// Observe records one verification outcome.
func (m *Metrics) Observe(strategy string, result bool, confidence float64) {
	m.verifications.WithLabelValues(strategy, fmt.Sprintf("%t", result)).Inc()
	m.confidence.WithLabelValues(strategy).Observe(confidence)
}
