package provider

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for context extraction.
type Metrics struct {
	failuresTotal *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with registerer.
// A nil registerer means prometheus.DefaultRegisterer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "opagate"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		failuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "authz",
				Name:      "context_extraction_failures_total",
				Help:      "Total number of absorbed context extraction failures",
			},
			[]string{"provider", "reason"},
		),
	}
	_ = registerer.Register(m.failuresTotal)

	return m
}

// RecordFailure records an absorbed extraction failure.
func (m *Metrics) RecordFailure(provider, reason string) {
	m.failuresTotal.WithLabelValues(provider, reason).Inc()
}
