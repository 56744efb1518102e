package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains authorization metrics.
type Metrics struct {
	decisionsTotal   *prometheus.CounterVec
	decisionDuration *prometheus.HistogramVec
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
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "authz",
				Name:      "decisions_total",
				Help:      "Total number of authorization decisions by outcome",
			},
			[]string{"outcome"},
		),
		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "authz",
				Name:      "duration_seconds",
				Help:      "Authorization duration in seconds, context extraction included",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),
	}

	_ = registerer.Register(m.decisionsTotal)
	_ = registerer.Register(m.decisionDuration)

	for _, o := range []Outcome{OutcomeAllowed, OutcomeDenied, OutcomeClientError, OutcomeFailOpen, OutcomeCanceled} {
		m.decisionsTotal.WithLabelValues(string(o))
		m.decisionDuration.WithLabelValues(string(o))
	}

	m.decisionsTotal.WithLabelValues(string(OutcomeSkipped))

	return m
}

// RecordDecision records a terminal outcome.
func (m *Metrics) RecordDecision(outcome Outcome, duration time.Duration) {
	m.decisionsTotal.WithLabelValues(string(outcome)).Inc()
	m.decisionDuration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

// RecordSkip counts a request on a path that bypasses authorization.
func (m *Metrics) RecordSkip() {
	m.decisionsTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
}
