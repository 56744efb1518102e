package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for middleware operations.
type Metrics struct {
	panicsRecovered   prometheus.Counter
	corsRequestsTotal  *prometheus.CounterVec
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
		panicsRecovered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help:      "Total number of panics recovered",
			},
		),
		corsRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "middleware",
				Name:      "cors_requests_total",
				Help:      "Total number of cross-origin requests by type",
			},
			[]string{"type"},
		),
	}

	_ = registerer.Register(m.panicsRecovered)
	_ = registerer.Register(m.corsRequestsTotal)

	return m
}
