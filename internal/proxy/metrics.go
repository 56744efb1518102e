package proxy

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for upstream requests.
type Metrics struct {
	errorsTotal      *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
}

// NewMetrics creates proxy metrics registered with registerer. A nil
// registerer uses the default Prometheus registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "opagate"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "errors_total",
				Help:      "Total number of upstream proxy errors",
			},
			[]string{"error_type"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "upstream_duration_seconds",
				Help:      "Duration of upstream requests in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"status"},
		),
	}

	_ = registerer.Register(m.errorsTotal)
	_ = registerer.Register(m.upstreamDuration)

	return m
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(errorType string) {
	m.errorsTotal.WithLabelValues(errorType).Inc()
}

// RecordUpstream observes one upstream round trip.
func (m *Metrics) RecordUpstream(status string, duration time.Duration) {
	m.upstreamDuration.WithLabelValues(status).Observe(duration.Seconds())
}
