package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for authentication operations.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
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

	m := &Metrics{}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "requests_total",
			Help:      "Total number of authentication attempts",
		},
		[]string{"auth_type", "result"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "request_duration_seconds",
			Help:      "Authentication duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"auth_type"},
	)

	_ = registerer.Register(m.requestsTotal)
	_ = registerer.Register(m.requestDuration)

	for _, authType := range []AuthType{AuthTypeJWT, AuthTypeAnonymous} {
		for _, result := range []string{"success", "failure"} {
			m.requestsTotal.WithLabelValues(string(authType), result)
		}
		m.requestDuration.WithLabelValues(string(authType))
	}

	return m
}

// RecordRequest records an authentication attempt.
func (m *Metrics) RecordRequest(authType AuthType, result string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(string(authType), result).Inc()
	m.requestDuration.WithLabelValues(string(authType)).Observe(duration.Seconds())
}
