package jwt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for token validation.
type Metrics struct {
	validationTotal     *prometheus.CounterVec
	validationDuration  *prometheus.HistogramVec
	jwksRefreshTotal    *prometheus.CounterVec
	jwksRefreshDuration prometheus.Histogram
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

	m.validationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "validation_total",
			Help:      "Total number of JWT validation attempts",
		},
		[]string{"status", "reason"},
	)

	m.validationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "validation_duration_seconds",
			Help:      "JWT validation duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"status"},
	)

	m.jwksRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "jwks_refresh_total",
			Help:      "Total number of forced JWKS refresh attempts",
		},
		[]string{"status"},
	)

	m.jwksRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jwt",
			Name:      "jwks_refresh_duration_seconds",
			Help:      "JWKS refresh duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	for _, c := range []prometheus.Collector{
		m.validationTotal,
		m.validationDuration,
		m.jwksRefreshTotal,
		m.jwksRefreshDuration,
	} {
		_ = registerer.Register(c)
	}

	m.init()
	return m
}

func (m *Metrics) init() {
	m.validationTotal.WithLabelValues("success", "")
	for _, reason := range []string{"empty_token", "malformed", "expired", "not_yet_valid", "invalid_signature",
		"invalid_issuer", "invalid_audience", "unsupported_algorithm", "keys_unavailable", "invalid"} {
		m.validationTotal.WithLabelValues("error", reason)
	}
	for _, status := range []string{"success", "error"} {
		m.validationDuration.WithLabelValues(status)
		m.jwksRefreshTotal.WithLabelValues(status)
	}
}

// RecordValidation records a validation attempt. reason is empty on success.
func (m *Metrics) RecordValidation(status, reason string, duration time.Duration) {
	m.validationTotal.WithLabelValues(status, reason).Inc()
	m.validationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordJWKSRefresh records a forced JWKS refresh.
func (m *Metrics) RecordJWKSRefresh(status string, duration time.Duration) {
	m.jwksRefreshTotal.WithLabelValues(status).Inc()
	m.jwksRefreshDuration.Observe(duration.Seconds())
}
