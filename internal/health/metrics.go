package health

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for health checks.
type Metrics struct {
	checksTotal   *prometheus.CounterVec
	checkStatus   *prometheus.GaugeVec
	checkDuration *prometheus.HistogramVec
}

// NewMetrics creates health metrics registered with registerer. A nil
// registerer uses the default Prometheus registerer.
func NewMetrics(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "opagate"
	}
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "checks_total",
				Help:      "Total number of dependency checks by check and result",
			},
			[]string{"check", "result"},
		),
		checkStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_status",
				Help:      "Current check status (1=healthy, 0=unhealthy)",
			},
			[]string{"check"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "health",
				Name:      "check_duration_seconds",
				Help:      "Dependency check duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"check"},
		),
	}

	_ = registerer.Register(m.checksTotal)
	_ = registerer.Register(m.checkStatus)
	_ = registerer.Register(m.checkDuration)

	return m
}

// RecordCheck records the outcome of one check run.
func (m *Metrics) RecordCheck(check string, healthy bool, duration time.Duration) {
	result, status := "success", 1.0
	if !healthy {
		result, status = "failure", 0.0
	}
	m.checksTotal.WithLabelValues(check, result).Inc()
	m.checkStatus.WithLabelValues(check).Set(status)
	m.checkDuration.WithLabelValues(check).Observe(duration.Seconds())
}
