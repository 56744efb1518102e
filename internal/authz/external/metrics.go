package external

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for policy engine calls.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	retriesTotal    prometheus.Counter
	breakerState    prometheus.Gauge
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
			Subsystem: "policy_engine",
			Name:      "requests_total",
			Help:      "Total number of policy decision requests by result",
		},
		[]string{"result"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "policy_engine",
			Name:      "request_duration_seconds",
			Help:      "Policy decision request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"result"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy_engine",
			Name:      "errors_total",
			Help:      "Total number of policy decision errors by kind",
		},
		[]string{"kind"},
	)

	m.retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy_engine",
			Name:      "retries_total",
			Help:      "Total number of policy decision retry attempts",
		},
	)

	m.breakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy_engine",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	for _, c := range []prometheus.Collector{
		m.requestsTotal,
		m.requestDuration,
		m.errorsTotal,
		m.retriesTotal,
		m.breakerState,
	} {
		_ = registerer.Register(c)
	}

	for _, result := range []string{"allow", "deny", "error"} {
		m.requestsTotal.WithLabelValues(result)
		m.requestDuration.WithLabelValues(result)
	}
	for _, kind := range []string{"unreachable", "timeout", "protocol", "canceled"} {
		m.errorsTotal.WithLabelValues(kind)
	}

	return m
}

// RecordRequest records a finished decision request. result is "allow",
// "deny" or "error".
func (m *Metrics) RecordRequest(result string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(result).Inc()
	m.requestDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordError records a failed decision request by error kind.
func (m *Metrics) RecordError(kind string) {
	m.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordRetry records a retry attempt.
func (m *Metrics) RecordRetry() {
	m.retriesTotal.Inc()
}

// SetBreakerState publishes the circuit breaker state.
func (m *Metrics) SetBreakerState(state int) {
	m.breakerState.Set(float64(state))
}
