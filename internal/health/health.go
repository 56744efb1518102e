package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

// DefaultCheckTimeout bounds one readiness evaluation.
const DefaultCheckTimeout = 3 * time.Second

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates a non-critical dependency is failing.
	StatusDegraded Status = "degraded"
	// StatusDraining indicates the service is shutting down.
	StatusDraining Status = "draining"
)

// Response is the body of every health endpoint.
type Response struct {
	Status    Status                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Uptime    string                  `json:"uptime,omitempty"`
	Checks    map[string]*CheckResult `json:"checks,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the outcome of one dependency check.
type CheckResult struct {
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// CheckFunc checks one dependency.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	critical bool
}

// Checker serves the health endpoints.
type Checker struct {
	version   string
	startTime time.Time
	timeout   time.Duration
	logger    observability.Logger
	metrics   *Metrics
	draining  atomic.Bool

	mu     sync.RWMutex
	checks []check
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Checker) {
		c.metrics = metrics
	}
}

// WithTimeout sets the readiness timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Checker) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewChecker creates a health checker.
func NewChecker(version string, opts ...Option) *Checker {
	c := &Checker{
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics("opagate", nil)
	}
	return c
}

// RegisterCheck adds a critical dependency check.
func (c *Checker) RegisterCheck(name string, fn CheckFunc) {
	c.register(name, fn, true)
}

// RegisterOptionalCheck adds a check whose failure degrades readiness
// without failing it.
func (c *Checker) RegisterOptionalCheck(name string, fn CheckFunc) {
	c.register(name, fn, false)
}

func (c *Checker) register(name string, fn CheckFunc, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check{name: name, fn: fn, critical: critical})
}

// SetDraining marks the service as shutting down.
func (c *Checker) SetDraining(draining bool) {
	c.draining.Store(draining)
}

// IsDraining reports whether the service is shutting down.
func (c *Checker) IsDraining() bool {
	return c.draining.Load()
}

// Health returns the process health. It never runs dependency checks.
func (c *Checker) Health() *Response {
	status := StatusHealthy
	if c.IsDraining() {
		status = StatusDraining
	}
	return &Response{
		Status:    status,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness runs every registered check concurrently.
func (c *Checker) Readiness(ctx context.Context) *Response {
	resp := &Response{
		Status:    StatusHealthy,
		Version:   c.version,
		Checks:    map[string]*CheckResult{},
		Timestamp: time.Now(),
	}
	if c.IsDraining() {
		resp.Status = StatusDraining
		return resp
	}

	c.mu.RLock()
	checks := make([]check, len(c.checks))
	copy(checks, c.checks)
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	results := make([]*CheckResult, len(checks))
	var wg sync.WaitGroup
	for i := range checks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.run(ctx, checks[i])
		}(i)
	}
	wg.Wait()

	for i, chk := range checks {
		result := results[i]
		resp.Checks[chk.name] = result
		if result.Status == StatusHealthy {
			continue
		}
		if chk.critical {
			resp.Status = StatusUnhealthy
		} else if resp.Status == StatusHealthy {
			resp.Status = StatusDegraded
		}
	}
	return resp
}

func (c *Checker) run(ctx context.Context, chk check) *CheckResult {
	start := time.Now()
	err := chk.fn(ctx)
	duration := time.Since(start)
	c.metrics.RecordCheck(chk.name, err == nil, duration)

	result := &CheckResult{Status: StatusHealthy, Duration: duration.String()}
	if err != nil {
		result.Status = StatusUnhealthy
		result.Error = err.Error()
		c.logger.Warn("health check failed",
			observability.String("check", chk.name),
			observability.Bool("critical", chk.critical),
			observability.Error(err),
		)
	}
	return result
}

// LivenessHandler answers 200 while the process serves HTTP.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(HeaderContentType, ContentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// HealthHandler serves Health. Draining answers 503.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := c.Health()
		writeResponse(w, resp)
	}
}

// ReadinessHandler serves Readiness. Unhealthy and draining answer 503;
// degraded answers 200.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := c.Readiness(r.Context())
		writeResponse(w, resp)
	}
}

func writeResponse(w http.ResponseWriter, resp *Response) {
	status := http.StatusOK
	if resp.Status == StatusUnhealthy || resp.Status == StatusDraining {
		status = http.StatusServiceUnavailable
	}
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
