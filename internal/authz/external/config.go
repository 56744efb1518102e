package external

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config represents the policy engine client configuration.
type Config struct {
	// URL is the policy engine base address.
	URL string `yaml:"url" json:"url"`

	// Timeout bounds one Evaluate call, retries included.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Token is sent as a bearer token when set.
	Token string `yaml:"token,omitempty" json:"token,omitempty"`

	// Headers are additional headers to send.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Retry configures retries of unreachable and 5xx/429 responses.
	Retry RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty"`

	// CircuitBreaker configures the circuit breaker around the engine.
	CircuitBreaker BreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
}

// RetryConfig holds retry configuration. Retries are off when MaxRetries
// is zero, so each Evaluate is a single round trip.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int `yaml:"maxRetries,omitempty" json:"maxRetries,omitempty"`

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration `yaml:"initialBackoff,omitempty" json:"initialBackoff,omitempty"`

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration `yaml:"maxBackoff,omitempty" json:"maxBackoff,omitempty"`

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64 `yaml:"backoffMultiplier,omitempty" json:"backoffMultiplier,omitempty"`
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// Enabled enables the circuit breaker.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Threshold is the number of consecutive infrastructure failures that
	// opens the circuit.
	Threshold int `yaml:"threshold,omitempty" json:"threshold,omitempty"`

	// Timeout is how long the circuit stays open before a probe.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests int `yaml:"halfOpenRequests,omitempty" json:"halfOpenRequests,omitempty"`
}

// DefaultConfig returns the default policy engine configuration.
func DefaultConfig() Config {
	return Config{
		URL:     DefaultURL,
		Timeout: DefaultTimeout,
		Retry: RetryConfig{
			MaxRetries:        0,
			InitialBackoff:    50 * time.Millisecond,
			MaxBackoff:        500 * time.Millisecond,
			BackoffMultiplier: 2.0,
		},
		CircuitBreaker: BreakerConfig{
			Enabled:          false,
			Threshold:        5,
			Timeout:          30 * time.Second,
			HalfOpenRequests: 1,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("policyEngine.url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("policyEngine.url %q must be an absolute http(s) URL", c.URL)
	}
	if c.Timeout < 0 {
		return errors.New("policyEngine.timeout must be non-negative")
	}
	if c.Retry.MaxRetries < 0 {
		return errors.New("policyEngine.retry.maxRetries must be non-negative")
	}
	if c.Retry.MaxRetries > 0 && c.Retry.BackoffMultiplier != 0 && c.Retry.BackoffMultiplier < 1 {
		return errors.New("policyEngine.retry.backoffMultiplier must be at least 1")
	}
	if c.CircuitBreaker.Enabled && c.CircuitBreaker.Threshold <= 0 {
		return errors.New("policyEngine.circuitBreaker.threshold must be positive")
	}
	return nil
}

// GetEffectiveTimeout returns the effective per-call timeout.
func (c *Config) GetEffectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
