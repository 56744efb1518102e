package external

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "http://opa:8181", cfg.URL)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Zero(t, cfg.Retry.MaxRetries)
	assert.False(t, cfg.CircuitBreaker.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty url", mutate: func(c *Config) { c.URL = "" }, wantErr: "url is required"},
		{name: "relative url", mutate: func(c *Config) { c.URL = "opa:8181" }, wantErr: "absolute"},
		{name: "ftp url", mutate: func(c *Config) { c.URL = "ftp://opa" }, wantErr: "absolute"},
		{name: "negative timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: "timeout"},
		{name: "negative retries", mutate: func(c *Config) { c.Retry.MaxRetries = -1 }, wantErr: "maxRetries"},
		{
			name: "multiplier below one",
			mutate: func(c *Config) {
				c.Retry.MaxRetries = 2
				c.Retry.BackoffMultiplier = 0.5
			},
			wantErr: "backoffMultiplier",
		},
		{
			name: "breaker without threshold",
			mutate: func(c *Config) {
				c.CircuitBreaker.Enabled = true
				c.CircuitBreaker.Threshold = 0
			},
			wantErr: "threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_GetEffectiveTimeout(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	assert.Equal(t, DefaultTimeout, cfg.GetEffectiveTimeout())
	cfg.Timeout = 300 * time.Millisecond
	assert.Equal(t, 300*time.Millisecond, cfg.GetEffectiveTimeout())
}
