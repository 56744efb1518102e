package config

import (
	"time"

	"github.com/vyrodovalexey/opagate/internal/auth/jwt"
	"github.com/vyrodovalexey/opagate/internal/authz"
	"github.com/vyrodovalexey/opagate/internal/authz/external"
	"github.com/vyrodovalexey/opagate/internal/middleware"
	"github.com/vyrodovalexey/opagate/internal/observability"
	"github.com/vyrodovalexey/opagate/internal/vault"
)

// Default values.
const (
	DefaultServerAddress   = ":8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMetricsAddress  = ":9090"
	DefaultMetricsPath     = "/metrics"
)

// Config is the complete opagate configuration.
type Config struct {
	Server        ServerConfig          `yaml:"server" json:"server"`
	JWT           jwt.Config            `yaml:"jwt" json:"jwt"`
	CORS          middleware.CORSConfig `yaml:"cors" json:"cors"`
	PolicyEngine  PolicyEngineConfig    `yaml:"policyEngine" json:"policyEngine"`
	Authz         authz.Config          `yaml:"authz" json:"authz"`
	Upstream      UpstreamConfig        `yaml:"upstream" json:"upstream"`
	Observability ObservabilityConfig   `yaml:"observability" json:"observability"`
}

// ServerConfig configures the inbound HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address" json:"address"`
	ReadTimeout     Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout    Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout,omitempty" json:"shutdownTimeout,omitempty"`
}

// PolicyEngineConfig is the decision client configuration plus the
// optional Vault source for its bearer token.
type PolicyEngineConfig struct {
	external.Config `yaml:",inline"`

	// Vault, when enabled, supplies the bearer token instead of Token.
	Vault vault.Config `yaml:"vault,omitempty" json:"vault,omitempty"`
}

// UpstreamConfig is the business service authorized requests are
// forwarded to. An empty URL answers allowed requests with 204.
type UpstreamConfig struct {
	URL string `yaml:"url" json:"url"`
}

// ObservabilityConfig groups logging, metrics and tracing.
type ObservabilityConfig struct {
	Logging observability.LogConfig    `yaml:"logging" json:"logging"`
	Metrics MetricsConfig              `yaml:"metrics" json:"metrics"`
	Tracing observability.TracerConfig `yaml:"tracing" json:"tracing"`
}

// MetricsConfig configures the separate metrics and health listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address,omitempty" json:"address,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// DefaultConfig returns the configuration used for every field the file
// leaves out.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         DefaultServerAddress,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		JWT:  jwt.DefaultConfig(),
		CORS: middleware.DefaultCORSConfig(),
		PolicyEngine: PolicyEngineConfig{
			Config: external.DefaultConfig(),
			Vault:  vault.DefaultConfig(),
		},
		Authz: authz.DefaultConfig(),
		Observability: ObservabilityConfig{
			Logging: observability.DefaultLogConfig(),
			Metrics: MetricsConfig{
				Enabled: true,
				Address: DefaultMetricsAddress,
				Path:    DefaultMetricsPath,
			},
			Tracing: observability.TracerConfig{
				ServiceName:  "opagate",
				SamplingRate: 1.0,
			},
		},
	}
}
