package jwt

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Default validation settings.
const (
	DefaultClockSkew   = 5 * time.Minute
	DefaultJWKSRefresh = 15 * time.Minute
	DefaultHTTPTimeout = 10 * time.Second
)

// Config represents bearer token validation configuration.
type Config struct {
	// Enabled enables bearer token validation.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Authority is the token issuer base URL. When JWKSUrl is empty the
	// signing keys are located through OIDC discovery on the authority.
	Authority string `yaml:"authority,omitempty" json:"authority,omitempty"`

	// Audience is the expected token audience.
	Audience string `yaml:"audience,omitempty" json:"audience,omitempty"`

	// Issuer overrides the expected issuer. Defaults to the discovered
	// issuer, or to Authority when discovery is not used.
	Issuer string `yaml:"issuer,omitempty" json:"issuer,omitempty"`

	// JWKSUrl is the URL to fetch signing keys from directly.
	JWKSUrl string `yaml:"jwksUrl,omitempty" json:"jwksUrl,omitempty"`

	// RequireHTTPSMetadata rejects non-https discovery and key URLs.
	RequireHTTPSMetadata bool `yaml:"requireHttpsMetadata" json:"requireHttpsMetadata"`

	// Algorithms restricts the accepted signing algorithms.
	Algorithms []string `yaml:"algorithms,omitempty" json:"algorithms,omitempty"`

	// ClockSkew is the tolerance applied to exp and nbf.
	ClockSkew time.Duration `yaml:"clockSkew,omitempty" json:"clockSkew,omitempty"`

	// JWKSRefresh is how long fetched keys are cached.
	JWKSRefresh time.Duration `yaml:"jwksRefresh,omitempty" json:"jwksRefresh,omitempty"`

	// AllowAnonymous lets requests without a bearer token through as the
	// anonymous identity. Invalid tokens are always rejected.
	AllowAnonymous bool `yaml:"allowAnonymous" json:"allowAnonymous"`
}

// DefaultConfig returns a default bearer token configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:              false,
		RequireHTTPSMetadata: false,
		Algorithms:           []string{AlgRS256, AlgES256},
		ClockSkew:            DefaultClockSkew,
		JWKSRefresh:          DefaultJWKSRefresh,
		AllowAnonymous:       true,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}

	if c.Authority == "" && c.JWKSUrl == "" {
		return errors.New("jwt: authority or jwksUrl is required")
	}

	for name, raw := range map[string]string{"authority": c.Authority, "jwksUrl": c.JWKSUrl} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("jwt: invalid %s %q", name, raw)
		}
		if c.RequireHTTPSMetadata && u.Scheme != "https" {
			return fmt.Errorf("jwt: %s must use https when requireHttpsMetadata is set", name)
		}
	}

	for _, alg := range c.Algorithms {
		if !isValidAlgorithm(alg) {
			return fmt.Errorf("jwt: invalid algorithm: %s", alg)
		}
	}

	if c.ClockSkew < 0 {
		return errors.New("jwt: clockSkew must be non-negative")
	}
	if c.JWKSRefresh < 0 {
		return errors.New("jwt: jwksRefresh must be non-negative")
	}
	return nil
}

func isValidAlgorithm(alg string) bool {
	switch alg {
	case AlgRS256, AlgRS384, AlgRS512,
		AlgPS256, AlgPS384, AlgPS512,
		AlgES256, AlgES384, AlgES512,
		AlgHS256, AlgHS384, AlgHS512,
		AlgEdDSA:
		return true
	}
	return false
}

// GetEffectiveClockSkew returns the effective clock skew.
func (c *Config) GetEffectiveClockSkew() time.Duration {
	if c.ClockSkew > 0 {
		return c.ClockSkew
	}
	return DefaultClockSkew
}

// GetEffectiveJWKSRefresh returns the effective key cache lifetime.
func (c *Config) GetEffectiveJWKSRefresh() time.Duration {
	if c.JWKSRefresh > 0 {
		return c.JWKSRefresh
	}
	return DefaultJWKSRefresh
}
