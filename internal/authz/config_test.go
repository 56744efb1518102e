package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vyrodovalexey/opagate/internal/authz/provider"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "system/main", cfg.PolicyPath)
	assert.False(t, cfg.FailOpen)
	assert.Equal(t, provider.TypeBody, cfg.ContextProvider.Type)
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
		{name: "empty policy path", mutate: func(c *Config) { c.PolicyPath = "" }, wantErr: "authz.policyPath"},
		{name: "relative policy path", mutate: func(c *Config) { c.PolicyPath = "system/../x" }, wantErr: "authz.policyPath"},
		{
			name: "route group without slash",
			mutate: func(c *Config) {
				c.RouteGroups = []RouteGroup{{PathPrefix: "orders", PolicyPath: "orders/allow"}}
			},
			wantErr: "must start with /",
		},
		{
			name: "duplicate route group",
			mutate: func(c *Config) {
				c.RouteGroups = []RouteGroup{
					{PathPrefix: "/orders", PolicyPath: "orders/allow"},
					{PathPrefix: "/orders", PolicyPath: "orders/other"},
				}
			},
			wantErr: "duplicated",
		},
		{
			name: "route group with invalid policy",
			mutate: func(c *Config) {
				c.RouteGroups = []RouteGroup{{PathPrefix: "/orders", PolicyPath: ""}}
			},
			wantErr: "routeGroups[0].policyPath",
		},
		{name: "skip everything", mutate: func(c *Config) { c.SkipPaths = []string{"*"} }, wantErr: "every path"},
		{name: "relative skip path", mutate: func(c *Config) { c.SkipPaths = []string{"health"} }, wantErr: "start with /"},
		{
			name:    "invalid provider",
			mutate:  func(c *Config) { c.ContextProvider.Type = "xml" },
			wantErr: "not supported",
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

func TestPathMatcher(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SkipPaths = []string{"/health", "/static/*"}
	cfg.RouteGroups = []RouteGroup{
		{PathPrefix: "/api/", PolicyPath: "api/main"},
		{PathPrefix: "/api/orders", PolicyPath: "orders/allow"},
	}
	m := newPathMatcher(&cfg)

	assert.Equal(t, "orders/allow", m.policyPathFor("/api/orders"))
	assert.Equal(t, "orders/allow", m.policyPathFor("/api/orders/7"))
	assert.Equal(t, "api/main", m.policyPathFor("/api/ordersx"))
	assert.Equal(t, "api/main", m.policyPathFor("/api/invoices"))
	assert.Equal(t, "system/main", m.policyPathFor("/api"))

	assert.True(t, m.skip("/health"))
	assert.False(t, m.skip("/health/deep"))
	assert.True(t, m.skip("/static/app.js"))
	assert.False(t, m.skip("/orders"))
}
