package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

func TestHeaderProvider_Extract(t *testing.T) {
	t.Parallel()

	p := NewHeaderProvider([]string{"x-tenant-id", "X-Region", "authorization", "cookie"},
		WithMetrics(newTestMetrics()))

	r := httptest.NewRequest(http.MethodGet, "/orders", nil)
	r.Header.Add("X-Tenant-Id", "acme")
	r.Header.Add("X-Tenant-Id", "other")
	r.Header.Set("Authorization", "Bearer secret")
	r.Header.Set("Cookie", "session=1")

	got := p.Extract(r)
	assert.Equal(t, ContextData{"headers": map[string]interface{}{"X-Tenant-Id": "acme"}}, got)
}

func TestQueryProvider_Extract(t *testing.T) {
	t.Parallel()

	p := NewQueryProvider(WithMetrics(newTestMetrics()))

	r := httptest.NewRequest(http.MethodGet, "/orders?status=open&tag=a&tag=b", nil)
	got := p.Extract(r)
	assert.Equal(t, ContextData{"query": map[string]interface{}{
		"status": "open",
		"tag":    []interface{}{"a", "b"},
	}}, got)

	r = httptest.NewRequest(http.MethodGet, "/orders", nil)
	assert.Equal(t, ContextData{"query": map[string]interface{}{}}, p.Extract(r))
}

func TestPathProvider_Extract(t *testing.T) {
	t.Parallel()

	p := NewPathProvider(WithMetrics(newTestMetrics()))

	r := httptest.NewRequest(http.MethodGet, "/orders/42//items/", nil)
	assert.Equal(t, ContextData{"segments": []interface{}{"orders", "42", "items"}}, p.Extract(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, ContextData{"segments": []interface{}{}}, p.Extract(r))
}

func TestCompositeProvider_Extract(t *testing.T) {
	t.Parallel()

	metrics := newTestMetrics()
	p := NewCompositeProvider([]Provider{
		NewPathProvider(WithMetrics(metrics)),
		NewBodyProvider(0, WithMetrics(metrics)),
	}, WithMetrics(metrics))

	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"amount": 50, "segments": "body wins"}`))

	got := p.Extract(r)
	assert.Equal(t, ContextData{"amount": json.Number("50"), "segments": "body wins"}, got)
	assert.Equal(t, TypeComposite, p.Name())
	assert.NoError(t, p.Close())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "query", cfg: Config{Type: TypeQuery}},
		{name: "path", cfg: Config{Type: TypePath}},
		{name: "headers", cfg: Config{Type: TypeHeaders, Headers: []string{"X-Tenant"}}},
		{name: "headers without list", cfg: Config{Type: TypeHeaders}, wantErr: "headers is required"},
		{name: "redis without url", cfg: Config{Type: TypeRedis}, wantErr: "redis.url is required"},
		{name: "unknown type", cfg: Config{Type: "xml"}, wantErr: "not supported"},
		{name: "negative body cap", cfg: Config{Type: TypeBody, MaxBodyBytes: -1}, wantErr: "maxBodyBytes"},
		{name: "empty composite", cfg: Config{Type: TypeComposite}, wantErr: "providers is required"},
		{
			name:    "nested composite",
			cfg:     Config{Type: TypeComposite, Providers: []Config{{Type: TypeComposite}}},
			wantErr: "cannot be nested",
		},
		{
			name:    "invalid child",
			cfg:     Config{Type: TypeComposite, Providers: []Config{{Type: TypeHeaders}}},
			wantErr: "providers[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	tests := []struct {
		name     string
		cfg      Config
		wantName string
	}{
		{name: "body", cfg: DefaultConfig(), wantName: TypeBody},
		{name: "headers", cfg: Config{Type: TypeHeaders, Headers: []string{"X-Tenant"}}, wantName: TypeHeaders},
		{name: "query", cfg: Config{Type: TypeQuery}, wantName: TypeQuery},
		{name: "path", cfg: Config{Type: TypePath}, wantName: TypePath},
		{
			name:     "redis",
			cfg:      Config{Type: TypeRedis, Redis: RedisConfig{URL: "redis://" + mr.Addr()}},
			wantName: TypeRedis,
		},
		{
			name: "composite",
			cfg: Config{Type: TypeComposite, Providers: []Config{
				{Type: TypePath},
				{Type: TypeBody},
			}},
			wantName: TypeComposite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := New(context.Background(), tt.cfg, observability.NopLogger(), WithMetrics(newTestMetrics()))
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.NoError(t, Close(p))
		})
	}

	_, err := New(context.Background(), Config{Type: TypeRedis, Redis: RedisConfig{URL: "mysql://x"}}, nil)
	assert.Error(t, err)
}
