package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/opagate/internal/authz/external"
	"github.com/vyrodovalexey/opagate/internal/authz/provider"
)

type stubEngine struct {
	err error
}

func (s *stubEngine) Evaluate(context.Context, string, *external.DecisionInput) (*external.Verdict, error) {
	return nil, errors.New("not used")
}

func (s *stubEngine) Health(context.Context) error { return s.err }

func (s *stubEngine) Close() error { return nil }

func newTestChecker(t *testing.T, opts ...Option) (*Checker, *Metrics) {
	t.Helper()

	metrics := NewMetrics("test", prometheus.NewRegistry())
	return NewChecker("1.2.3", append([]Option{WithMetrics(metrics)}, opts...)...), metrics
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	c, _ := newTestChecker(t)
	c.RegisterCheck("broken", func(context.Context) error { return errors.New("down") })

	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	c, _ := newTestChecker(t)

	rec := httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get(HeaderContentType))
	resp := decode(t, rec)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)

	c.SetDraining(true)
	rec = httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusDraining, decode(t, rec).Status)
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		engineErr  error
		storeErr   error
		wantCode   int
		wantStatus Status
	}{
		{name: "all healthy", wantCode: http.StatusOK, wantStatus: StatusHealthy},
		{
			name:       "engine down",
			engineErr:  external.ErrPolicyEngineUnreachable,
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusUnhealthy,
		},
		{
			name:       "store down degrades",
			storeErr:   errors.New("connection refused"),
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
		},
		{
			name:       "both down",
			engineErr:  external.ErrPolicyEngineUnreachable,
			storeErr:   errors.New("connection refused"),
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, _ := newTestChecker(t)
			c.RegisterCheck(CheckPolicyEngine, PolicyEngineCheck(&stubEngine{err: tt.engineErr}))
			c.RegisterOptionalCheck(CheckContextProvider, func(context.Context) error { return tt.storeErr })

			rec := httptest.NewRecorder()
			c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decode(t, rec)
			assert.Equal(t, tt.wantStatus, resp.Status)
			require.Contains(t, resp.Checks, CheckPolicyEngine)
			if tt.engineErr != nil {
				assert.Equal(t, StatusUnhealthy, resp.Checks[CheckPolicyEngine].Status)
				assert.Contains(t, resp.Checks[CheckPolicyEngine].Error, "unreachable")
			}
		})
	}
}

func TestReadiness_Draining(t *testing.T) {
	t.Parallel()

	c, _ := newTestChecker(t)
	called := false
	c.RegisterCheck("engine", func(context.Context) error { called = true; return nil })
	c.SetDraining(true)

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, StatusDraining, decode(t, rec).Status)
	assert.False(t, called)
	assert.True(t, c.IsDraining())
}

func TestReadiness_Timeout(t *testing.T) {
	t.Parallel()

	c, _ := newTestChecker(t, WithTimeout(20*time.Millisecond))
	c.RegisterCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	resp := c.Readiness(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks["slow"].Error, "deadline exceeded")
}

func TestReadiness_Metrics(t *testing.T) {
	t.Parallel()

	c, metrics := newTestChecker(t)
	c.RegisterCheck("ok", func(context.Context) error { return nil })
	c.RegisterCheck("bad", func(context.Context) error { return errors.New("down") })

	c.Readiness(context.Background())
	c.Readiness(context.Background())

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.checksTotal.WithLabelValues("ok", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.checksTotal.WithLabelValues("bad", "failure")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.checkStatus.WithLabelValues("ok")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.checkStatus.WithLabelValues("bad")))
}

func TestPolicyEngineCheck_NilClient(t *testing.T) {
	t.Parallel()

	assert.Error(t, PolicyEngineCheck(nil)(context.Background()))
}

func TestContextProviderCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ContextProviderCheck(nil)(context.Background()))
	assert.NoError(t, ContextProviderCheck(provider.NewBodyProvider(0))(context.Background()))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	check := ContextProviderCheck(provider.NewRedisProvider(client, "attrs:", time.Second))

	assert.NoError(t, check(context.Background()))
	mr.SetError("loading")
	assert.Error(t, check(context.Background()))
}
