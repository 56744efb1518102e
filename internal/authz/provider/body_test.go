package provider

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *Metrics {
	return NewMetrics("test", prometheus.NewRegistry())
}

func TestBodyProvider_Extract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        ContextData
		wantFailure string
	}{
		{
			name:        "json object",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"amount": 50, "currency": "EUR"}`,
			want:        ContextData{"amount": json.Number("50"), "currency": "EUR"},
		},
		{
			name:   "absent content type",
			method: http.MethodPut,
			body:   `{"amount": 50}`,
			want:   ContextData{"amount": json.Number("50")},
		},
		{
			name:        "json with charset",
			method:      http.MethodPatch,
			contentType: "application/json; charset=utf-8",
			body:        `{"a": true}`,
			want:        ContextData{"a": true},
		},
		{
			name:        "vendor json",
			method:      http.MethodDelete,
			contentType: "application/merge-patch+json",
			body:        `{"a": null}`,
			want:        ContextData{"a": nil},
		},
		{
			name:        "malformed json",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"amount": 5`,
			want:        ContextData{},
			wantFailure: "malformed",
		},
		{
			name:        "trailing data",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"amount": 5} {"amount": 6}`,
			want:        ContextData{},
			wantFailure: "malformed",
		},
		{
			name:        "json array",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `[1, 2]`,
			want:        ContextData{},
			wantFailure: "not_object",
		},
		{
			name:        "json scalar",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `42`,
			want:        ContextData{},
			wantFailure: "not_object",
		},
		{
			name:        "empty body",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        ``,
			want:        ContextData{},
		},
		{
			name:        "form content type",
			method:      http.MethodPost,
			contentType: "application/x-www-form-urlencoded",
			body:        `amount=50`,
			want:        ContextData{},
		},
		{
			name:   "get request",
			method: http.MethodGet,
			body:   `{"amount": 50}`,
			want:   ContextData{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			metrics := newTestMetrics()
			p := NewBodyProvider(0, WithMetrics(metrics))

			r := httptest.NewRequest(tt.method, "/orders", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}

			got := p.Extract(r)
			assert.Equal(t, tt.want, got)

			rest, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			assert.Equal(t, tt.body, string(rest), "body must stay intact for downstream")

			if tt.wantFailure != "" {
				assert.Equal(t, float64(1),
					testutil.ToFloat64(metrics.failuresTotal.WithLabelValues(TypeBody, tt.wantFailure)))
			}
		})
	}
}

func TestBodyProvider_LargeIntegersKeepPrecision(t *testing.T) {
	t.Parallel()

	p := NewBodyProvider(0)
	r := httptest.NewRequest(http.MethodPost, "/accounts",
		strings.NewReader(`{"account_id": 9007199254740993, "ratio": 0.1}`))
	r.Header.Set("Content-Type", "application/json")

	got := p.Extract(r)
	assert.Equal(t, json.Number("9007199254740993"), got["account_id"])

	encoded, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"account_id": 9007199254740993, "ratio": 0.1}`, string(encoded))
	assert.Contains(t, string(encoded), "9007199254740993")
}

func TestBodyProvider_OversizeBodyLeftIntact(t *testing.T) {
	t.Parallel()

	metrics := newTestMetrics()
	p := NewBodyProvider(16, WithMetrics(metrics))

	body := `{"description": "` + strings.Repeat("x", 64) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	assert.Empty(t, p.Extract(r))

	rest, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	assert.Equal(t, body, string(rest))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.failuresTotal.WithLabelValues(TypeBody, "too_large")))
}

func TestBodyProvider_RepeatedExtract(t *testing.T) {
	t.Parallel()

	p := NewBodyProvider(0, WithMetrics(newTestMetrics()))
	r := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"amount": 50}`))

	first := p.Extract(r)
	second := p.Extract(r)
	assert.Equal(t, first, second)

	require.NotNil(t, r.GetBody)
	again, err := r.GetBody()
	require.NoError(t, err)
	b, err := io.ReadAll(again)
	require.NoError(t, err)
	assert.Equal(t, `{"amount": 50}`, string(b))
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestBodyProvider_ReadError(t *testing.T) {
	t.Parallel()

	metrics := newTestMetrics()
	p := NewBodyProvider(0, WithMetrics(metrics))

	r := httptest.NewRequest(http.MethodPost, "/orders", nil)
	r.Body = io.NopCloser(&failingReader{data: []byte(`{"amo`), err: errors.New("connection reset")})

	assert.Empty(t, p.Extract(r))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.failuresTotal.WithLabelValues(TypeBody, "read")))

	rest, err := io.ReadAll(r.Body)
	assert.Error(t, err)
	assert.Equal(t, `{"amo`, string(rest))
}
