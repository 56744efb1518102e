package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"time"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

// statusClientClosedRequest is written when the caller went away before
// the upstream answered.
const statusClientClosedRequest = 499

// ReverseProxy forwards requests to a single upstream service.
type ReverseProxy struct {
	target        *url.URL
	proxy         *httputil.ReverseProxy
	transport     http.RoundTripper
	flushInterval time.Duration
	timeout       time.Duration
	logger        observability.Logger
	metrics       *Metrics
}

// ProxyOption is a functional option for configuring the proxy.
type ProxyOption func(*ReverseProxy)

// WithProxyLogger sets the logger for the proxy.
func WithProxyLogger(logger observability.Logger) ProxyOption {
	return func(p *ReverseProxy) {
		p.logger = logger
	}
}

// WithTransport sets the transport for the proxy.
func WithTransport(transport http.RoundTripper) ProxyOption {
	return func(p *ReverseProxy) {
		p.transport = transport
	}
}

// WithFlushInterval sets the flush interval for streaming responses.
func WithFlushInterval(interval time.Duration) ProxyOption {
	return func(p *ReverseProxy) {
		p.flushInterval = interval
	}
}

// WithTimeout bounds each upstream request.
func WithTimeout(timeout time.Duration) ProxyOption {
	return func(p *ReverseProxy) {
		p.timeout = timeout
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) ProxyOption {
	return func(p *ReverseProxy) {
		p.metrics = metrics
	}
}

// NewReverseProxy creates a proxy to the absolute http(s) URL target.
// The target path is prefixed to every request path.
func NewReverseProxy(target string, opts ...ProxyOption) (*ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTargetURL, target)
	}

	p := &ReverseProxy{
		target:    u,
		transport: http.DefaultTransport,
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics("opagate", nil)
	}

	p.proxy = &httputil.ReverseProxy{
		Rewrite:       p.rewrite,
		Transport:     &instrumentedTransport{next: p.transport, metrics: p.metrics},
		FlushInterval: p.flushInterval,
		ErrorHandler:  p.errorHandler,
	}
	return p, nil
}

// ServeHTTP implements http.Handler.
func (p *ReverseProxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.timeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	p.proxy.ServeHTTP(w, r)
}

// rewrite points the outbound request at the upstream and sets the
// X-Forwarded headers.
func (p *ReverseProxy) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(p.target)
	pr.SetXForwarded()
	observability.InjectTraceContext(pr.Out.Context(), pr.Out.Header)
}

func (p *ReverseProxy) errorHandler(w http.ResponseWriter, r *http.Request, err error) {
	errorType, cause := classify(err)
	p.metrics.RecordError(errorType)

	if errorType == errorTypeCanceled {
		p.logger.WithContext(r.Context()).Debug("client closed request before upstream answered",
			observability.String("path", r.URL.Path),
		)
		w.WriteHeader(statusClientClosedRequest)
		return
	}

	p.logger.WithContext(r.Context()).Error("proxy error",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.String("error_type", errorType),
		observability.Error(err),
	)

	status := http.StatusBadGateway
	if errors.Is(cause, ErrUpstreamTimeout) {
		status = http.StatusGatewayTimeout
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, fmt.Sprintf(`{"error":%q}`, cause.Error()))
}

// instrumentedTransport records the duration and status of upstream
// round trips.
type instrumentedTransport struct {
	next    http.RoundTripper
	metrics *Metrics
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	t.metrics.RecordUpstream(status, time.Since(start))
	return resp, err
}
