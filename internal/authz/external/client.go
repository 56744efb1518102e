package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

var tracer = otel.Tracer("opagate/policy-engine")

// Client requests authorization decisions from the policy engine. It is
// safe for concurrent use.
type Client interface {
	// Evaluate evaluates input against the policy at policyPath. Exactly one
	// of the verdict and the error is non-nil.
	Evaluate(ctx context.Context, policyPath string, input *DecisionInput) (*Verdict, error)

	// Health probes the engine health endpoint.
	Health(ctx context.Context) error

	// Close releases idle connections.
	Close() error
}

// TokenSource supplies the bearer token sent to the policy engine.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type client struct {
	baseURL     string
	timeout     time.Duration
	headers     map[string]string
	token       string
	tokenSource TokenSource
	retry       RetryConfig
	httpClient  *http.Client
	breaker     *breaker
	logger      observability.Logger
	metrics     *Metrics
}

// ClientOption is a functional option for the client.
type ClientOption func(*client)

// WithHTTPClient sets the HTTP client. Its Timeout should be zero; the
// per-call deadline comes from the configured timeout.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) ClientOption {
	return func(c *client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) ClientOption {
	return func(c *client) {
		c.metrics = metrics
	}
}

// WithTokenSource sets a dynamic bearer token source, overriding Config.Token.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(c *client) {
		c.tokenSource = ts
	}
}

// NewClient creates a new policy engine client.
func NewClient(cfg Config, opts ...ClientOption) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &client{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		timeout: cfg.GetEffectiveTimeout(),
		headers: cfg.Headers,
		token:   cfg.Token,
		retry:   cfg.Retry,
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Transport: newTransport()}
	}
	if c.metrics == nil {
		c.metrics = NewMetrics("opagate", nil)
	}
	if cfg.CircuitBreaker.Enabled {
		c.breaker = newBreaker(cfg.CircuitBreaker, c.logger, c.metrics)
	}

	return c, nil
}

func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.IdleConnTimeout = 90 * time.Second
	return t
}

// Evaluate sends input to POST {url}/v1/data/{policyPath}.
func (c *client) Evaluate(ctx context.Context, policyPath string, input *DecisionInput) (*Verdict, error) {
	start := time.Now()

	if policyPath == "" && input != nil {
		policyPath = input.PolicyPath
	}

	ctx, span := tracer.Start(ctx, "policy_engine.evaluate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("policy.path", policyPath)),
	)
	defer span.End()

	verdict, err := c.evaluate(ctx, policyPath, input)
	if err != nil {
		kind := ErrorKind(err)
		c.metrics.RecordRequest("error", time.Since(start))
		c.metrics.RecordError(kind)
		span.SetAttributes(attribute.String("policy.result", "error"), attribute.String("error.kind", kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		return nil, err
	}

	result := "deny"
	if verdict.Allow {
		result = "allow"
	}
	c.metrics.RecordRequest(result, time.Since(start))
	span.SetAttributes(
		attribute.String("policy.result", result),
		attribute.String("policy.decision_id", verdict.DecisionID),
	)
	return verdict, nil
}

func (c *client) evaluate(ctx context.Context, policyPath string, input *DecisionInput) (*Verdict, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: decision input is nil", ErrPolicyEngineProtocolError)
	}
	if err := ValidatePolicyPath(policyPath); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPolicyEngineProtocolError, err)
	}

	body, err := json.Marshal(dataRequest{Input: input})
	if err != nil {
		return nil, fmt.Errorf("%w: encode input: %w", ErrPolicyEngineProtocolError, err)
	}

	endpoint := c.baseURL + dataPathPrefix + escapePolicyPath(policyPath)

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := func() (*Verdict, error) {
		return c.evaluateWithRetry(ctx, callCtx, endpoint, body)
	}
	if c.breaker != nil {
		return c.breaker.execute(call)
	}
	return call()
}

// evaluateWithRetry performs the request, retrying transport failures and
// 5xx/429 responses within the call deadline when retries are enabled.
func (c *client) evaluateWithRetry(parent, ctx context.Context, endpoint string, body []byte) (*Verdict, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.retry.backoff(attempt)
			c.metrics.RecordRetry()
			c.logger.WithContext(parent).Debug("retrying policy engine request",
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(lastErr),
			)

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, c.contextError(parent, ctx, ctx.Err())
			case <-timer.C:
			}
		}

		verdict, err := c.doRequest(parent, ctx, endpoint, body)
		if err == nil {
			return verdict, nil
		}
		lastErr = err

		if !isRetryable(err) {
			break
		}
	}
	return nil, lastErr
}

func isRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	return errors.Is(err, ErrPolicyEngineUnreachable)
}

func (c *client) doRequest(parent, ctx context.Context, endpoint string, body []byte) (*Verdict, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrPolicyEngineProtocolError, err)
	}
	if err := c.setHeaders(ctx, req); err != nil {
		return nil, err
	}
	req.Header.Set(HeaderContentType, ContentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(parent, ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := c.contextError(parent, ctx, nil); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: read response: %w", ErrPolicyEngineProtocolError, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), maxErrorBodyBytes)}
	}

	return parseVerdict(respBody)
}

func (c *client) setHeaders(ctx context.Context, req *http.Request) error {
	req.Header.Set(HeaderAccept, ContentTypeJSON)
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	token := c.token
	if c.tokenSource != nil {
		t, err := c.tokenSource.Token(ctx)
		if err != nil {
			return fmt.Errorf("%w: bearer token: %w", ErrPolicyEngineUnreachable, err)
		}
		token = t
	}
	if token != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	}

	observability.InjectTraceContext(ctx, req.Header)
	return nil
}

// contextError classifies a done context. Cancellation of the inbound
// request is returned as-is; expiry of the call deadline is a timeout.
// It returns fallback when neither context is done.
func (c *client) contextError(parent, ctx context.Context, fallback error) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no decision within %s", ErrPolicyEngineTimeout, c.timeout)
	}
	return fallback
}

func (c *client) transportError(parent, ctx context.Context, err error) error {
	if ctxErr := c.contextError(parent, ctx, nil); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrPolicyEngineTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrPolicyEngineUnreachable, err)
}

// Health probes GET {url}/health.
func (c *client) Health(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, c.baseURL+healthPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrPolicyEngineProtocolError, err)
	}
	if err := c.setHeaders(callCtx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, callCtx, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))

	if resp.StatusCode != http.StatusOK {
		return &HTTPError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Close releases idle connections.
func (c *client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func escapePolicyPath(policyPath string) string {
	segments := strings.Split(strings.Trim(policyPath, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Client = (*client)(nil)
