package authz

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/opagate/internal/auth"
	"github.com/vyrodovalexey/opagate/internal/authz/external"
	"github.com/vyrodovalexey/opagate/internal/authz/provider"
	"github.com/vyrodovalexey/opagate/internal/observability"
)

var tracer = otel.Tracer("opagate/authz")

// Enforcer authorizes requests against the external policy engine.
type Enforcer struct {
	client   external.Client
	provider provider.Provider
	config   *Config
	paths    *pathMatcher
	logger   observability.Logger
	metrics  *Metrics
}

// Option is a functional option for the Enforcer.
type Option func(*Enforcer)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(e *Enforcer) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(e *Enforcer) {
		e.metrics = metrics
	}
}

// NewEnforcer creates an Enforcer. A nil provider contributes no context.
func NewEnforcer(client external.Client, p provider.Provider, cfg *Config, opts ...Option) (*Enforcer, error) {
	if client == nil {
		return nil, ErrNoPolicyEngine
	}
	if cfg == nil {
		def := DefaultConfig()
		cfg = &def
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Enforcer{
		client:   client,
		provider: p,
		config:   cfg,
		paths:    newPathMatcher(cfg),
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.metrics == nil {
		e.metrics = NewMetrics("opagate", nil)
	}

	return e, nil
}

// Middleware returns the net/http middleware.
func (e *Enforcer) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = withCleanPath(r)
			if e.paths.skip(r.URL.Path) {
				e.metrics.RecordSkip()
				next.ServeHTTP(w, r)
				return
			}
			if e.enforce(w, r, e.decide(r)) {
				next.ServeHTTP(w, r)
			}
		})
	}
}

// GinMiddleware returns the same enforcement point as a gin handler.
func (e *Enforcer) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = withCleanPath(c.Request)
		if e.paths.skip(c.Request.URL.Path) {
			e.metrics.RecordSkip()
			c.Next()
			return
		}
		if e.enforce(c.Writer, c.Request, e.decide(c.Request)) {
			c.Next()
			return
		}
		c.Abort()
	}
}

// withCleanPath returns r with dot-segments and repeated slashes resolved
// in its path. The cleaned path is both evaluated and forwarded.
func withCleanPath(r *http.Request) *http.Request {
	cleaned := cleanPath(r.URL.Path)
	if cleaned == r.URL.Path {
		return r
	}
	r2 := r.Clone(r.Context())
	r2.URL.Path = cleaned
	r2.URL.RawPath = ""
	return r2
}

// decision carries one request through the authorization stages.
type decision struct {
	start      time.Time
	span       trace.Span
	identity   *auth.Identity
	input      *external.DecisionInput
	policyPath string
	verdict    *external.Verdict
	err        error
	outcome    Outcome
}

// stage is one step of authorization. It returns the next stage, or nil
// once the decision has a terminal outcome.
type stage func(r *http.Request, d *decision) stage

func (e *Enforcer) decide(r *http.Request) *decision {
	d := &decision{
		start:      time.Now(),
		policyPath: e.paths.policyPathFor(r.URL.Path),
	}

	for next := stage(e.readIdentity); next != nil; {
		next = next(r, d)
	}
	return d
}

// readIdentity reads the caller identity. A missing identity is anonymous.
func (e *Enforcer) readIdentity(r *http.Request, d *decision) stage {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		identity = auth.AnonymousIdentity()
	}
	d.identity = identity
	return e.buildContext
}

// buildContext runs the provider and assembles the decision input.
func (e *Enforcer) buildContext(r *http.Request, d *decision) stage {
	data := map[string]interface{}{}
	if e.provider != nil {
		for k, v := range e.provider.Extract(r) {
			data[k] = v
		}
	}

	d.input = &external.DecisionInput{
		Identity: d.identity.ClaimsMap(),
		Context:  data,
		Resource: external.Resource{
			Method: r.Method,
			Path:   r.URL.Path,
		},
		PolicyPath: d.policyPath,
	}
	return e.requestDecision
}

// requestDecision asks the engine and classifies the result.
func (e *Enforcer) requestDecision(r *http.Request, d *decision) stage {
	ctx, span := tracer.Start(r.Context(), "authz.decide",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("policy.path", d.policyPath),
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		),
	)
	d.span = span

	d.verdict, d.err = e.client.Evaluate(ctx, d.policyPath, d.input)

	switch {
	case d.err == nil && d.verdict != nil && d.verdict.Allow:
		d.outcome = OutcomeAllowed
	case d.err == nil && d.verdict != nil:
		d.outcome = OutcomeDenied
	case d.err == nil:
		d.err = external.ErrPolicyEngineProtocolError
		d.outcome = e.failureOutcome()
	case r.Context().Err() != nil && !external.IsInfrastructureError(d.err):
		d.outcome = OutcomeCanceled
	default:
		d.outcome = e.failureOutcome()
	}
	return nil
}

func (e *Enforcer) failureOutcome() Outcome {
	if e.config.FailOpen {
		return OutcomeFailOpen
	}
	return OutcomeClientError
}

// enforce applies the terminal outcome of d. It writes the rejection for
// every outcome that stops the request and reports whether the next
// handler may run.
func (e *Enforcer) enforce(w http.ResponseWriter, r *http.Request, d *decision) bool {
	duration := time.Since(d.start)
	e.metrics.RecordDecision(d.outcome, duration)
	e.audit(r, d, duration)
	e.finishSpan(d)

	switch d.outcome {
	case OutcomeAllowed:
		return true

	case OutcomeFailOpen:
		e.logger.WithContext(r.Context()).Warn("policy engine failed, request let through by fail-open",
			observability.String("policy", d.policyPath),
			observability.String("path", r.URL.Path),
			observability.Error(d.err),
		)
		return true

	case OutcomeDenied:
		writeJSON(w, http.StatusForbidden, errorResponse{
			Error:  "access denied",
			Reason: d.verdict.Reason,
		})
		return false

	case OutcomeCanceled:
		w.WriteHeader(StatusClientClosedRequest)
		return false

	default:
		status, code := failureStatus(d.err)
		e.logger.WithContext(r.Context()).Error("policy engine failed, request rejected",
			observability.String("policy", d.policyPath),
			observability.String("path", r.URL.Path),
			observability.String("code", code),
			observability.Error(d.err),
		)
		writeJSON(w, status, errorResponse{
			Error:  "authorization unavailable",
			Reason: failureReason(d.err),
			Code:   code,
		})
		return false
	}
}

// audit writes one log line per decision.
func (e *Enforcer) audit(r *http.Request, d *decision, duration time.Duration) {
	fields := []observability.Field{
		observability.String("subject", d.identity.Subject),
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.String("policy", d.policyPath),
		observability.String("outcome", string(d.outcome)),
		observability.Duration("duration", duration),
	}
	if d.verdict != nil && d.verdict.DecisionID != "" {
		fields = append(fields, observability.String("decision_id", d.verdict.DecisionID))
	}
	if d.verdict != nil && d.verdict.Reason != "" {
		fields = append(fields, observability.String("reason", d.verdict.Reason))
	}
	e.logger.WithContext(r.Context()).Info("authorization decision", fields...)
}

func (e *Enforcer) finishSpan(d *decision) {
	if d.span == nil {
		return
	}
	d.span.SetAttributes(attribute.String("authz.outcome", string(d.outcome)))
	if d.err != nil {
		d.span.RecordError(d.err)
		d.span.SetStatus(codes.Error, string(d.outcome))
	}
	d.span.End()
}

// failureStatus maps an engine error to the response status and code.
func failureStatus(err error) (int, string) {
	switch {
	case errors.Is(err, external.ErrPolicyEngineTimeout):
		return http.StatusGatewayTimeout, CodePolicyEngineTimeout
	case errors.Is(err, external.ErrPolicyEngineProtocolError):
		return http.StatusServiceUnavailable, CodePolicyEngineProtocolError
	default:
		return http.StatusServiceUnavailable, CodePolicyEngineUnreachable
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, external.ErrPolicyEngineTimeout):
		return external.ErrPolicyEngineTimeout.Error()
	case errors.Is(err, external.ErrPolicyEngineProtocolError):
		return external.ErrPolicyEngineProtocolError.Error()
	default:
		return external.ErrPolicyEngineUnreachable.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
