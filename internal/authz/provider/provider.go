package provider

import (
	"context"
	"io"
	"net/http"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

// ContextData is the context section of a decision input.
type ContextData map[string]interface{}

// Provider extracts context data from a request.
type Provider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Extract returns context data for r. It never returns nil.
	Extract(r *http.Request) ContextData
}

// Close releases resources held by p, if it holds any.
func Close(p Provider) error {
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Ping checks the backing stores of p, if it has any.
func Ping(ctx context.Context, p Provider) error {
	if pinger, ok := p.(interface{ Ping(context.Context) error }); ok {
		return pinger.Ping(ctx)
	}
	return nil
}

// Option is a functional option shared by all providers.
type Option func(*base)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(b *base) {
		b.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(b *base) {
		b.metrics = metrics
	}
}

// base carries the logger and metrics of a provider.
type base struct {
	name    string
	logger  observability.Logger
	metrics *Metrics
}

func newBase(name string, opts []Option) base {
	b := base{
		name:   name,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.metrics == nil {
		b.metrics = NewMetrics("opagate", nil)
	}
	return b
}

// Name returns the provider name.
func (b *base) Name() string {
	return b.name
}

// fail records an absorbed extraction failure.
func (b *base) fail(r *http.Request, reason string, err error) {
	b.metrics.RecordFailure(b.name, reason)
	fields := []observability.Field{
		observability.String("provider", b.name),
		observability.String("reason", reason),
		observability.String("path", r.URL.Path),
	}
	if err != nil {
		fields = append(fields, observability.Error(err))
	}
	b.logger.WithContext(r.Context()).Debug("context extraction failed", fields...)
}
