package external

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

// breaker wraps gobreaker around decision calls. Only infrastructure
// errors count as failures; deny verdicts and caller cancellation do not.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(cfg BreakerConfig, logger observability.Logger, metrics *Metrics) *breaker {
	threshold := safeIntToUint32(cfg.Threshold)
	halfOpen := safeIntToUint32(cfg.HalfOpenRequests)
	if halfOpen == 0 {
		halfOpen = 1
	}

	settings := gobreaker.Settings{
		Name:        "policy-engine",
		MaxRequests: halfOpen,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsInfrastructureError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("policy engine circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			metrics.SetBreakerState(int(to))

			_, span := tracer.Start(context.Background(), "policy_engine.circuit_breaker",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			span.AddEvent("state_change", trace.WithAttributes(
				attribute.String("circuitbreaker.from", from.String()),
				attribute.String("circuitbreaker.to", to.String()),
			))
			span.End()
		},
	}

	return &breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breaker) execute(fn func() (*Verdict, error)) (*Verdict, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: circuit breaker %s", ErrPolicyEngineUnreachable, b.cb.State())
	}
	if err != nil {
		return nil, err
	}
	return res.(*Verdict), nil
}

func (b *breaker) state() gobreaker.State {
	return b.cb.State()
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// backoff returns the exponential backoff before retry attempt (1-based).
func (c RetryConfig) backoff(attempt int) time.Duration {
	multiplier := c.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 2
	}
	d := float64(c.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if c.MaxBackoff > 0 && d > float64(c.MaxBackoff) {
		d = float64(c.MaxBackoff)
	}
	return time.Duration(d)
}
