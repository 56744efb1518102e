package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors of the policy decision client. Each is distinct from a
// deny verdict.
var (
	// ErrPolicyEngineUnreachable indicates a dial, connection or transport
	// failure, or that the circuit breaker is open.
	ErrPolicyEngineUnreachable = errors.New("policy engine unreachable")

	// ErrPolicyEngineTimeout indicates that the per-call deadline expired.
	ErrPolicyEngineTimeout = errors.New("policy engine timeout")

	// ErrPolicyEngineProtocolError indicates a non-2xx status or an
	// unreadable or malformed response.
	ErrPolicyEngineProtocolError = errors.New("policy engine protocol error")
)

// HTTPError is a non-2xx response from the policy engine. It matches
// ErrPolicyEngineProtocolError.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("policy engine returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("policy engine returned status %d: %s", e.StatusCode, e.Body)
}

// Is reports whether target is ErrPolicyEngineProtocolError.
func (e *HTTPError) Is(target error) bool {
	return target == ErrPolicyEngineProtocolError
}

// Retryable reports whether the status is worth another attempt.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// ErrorKind returns the metric label of err: "unreachable", "timeout",
// "protocol", "canceled" or "unknown".
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrPolicyEngineTimeout):
		return "timeout"
	case errors.Is(err, ErrPolicyEngineUnreachable):
		return "unreachable"
	case errors.Is(err, ErrPolicyEngineProtocolError):
		return "protocol"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "unknown"
	}
}

// IsInfrastructureError reports whether err is one of the policy engine
// failures, as opposed to caller cancellation.
func IsInfrastructureError(err error) bool {
	return errors.Is(err, ErrPolicyEngineUnreachable) ||
		errors.Is(err, ErrPolicyEngineTimeout) ||
		errors.Is(err, ErrPolicyEngineProtocolError)
}
