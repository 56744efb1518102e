// Package proxy forwards authorized requests to the upstream service.
package proxy

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for proxy operations.
var (
	// ErrInvalidTargetURL indicates that the upstream URL is invalid.
	ErrInvalidTargetURL = errors.New("invalid target URL")

	// ErrUpstreamTimeout indicates that the upstream request timed out.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrUpstreamUnavailable indicates that the upstream is unavailable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Error types used as metric labels.
const (
	errorTypeTimeout     = "timeout"
	errorTypeCanceled    = "canceled"
	errorTypeUnavailable = "unavailable"
)

// classify maps a transport error to its metric label and sentinel.
func classify(err error) (string, error) {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return errorTypeCanceled, err
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return errorTypeTimeout, ErrUpstreamTimeout
	default:
		return errorTypeUnavailable, ErrUpstreamUnavailable
	}
}
