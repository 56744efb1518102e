package gateway

import "errors"

// Sentinel errors for gateway operations.
var (
	// ErrGatewayNotStopped indicates that the gateway is not in
	// stopped state when a start operation is attempted.
	ErrGatewayNotStopped = errors.New("gateway is not in stopped state")

	// ErrGatewayNotRunning indicates that the gateway is not
	// running when a stop operation is attempted.
	ErrGatewayNotRunning = errors.New("gateway is not running")

	// ErrNilConfig indicates that a nil configuration was provided.
	ErrNilConfig = errors.New("configuration is required")

	// ErrNoEnforcer indicates that the router was built without an
	// authorization enforcer.
	ErrNoEnforcer = errors.New("authorization enforcer is required")

	// ErrNoHealthChecker indicates that the router was built without a
	// health checker.
	ErrNoHealthChecker = errors.New("health checker is required")
)
