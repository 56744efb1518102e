package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors for authentication operations.
var (
	// ErrNoCredentials indicates that no credentials were provided.
	ErrNoCredentials = errors.New("no credentials provided")

	// ErrInvalidCredentials indicates that the credentials could not be parsed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAuthenticationFailed indicates that authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// AuthError represents an authentication error with additional context.
type AuthError struct {
	Type    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth error (%s): %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth error (%s): %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// Is matches ErrAuthenticationFailed in addition to the wrapped cause.
func (e *AuthError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

// WrapAuthError wraps an error with authentication context.
func WrapAuthError(err error, authType AuthType) error {
	if err == nil {
		return nil
	}
	return &AuthError{
		Type:    string(authType),
		Message: "credential rejected",
		Cause:   err,
	}
}
