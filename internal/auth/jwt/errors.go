package jwt

import (
	"errors"
	"fmt"
)

// JWT signing algorithm constants.
const (
	AlgRS256 = "RS256"
	AlgRS384 = "RS384"
	AlgRS512 = "RS512"
	AlgPS256 = "PS256"
	AlgPS384 = "PS384"
	AlgPS512 = "PS512"
	AlgES256 = "ES256"
	AlgES384 = "ES384"
	AlgES512 = "ES512"
	AlgHS256 = "HS256"
	AlgHS384 = "HS384"
	AlgHS512 = "HS512"
	AlgEdDSA = "EdDSA"
)

// Sentinel errors for JWT operations.
var (
	// ErrEmptyToken indicates that the token is empty.
	ErrEmptyToken = errors.New("token is empty")

	// ErrTokenMalformed indicates that the token could not be parsed.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenExpired indicates that the token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenNotYetValid indicates that the token is not yet valid.
	ErrTokenNotYetValid = errors.New("token is not yet valid")

	// ErrTokenInvalidSignature indicates that no trusted key verified the token.
	ErrTokenInvalidSignature = errors.New("token signature is invalid")

	// ErrTokenInvalidIssuer indicates that the token issuer is not trusted.
	ErrTokenInvalidIssuer = errors.New("token issuer is invalid")

	// ErrTokenInvalidAudience indicates that the token audience does not match.
	ErrTokenInvalidAudience = errors.New("token audience is invalid")

	// ErrUnsupportedAlgorithm indicates that the signing algorithm is not accepted.
	ErrUnsupportedAlgorithm = errors.New("signing algorithm is not supported")

	// ErrJWKSFetchFailed indicates that fetching signing keys failed.
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")

	// ErrDiscoveryFailed indicates that OIDC discovery failed.
	ErrDiscoveryFailed = errors.New("OIDC discovery failed")

	// ErrInsecureMetadata indicates a non-https metadata URL while https is required.
	ErrInsecureMetadata = errors.New("metadata address must use https")
)

// ValidationError represents a JWT validation error with details.
type ValidationError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("jwt validation failed: %s: %v", e.Message, e.Cause)
	}
	return "jwt validation failed: " + e.Message
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
