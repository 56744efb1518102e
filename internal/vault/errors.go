package vault

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrInvalidAuthConfig indicates incomplete authentication settings.
	ErrInvalidAuthConfig = errors.New("invalid auth configuration")

	// ErrAuthenticationFailed indicates that login to Vault failed.
	ErrAuthenticationFailed = errors.New("vault authentication failed")

	// ErrSecretNotFound indicates that the secret does not exist or was deleted.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrKeyNotFound indicates that the secret has no string value at the key.
	ErrKeyNotFound = errors.New("secret key not found")
)

// VaultError carries the Vault operation and path of a failure.
type VaultError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("vault %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *VaultError) Unwrap() error {
	return e.Err
}
