package auth

import (
	"net/http"
	"strings"
)

// ExtractBearerToken returns the bearer token of the Authorization header.
// It returns ErrNoCredentials when the header is absent and
// ErrInvalidCredentials when it uses another scheme or carries no token.
func ExtractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get(HeaderAuthorization)
	if header == "" {
		return "", ErrNoCredentials
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, AuthSchemeBearer) {
		return "", ErrInvalidCredentials
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidCredentials
	}
	return token, nil
}
