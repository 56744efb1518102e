package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vyrodovalexey/opagate/internal/auth/jwt"
	"github.com/vyrodovalexey/opagate/internal/observability"
)

// Authenticator handles authentication for HTTP requests.
type Authenticator interface {
	// Authenticate returns the identity of the request. A request without
	// credentials yields the anonymous identity when that is allowed.
	Authenticate(r *http.Request) (*Identity, error)

	// Middleware returns an HTTP middleware that stores the identity in
	// the request context or rejects the request with 401.
	Middleware() func(http.Handler) http.Handler
}

type authenticator struct {
	validator      jwt.Validator
	allowAnonymous bool
	logger         observability.Logger
	metrics        *Metrics
}

// AuthenticatorOption is a functional option for the authenticator.
type AuthenticatorOption func(*authenticator)

// WithAuthenticatorLogger sets the logger.
func WithAuthenticatorLogger(logger observability.Logger) AuthenticatorOption {
	return func(a *authenticator) {
		a.logger = logger
	}
}

// WithAuthenticatorMetrics sets the metrics.
func WithAuthenticatorMetrics(metrics *Metrics) AuthenticatorOption {
	return func(a *authenticator) {
		a.metrics = metrics
	}
}

// WithAllowAnonymous controls whether requests without a token pass as
// the anonymous identity.
func WithAllowAnonymous(allow bool) AuthenticatorOption {
	return func(a *authenticator) {
		a.allowAnonymous = allow
	}
}

// NewAuthenticator creates a new authenticator. A nil validator disables
// token validation: every request is anonymous and a presented token is
// rejected.
func NewAuthenticator(validator jwt.Validator, opts ...AuthenticatorOption) Authenticator {
	a := &authenticator{
		validator:      validator,
		allowAnonymous: true,
		logger:         observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.metrics == nil {
		a.metrics = NewMetrics("opagate", nil)
	}

	return a
}

// Authenticate authenticates an HTTP request.
func (a *authenticator) Authenticate(r *http.Request) (*Identity, error) {
	start := time.Now()

	token, err := ExtractBearerToken(r)
	if errors.Is(err, ErrNoCredentials) {
		if a.allowAnonymous {
			a.metrics.RecordRequest(AuthTypeAnonymous, "success", time.Since(start))
			return AnonymousIdentity(), nil
		}
		a.metrics.RecordRequest(AuthTypeAnonymous, "failure", time.Since(start))
		return nil, err
	}
	if err != nil {
		a.metrics.RecordRequest(AuthTypeJWT, "failure", time.Since(start))
		return nil, WrapAuthError(err, AuthTypeJWT)
	}

	if a.validator == nil {
		a.metrics.RecordRequest(AuthTypeJWT, "failure", time.Since(start))
		return nil, WrapAuthError(errors.New("token validation is not configured"), AuthTypeJWT)
	}

	claims, err := a.validator.Validate(r.Context(), token)
	if err != nil {
		a.metrics.RecordRequest(AuthTypeJWT, "failure", time.Since(start))
		return nil, WrapAuthError(err, AuthTypeJWT)
	}

	a.metrics.RecordRequest(AuthTypeJWT, "success", time.Since(start))
	return claimsToIdentity(claims), nil
}

func claimsToIdentity(claims *jwt.Claims) *Identity {
	return &Identity{
		Subject:   claims.Subject,
		Issuer:    claims.Issuer,
		Audience:  claims.Audience,
		AuthType:  AuthTypeJWT,
		AuthTime:  time.Now(),
		ExpiresAt: claims.ExpiresAt,
		Claims:    claims.Raw,
	}
}

// Middleware returns an HTTP middleware for authentication.
func (a *authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.Authenticate(r)
			if err != nil {
				a.handleAuthError(w, r, err)
				return
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a *authenticator) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.WithContext(r.Context()).Warn("authentication failed",
		observability.String("path", r.URL.Path),
		observability.String("method", r.Method),
		observability.Error(err),
	)

	var message string
	switch {
	case errors.Is(err, ErrNoCredentials):
		message = "authentication required"
		w.Header().Set(HeaderWWWAuthenticate, AuthSchemeBearer)
	case errors.Is(err, jwt.ErrTokenExpired):
		message = "token expired"
		w.Header().Set(HeaderWWWAuthenticate, `Bearer error="invalid_token", error_description="token expired"`)
	default:
		message = "invalid token"
		w.Header().Set(HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
	}

	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

var _ Authenticator = (*authenticator)(nil)
