package auth

import (
	"context"
	"time"
)

// Identity represents the caller established by the authentication step.
// It is created once per request and never mutated afterwards.
type Identity struct {
	// Subject is the unique identifier of the caller.
	Subject string `json:"sub"`

	// Issuer is the token issuer.
	Issuer string `json:"iss,omitempty"`

	// Audience is the token audience.
	Audience []string `json:"aud,omitempty"`

	// AuthType is the authentication method used.
	AuthType AuthType `json:"auth_type"`

	// AuthTime is when the authentication occurred.
	AuthTime time.Time `json:"auth_time,omitempty"`

	// ExpiresAt is when the identity expires.
	ExpiresAt time.Time `json:"exp,omitempty"`

	// Claims contains every claim of the validated token.
	Claims map[string]interface{} `json:"claims,omitempty"`
}

// AuthType represents the type of authentication used.
type AuthType string

// Authentication types.
const (
	AuthTypeJWT       AuthType = "jwt"
	AuthTypeAnonymous AuthType = "anonymous"
)

// AnonymousSubject is the subject of the anonymous identity.
const AnonymousSubject = "anonymous"

// IsAnonymous reports whether the identity is the anonymous caller.
func (i *Identity) IsAnonymous() bool {
	return i == nil || i.AuthType == AuthTypeAnonymous
}

// IsExpired returns true if the identity has expired.
func (i *Identity) IsExpired() bool {
	if i.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(i.ExpiresAt)
}

// GetClaim returns a claim value by name.
func (i *Identity) GetClaim(name string) (interface{}, bool) {
	if i == nil || i.Claims == nil {
		return nil, false
	}
	v, ok := i.Claims[name]
	return v, ok
}

// GetClaimString returns a claim value as a string.
func (i *Identity) GetClaimString(name string) string {
	v, ok := i.GetClaim(name)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// ClaimsMap returns a shallow copy of the claims, never nil. Callers may
// modify the returned map without affecting the identity.
func (i *Identity) ClaimsMap() map[string]interface{} {
	if i == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, len(i.Claims))
	for k, v := range i.Claims {
		out[k] = v
	}
	return out
}

// Context key type for identity.
type identityContextKey struct{}

// ContextWithIdentity adds an identity to the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// AnonymousIdentity returns an anonymous identity with no claims.
func AnonymousIdentity() *Identity {
	return &Identity{
		Subject:  AnonymousSubject,
		AuthType: AuthTypeAnonymous,
		AuthTime: time.Now(),
	}
}
