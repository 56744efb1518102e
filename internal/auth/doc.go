// Package auth authenticates inbound requests and carries the resulting
// Identity in the request context.
//
// The Authenticator validates the bearer token in the Authorization header
// with a jwt.Validator. A request without a token continues as the
// anonymous identity when anonymous access is allowed; a request with an
// invalid token is rejected with 401 before any authorization runs.
//
//	authn, err := auth.NewAuthenticator(validator, auth.WithAllowAnonymous(true))
//	handler := authn.Middleware()(next)
//
// Downstream code reads the caller with IdentityFromContext.
package auth
