// Package jwt validates bearer tokens issued by an external identity
// provider.
//
// Signing keys come from a JWKS endpoint, either configured directly or
// located through OIDC discovery on the configured authority:
//
//	validator, err := jwt.NewValidator(ctx, &cfg, jwt.WithValidatorLogger(logger))
//	if err != nil {
//	    return err
//	}
//
//	claims, err := validator.Validate(ctx, token)
//
// Validation checks signature, issuer, audience, expiry and not-before,
// with the configured clock skew. Keys are cached and refreshed after
// jwksRefresh or when a token references an unknown key id.
package jwt
