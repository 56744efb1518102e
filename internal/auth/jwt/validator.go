package jwt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

// Claims holds the validated claims of a token.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time

	// Raw is every claim of the token in its JSON form (numeric dates,
	// audience as a list).
	Raw map[string]interface{}
}

// Validator validates bearer tokens.
type Validator interface {
	// Validate verifies token and returns its claims.
	Validate(ctx context.Context, token string) (*Claims, error)
}

type validator struct {
	config  *Config
	client  *http.Client
	logger  observability.Logger
	metrics *Metrics

	mu      sync.Mutex
	keySet  KeySet
	issuer  string
	allowed map[string]bool
}

// ValidatorOption is a functional option for the validator.
type ValidatorOption func(*validator)

// WithValidatorLogger sets the logger for the validator.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *validator) {
		v.logger = logger
	}
}

// WithValidatorMetrics sets the metrics for the validator.
func WithValidatorMetrics(metrics *Metrics) ValidatorOption {
	return func(v *validator) {
		v.metrics = metrics
	}
}

// WithKeySet sets the key set, bypassing discovery and JWKS configuration.
func WithKeySet(keySet KeySet) ValidatorOption {
	return func(v *validator) {
		v.keySet = keySet
	}
}

// WithDiscoveryClient sets the HTTP client used for discovery and JWKS.
func WithDiscoveryClient(client *http.Client) ValidatorOption {
	return func(v *validator) {
		v.client = client
	}
}

// NewValidator creates a new token validator. Discovery against the
// authority is deferred to the first validation so a temporarily
// unavailable identity provider does not prevent startup.
func NewValidator(config *Config, opts ...ValidatorOption) (Validator, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	v := &validator{
		config:  config,
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
		logger:  observability.NopLogger(),
		issuer:  config.Issuer,
		allowed: make(map[string]bool, len(config.Algorithms)),
	}
	for _, alg := range config.Algorithms {
		v.allowed[alg] = true
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.keySet == nil && config.Authority == "" && config.JWKSUrl == "" {
		return nil, errors.New("no key source configured")
	}
	if v.metrics == nil {
		v.metrics = NewMetrics("opagate", nil)
	}

	if v.keySet == nil && config.JWKSUrl != "" {
		ks, err := NewJWKSKeySet(config.JWKSUrl,
			WithHTTPClient(v.client),
			WithCacheTTL(config.GetEffectiveJWKSRefresh()),
			WithJWKSLogger(v.logger),
		)
		if err != nil {
			return nil, err
		}
		v.keySet = ks
		if v.issuer == "" {
			v.issuer = strings.TrimSuffix(config.Authority, "/")
		}
	}

	return v, nil
}

// resolve returns the key set and expected issuer, running OIDC discovery
// on first use when only an authority is configured.
func (v *validator) resolve(ctx context.Context) (KeySet, string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.keySet != nil {
		return v.keySet, v.issuer, nil
	}

	doc, err := Discover(ctx, v.client, v.config.Authority, v.config.RequireHTTPSMetadata)
	if err != nil {
		return nil, "", err
	}

	ks, err := NewJWKSKeySet(doc.JWKSURI,
		WithHTTPClient(v.client),
		WithCacheTTL(v.config.GetEffectiveJWKSRefresh()),
		WithJWKSLogger(v.logger),
	)
	if err != nil {
		return nil, "", err
	}

	v.keySet = ks
	if v.issuer == "" {
		v.issuer = doc.Issuer
	}

	v.logger.Info("OIDC discovery completed",
		observability.String("authority", v.config.Authority),
		observability.String("issuer", v.issuer),
		observability.String("jwks_uri", doc.JWKSURI),
	)
	return v.keySet, v.issuer, nil
}

// Validate verifies token and returns its claims.
func (v *validator) Validate(ctx context.Context, token string) (*Claims, error) {
	start := time.Now()

	claims, reason, err := v.validate(ctx, token)
	if err != nil {
		v.metrics.RecordValidation("error", reason, time.Since(start))
		return nil, err
	}

	v.metrics.RecordValidation("success", "", time.Since(start))
	v.logger.Debug("JWT validated",
		observability.String("subject", claims.Subject),
		observability.String("issuer", claims.Issuer),
	)
	return claims, nil
}

func (v *validator) validate(ctx context.Context, token string) (*Claims, string, error) {
	if token == "" {
		return nil, "empty_token", ErrEmptyToken
	}

	msg, err := jws.Parse([]byte(token))
	if err != nil || len(msg.Signatures()) == 0 {
		return nil, "malformed", NewValidationError("parse", ErrTokenMalformed)
	}
	hdr := msg.Signatures()[0].ProtectedHeaders()

	if len(v.allowed) > 0 && !v.allowed[hdr.Algorithm().String()] {
		return nil, "unsupported_algorithm", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, hdr.Algorithm())
	}

	keySet, issuer, err := v.resolve(ctx)
	if err != nil {
		return nil, "keys_unavailable", NewValidationError("resolve signing keys", err)
	}
	set, err := v.keysFor(ctx, keySet, hdr.KeyID())
	if err != nil {
		return nil, "keys_unavailable", NewValidationError("load signing keys", err)
	}

	parseOpts := []jwxjwt.ParseOption{
		jwxjwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)),
		jwxjwt.WithValidate(true),
		jwxjwt.WithAcceptableSkew(v.config.GetEffectiveClockSkew()),
	}
	if issuer != "" {
		parseOpts = append(parseOpts, jwxjwt.WithIssuer(issuer))
	}
	if v.config.Audience != "" {
		parseOpts = append(parseOpts, jwxjwt.WithAudience(v.config.Audience))
	}

	tok, err := jwxjwt.Parse([]byte(token), parseOpts...)
	if err != nil {
		reason, sentinel := classifyParseError(err)
		return nil, reason, NewValidationError("token rejected", fmt.Errorf("%w: %w", sentinel, err))
	}

	claims, err := toClaims(tok)
	if err != nil {
		return nil, "malformed", NewValidationError("claims", fmt.Errorf("%w: %w", ErrTokenMalformed, err))
	}
	return claims, "", nil
}

// keysFor returns the key set, forcing one refresh when kid is unknown so
// rotated keys are picked up before the cache expires.
func (v *validator) keysFor(ctx context.Context, keySet KeySet, kid string) (jwk.Set, error) {
	set, err := keySet.Keys(ctx)
	if err != nil {
		return nil, err
	}
	if kid == "" {
		return set, nil
	}
	if _, ok := set.LookupKeyID(kid); ok {
		return set, nil
	}

	start := time.Now()
	if err := keySet.Refresh(ctx); err != nil {
		v.metrics.RecordJWKSRefresh("error", time.Since(start))
		v.logger.Warn("JWKS refresh for unknown key id failed",
			observability.String("kid", kid),
			observability.Error(err),
		)
		return set, nil
	}
	v.metrics.RecordJWKSRefresh("success", time.Since(start))
	return keySet.Keys(ctx)
}

func classifyParseError(err error) (string, error) {
	switch {
	case errors.Is(err, jwxjwt.ErrTokenExpired()):
		return "expired", ErrTokenExpired
	case errors.Is(err, jwxjwt.ErrTokenNotYetValid()):
		return "not_yet_valid", ErrTokenNotYetValid
	case errors.Is(err, jwxjwt.ErrInvalidIssuer()):
		return "invalid_issuer", ErrTokenInvalidIssuer
	case errors.Is(err, jwxjwt.ErrInvalidAudience()):
		return "invalid_audience", ErrTokenInvalidAudience
	case jwxjwt.IsValidationError(err):
		return "invalid", ErrTokenMalformed
	default:
		return "invalid_signature", ErrTokenInvalidSignature
	}
}

func toClaims(tok jwxjwt.Token) (*Claims, error) {
	data, err := json.Marshal(tok)
	if err != nil {
		return nil, err
	}
	raw := make(map[string]interface{})
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	return &Claims{
		Subject:   tok.Subject(),
		Issuer:    tok.Issuer(),
		Audience:  tok.Audience(),
		ExpiresAt: tok.Expiration(),
		IssuedAt:  tok.IssuedAt(),
		Raw:       raw,
	}, nil
}

var _ Validator = (*validator)(nil)
