package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	jwxjwt "github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://idp.example.com"
	testAudience = "orders-api"
	testKeyID    = "test-key-id"
)

// testSigner holds an RSA signing key and the matching public JWKS.
type testSigner struct {
	private jwk.Key
	public  jwk.Set
}

func newTestSigner(t *testing.T, kid string) *testSigner {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := jwk.PublicKeyOf(key)
	require.NoError(t, err)

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	return &testSigner{private: key, public: set}
}

func (s *testSigner) sign(t *testing.T, claims map[string]interface{}) string {
	t.Helper()

	tok := jwxjwt.New()
	for k, v := range claims {
		require.NoError(t, tok.Set(k, v))
	}

	signed, err := jwxjwt.Sign(tok, jwxjwt.WithKey(jwa.RS256, s.private))
	require.NoError(t, err)
	return string(signed)
}

func validClaims() map[string]interface{} {
	return map[string]interface{}{
		jwxjwt.SubjectKey:    "alice",
		jwxjwt.IssuerKey:     testIssuer,
		jwxjwt.AudienceKey:   []string{testAudience},
		jwxjwt.ExpirationKey: time.Now().Add(time.Hour),
		jwxjwt.IssuedAtKey:   time.Now(),
		"role":               "clerk",
	}
}

func newTestValidator(t *testing.T, signer *testSigner) Validator {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Issuer = testIssuer
	cfg.Audience = testAudience

	v, err := NewValidator(&cfg,
		WithKeySet(NewStaticKeySet(signer.public)),
		WithValidatorMetrics(NewMetrics("test", prometheus.NewRegistry())),
	)
	require.NoError(t, err)
	return v
}

func TestNewValidator(t *testing.T) {
	t.Parallel()

	t.Run("nil config returns error", func(t *testing.T) {
		t.Parallel()

		v, err := NewValidator(nil)
		assert.Error(t, err)
		assert.Nil(t, v)
	})

	t.Run("no key source returns error", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		v, err := NewValidator(&cfg)
		assert.Error(t, err)
		assert.Nil(t, v)
	})

	t.Run("jwks url", func(t *testing.T) {
		t.Parallel()

		cfg := DefaultConfig()
		cfg.JWKSUrl = "https://idp.example.com/keys"
		v, err := NewValidator(&cfg, WithValidatorMetrics(NewMetrics("test", prometheus.NewRegistry())))
		require.NoError(t, err)
		assert.NotNil(t, v)
	})
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, testKeyID)
	v := newTestValidator(t, signer)

	t.Run("valid token", func(t *testing.T) {
		t.Parallel()

		claims, err := v.Validate(context.Background(), signer.sign(t, validClaims()))
		require.NoError(t, err)

		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, testIssuer, claims.Issuer)
		assert.Equal(t, []string{testAudience}, claims.Audience)
		assert.Equal(t, "clerk", claims.Raw["role"])
		assert.Equal(t, "alice", claims.Raw["sub"])
		assert.IsType(t, float64(0), claims.Raw["exp"])
	})

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "empty token",
			token:   func(*testing.T) string { return "" },
			wantErr: ErrEmptyToken,
		},
		{
			name:    "malformed token",
			token:   func(*testing.T) string { return "not.a.jwt" },
			wantErr: ErrTokenMalformed,
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				c := validClaims()
				c[jwxjwt.ExpirationKey] = time.Now().Add(-time.Hour)
				return signer.sign(t, c)
			},
			wantErr: ErrTokenExpired,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				c := validClaims()
				c[jwxjwt.NotBeforeKey] = time.Now().Add(time.Hour)
				return signer.sign(t, c)
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "wrong issuer",
			token: func(t *testing.T) string {
				c := validClaims()
				c[jwxjwt.IssuerKey] = "https://evil.example.com"
				return signer.sign(t, c)
			},
			wantErr: ErrTokenInvalidIssuer,
		},
		{
			name: "wrong audience",
			token: func(t *testing.T) string {
				c := validClaims()
				c[jwxjwt.AudienceKey] = []string{"billing-api"}
				return signer.sign(t, c)
			},
			wantErr: ErrTokenInvalidAudience,
		},
		{
			name: "signed by untrusted key with same kid",
			token: func(t *testing.T) string {
				return newTestSigner(t, testKeyID).sign(t, validClaims())
			},
			wantErr: ErrTokenInvalidSignature,
		},
		{
			name: "disallowed algorithm",
			token: func(t *testing.T) string {
				key, err := jwk.FromRaw([]byte("0123456789abcdef0123456789abcdef"))
				require.NoError(t, err)
				tok := jwxjwt.New()
				require.NoError(t, tok.Set(jwxjwt.SubjectKey, "alice"))
				signed, err := jwxjwt.Sign(tok, jwxjwt.WithKey(jwa.HS256, key))
				require.NoError(t, err)
				return string(signed)
			},
			wantErr: ErrUnsupportedAlgorithm,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := v.Validate(context.Background(), tt.token(t))
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidator_Validate_ClockSkew(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, testKeyID)
	v := newTestValidator(t, signer)

	c := validClaims()
	c[jwxjwt.ExpirationKey] = time.Now().Add(-time.Minute)

	claims, err := v.Validate(context.Background(), signer.sign(t, c))
	require.NoError(t, err, "expiry within the default skew is accepted")
	assert.Equal(t, "alice", claims.Subject)
}

func TestValidator_OIDCDiscovery(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, testKeyID)
	jwksJSON, err := json.Marshal(signer.public)
	require.NoError(t, err)

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	var discoveryCalls atomic.Int32
	mux.HandleFunc(wellKnownPath, func(w http.ResponseWriter, _ *http.Request) {
		discoveryCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DiscoveryDocument{
			Issuer:  server.URL,
			JWKSURI: server.URL + "/keys",
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON)
	})

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Authority = server.URL
	cfg.Audience = testAudience

	v, err := NewValidator(&cfg, WithValidatorMetrics(NewMetrics("test", prometheus.NewRegistry())))
	require.NoError(t, err)
	assert.Equal(t, int32(0), discoveryCalls.Load(), "discovery is deferred to first use")

	c := validClaims()
	c[jwxjwt.IssuerKey] = server.URL

	for i := 0; i < 2; i++ {
		claims, err := v.Validate(context.Background(), signer.sign(t, c))
		require.NoError(t, err)
		assert.Equal(t, "alice", claims.Subject)
	}
	assert.Equal(t, int32(1), discoveryCalls.Load())
}

func TestValidator_DiscoveryRequiresHTTPS(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, testKeyID)

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Authority = "http://idp.example.com"
	cfg.RequireHTTPSMetadata = true

	v, err := NewValidator(&cfg, WithValidatorMetrics(NewMetrics("test", prometheus.NewRegistry())))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), signer.sign(t, validClaims()))
	assert.ErrorIs(t, err, ErrInsecureMetadata)
	assert.True(t, IsValidationError(err))
}
