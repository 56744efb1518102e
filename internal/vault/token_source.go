package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"golang.org/x/sync/singleflight"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

// TokenSource reads a bearer token from a KV v2 secret. It is safe for
// concurrent use.
type TokenSource struct {
	config  Config
	api     *vaultapi.Client
	logger  observability.Logger
	metrics *Metrics
	now     func() time.Time

	group singleflight.Group
	// authenticated is only touched by the refresh in flight.
	authenticated bool

	mu        sync.Mutex
	value     string
	fetchedAt time.Time
}

const refreshKey = "token"

// Option is a functional option for the TokenSource.
type Option func(*TokenSource)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(s *TokenSource) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *TokenSource) {
		s.metrics = metrics
	}
}

// NewTokenSource creates a token source. Nothing is read from Vault until
// the first call to Token.
func NewTokenSource(cfg Config, opts ...Option) (*TokenSource, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: vault is disabled", ErrInvalidAuthConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	apiCfg := vaultapi.DefaultConfig()
	if apiCfg.Error != nil {
		return nil, fmt.Errorf("vault config: %w", apiCfg.Error)
	}
	apiCfg.Address = cfg.Address
	apiCfg.Timeout = cfg.Timeout
	apiCfg.MaxRetries = 0

	api, err := vaultapi.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	api.ClearToken()
	if cfg.Namespace != "" {
		api.SetNamespace(cfg.Namespace)
	}

	s := &TokenSource{
		config: cfg,
		api:    api,
		logger: observability.NopLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics("opagate", nil)
	}

	return s, nil
}

// Token returns the cached token. Once the TTL has passed, one refresh
// runs in the background and callers keep getting the previous value
// until it lands. A failed refresh is logged and the previous value stays.
// Without any value yet, callers wait for the refresh until ctx is done.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	value, fetchedAt := s.value, s.fetchedAt
	s.mu.Unlock()

	if value != "" {
		if s.now().Sub(fetchedAt) >= s.config.CacheTTL {
			s.group.DoChan(refreshKey, s.refresh(ctx))
		}
		return value, nil
	}

	select {
	case res := <-s.group.DoChan(refreshKey, s.refresh(ctx)):
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh reads the token once on behalf of every waiting caller. It is
// detached from the caller's cancellation and bounded by the Vault timeout.
func (s *TokenSource) refresh(ctx context.Context) func() (interface{}, error) {
	return func() (interface{}, error) {
		s.mu.Lock()
		if s.value != "" && s.now().Sub(s.fetchedAt) < s.config.CacheTTL {
			value := s.value
			s.mu.Unlock()
			return value, nil
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.Timeout)
		defer cancel()

		value, err := s.read(ctx)
		if err != nil {
			s.mu.Lock()
			cached := s.value != ""
			s.mu.Unlock()
			if cached {
				s.logger.Warn("vault read failed, serving cached policy engine token",
					observability.String("path", s.secretPath()),
					observability.Error(err),
				)
			}
			return "", err
		}

		s.mu.Lock()
		s.value = value
		s.fetchedAt = s.now()
		s.mu.Unlock()
		return value, nil
	}
}

func (s *TokenSource) read(ctx context.Context) (string, error) {
	if !s.authenticated {
		if err := s.authenticate(ctx); err != nil {
			return "", err
		}
		s.authenticated = true
	}

	start := time.Now()
	path := s.secretPath()

	secret, err := s.api.KVv2(s.config.Mount).Get(ctx, s.config.Path)
	if err != nil {
		s.metrics.RecordRequest("kv_read", "error", time.Since(start))
		if errors.Is(err, vaultapi.ErrSecretNotFound) {
			return "", &VaultError{Op: "kv_read", Path: path, Err: ErrSecretNotFound}
		}
		// Log in again on the next read.
		s.authenticated = false
		return "", &VaultError{Op: "kv_read", Path: path, Err: err}
	}

	if secret == nil || secret.Data == nil {
		s.metrics.RecordRequest("kv_read", "error", time.Since(start))
		return "", &VaultError{Op: "kv_read", Path: path, Err: ErrSecretNotFound}
	}

	value, ok := secret.Data[s.config.Key].(string)
	if !ok || value == "" {
		s.metrics.RecordRequest("kv_read", "error", time.Since(start))
		return "", &VaultError{Op: "kv_read", Path: path, Err: fmt.Errorf("%w: %s", ErrKeyNotFound, s.config.Key)}
	}

	s.metrics.RecordRequest("kv_read", "success", time.Since(start))
	s.logger.Debug("policy engine token read from vault", observability.String("path", path))
	return value, nil
}

func (s *TokenSource) authenticate(ctx context.Context) error {
	start := time.Now()
	method := string(s.config.AuthMethod)

	var (
		loginPath string
		data      map[string]interface{}
	)

	switch s.config.AuthMethod {
	case AuthMethodToken:
		s.api.SetToken(s.config.Token)
		s.metrics.RecordRequest("login_"+method, "success", time.Since(start))
		return nil

	case AuthMethodAppRole:
		loginPath = fmt.Sprintf("auth/%s/login", s.config.AppRole.MountPath)
		data = map[string]interface{}{
			"role_id":   s.config.AppRole.RoleID,
			"secret_id": s.config.AppRole.SecretID,
		}

	case AuthMethodKubernetes:
		jwt, err := os.ReadFile(s.config.Kubernetes.TokenPath)
		if err != nil {
			s.metrics.RecordRequest("login_"+method, "error", time.Since(start))
			return fmt.Errorf("%w: read service account token: %w", ErrAuthenticationFailed, err)
		}
		loginPath = fmt.Sprintf("auth/%s/login", s.config.Kubernetes.MountPath)
		data = map[string]interface{}{
			"role": s.config.Kubernetes.Role,
			"jwt":  strings.TrimSpace(string(jwt)),
		}
	}

	secret, err := s.api.Logical().WriteWithContext(ctx, loginPath, data)
	if err != nil {
		s.metrics.RecordRequest("login_"+method, "error", time.Since(start))
		return fmt.Errorf("%w: %s: %w", ErrAuthenticationFailed, method, err)
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		s.metrics.RecordRequest("login_"+method, "error", time.Since(start))
		return fmt.Errorf("%w: %s: no client token returned", ErrAuthenticationFailed, method)
	}

	s.api.SetToken(secret.Auth.ClientToken)
	s.metrics.RecordRequest("login_"+method, "success", time.Since(start))
	s.logger.Info("authenticated to vault", observability.String("method", method))
	return nil
}

func (s *TokenSource) secretPath() string {
	return s.config.Mount + "/data/" + strings.TrimPrefix(s.config.Path, "/")
}
