package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

// minForcedRefreshInterval limits how often an unknown key id may force a
// JWKS refetch.
const minForcedRefreshInterval = 30 * time.Second

// KeySet provides the signing keys used to verify tokens.
type KeySet interface {
	// Keys returns the current key set, fetching it when stale.
	Keys(ctx context.Context) (jwk.Set, error)

	// Refresh refetches the key set. Implementations may rate limit it.
	Refresh(ctx context.Context) error
}

// KeySetStats reports JWKS cache statistics.
type KeySetStats struct {
	URL         string
	KeyCount    int
	Refreshes   int64
	Errors      int64
	LastRefresh time.Time
}

// JWKSKeySet caches a remote JSON Web Key Set.
type JWKSKeySet struct {
	url    string
	client *http.Client
	ttl    time.Duration
	logger observability.Logger
	group  singleflight.Group

	mu        sync.RWMutex
	set       jwk.Set
	fetchedAt time.Time
	refreshes int64
	errors    int64
}

// JWKSOption is a functional option for JWKSKeySet.
type JWKSOption func(*JWKSKeySet)

// WithHTTPClient sets the HTTP client used to fetch keys.
func WithHTTPClient(client *http.Client) JWKSOption {
	return func(ks *JWKSKeySet) {
		ks.client = client
	}
}

// WithCacheTTL sets how long fetched keys are trusted.
func WithCacheTTL(ttl time.Duration) JWKSOption {
	return func(ks *JWKSKeySet) {
		ks.ttl = ttl
	}
}

// WithJWKSLogger sets the logger.
func WithJWKSLogger(logger observability.Logger) JWKSOption {
	return func(ks *JWKSKeySet) {
		ks.logger = logger
	}
}

// NewJWKSKeySet creates a key set backed by the JWKS at url. Keys are
// fetched lazily on first use.
func NewJWKSKeySet(url string, opts ...JWKSOption) (*JWKSKeySet, error) {
	if url == "" {
		return nil, errors.New("jwks url is required")
	}

	ks := &JWKSKeySet{
		url:    url,
		client: &http.Client{Timeout: DefaultHTTPTimeout},
		ttl:    DefaultJWKSRefresh,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(ks)
	}
	return ks, nil
}

// Keys returns the cached key set, refreshing it when it is older than the TTL.
func (ks *JWKSKeySet) Keys(ctx context.Context) (jwk.Set, error) {
	ks.mu.RLock()
	set, fetchedAt := ks.set, ks.fetchedAt
	ks.mu.RUnlock()

	if set != nil && time.Since(fetchedAt) < ks.ttl {
		return set, nil
	}

	if err := ks.fetch(ctx, fetchedAt); err != nil {
		if set != nil {
			ks.logger.Warn("serving stale JWKS after refresh failure",
				observability.String("url", ks.url),
				observability.Error(err),
			)
			return set, nil
		}
		return nil, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.set, nil
}

// Refresh refetches the key set unless it was fetched very recently.
func (ks *JWKSKeySet) Refresh(ctx context.Context) error {
	ks.mu.RLock()
	fetchedAt := ks.fetchedAt
	recent := ks.set != nil && time.Since(fetchedAt) < minForcedRefreshInterval
	ks.mu.RUnlock()
	if recent {
		return nil
	}
	return ks.fetch(ctx, fetchedAt)
}

// fetch refetches the key set once for all concurrent callers. A fetch
// that completed after seen satisfies the caller without another request.
// Waiting is bounded by ctx; the fetch itself by the HTTP client timeout.
func (ks *JWKSKeySet) fetch(ctx context.Context, seen time.Time) error {
	ch := ks.group.DoChan("jwks", func() (interface{}, error) {
		ks.mu.RLock()
		fresh := ks.fetchedAt.After(seen)
		ks.mu.RUnlock()
		if fresh {
			return nil, nil
		}
		return nil, ks.download(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ks *JWKSKeySet) download(ctx context.Context) error {
	set, err := jwk.Fetch(ctx, ks.url, jwk.WithHTTPClient(ks.client))

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if err != nil {
		ks.errors++
		return fmt.Errorf("%w: %s: %w", ErrJWKSFetchFailed, ks.url, err)
	}

	ks.set = set
	ks.fetchedAt = time.Now()
	ks.refreshes++

	ks.logger.Debug("JWKS refreshed",
		observability.String("url", ks.url),
		observability.Int("keys", set.Len()),
	)
	return nil
}

// Stats returns cache statistics.
func (ks *JWKSKeySet) Stats() KeySetStats {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	stats := KeySetStats{
		URL:         ks.url,
		Refreshes:   ks.refreshes,
		Errors:      ks.errors,
		LastRefresh: ks.fetchedAt,
	}
	if ks.set != nil {
		stats.KeyCount = ks.set.Len()
	}
	return stats
}

// staticKeySet serves a fixed key set.
type staticKeySet struct {
	set jwk.Set
}

// NewStaticKeySet returns a KeySet that always serves set.
func NewStaticKeySet(set jwk.Set) KeySet {
	return &staticKeySet{set: set}
}

func (s *staticKeySet) Keys(context.Context) (jwk.Set, error) { return s.set, nil }
func (s *staticKeySet) Refresh(context.Context) error           { return nil }

var (
	_ KeySet = (*JWKSKeySet)(nil)
	_ KeySet = (*staticKeySet)(nil)
)
