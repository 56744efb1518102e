package jwt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWKSKeySet(t *testing.T) {
	t.Parallel()

	ks, err := NewJWKSKeySet("")
	assert.Error(t, err)
	assert.Nil(t, ks)

	ks, err = NewJWKSKeySet("https://example.com/keys", WithCacheTTL(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ks.ttl)
}

func TestJWKSKeySet_KeysCachesWithinTTL(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, testKeyID)
	jwksJSON, err := json.Marshal(signer.public)
	require.NoError(t, err)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON)
	}))
	defer server.Close()

	ks, err := NewJWKSKeySet(server.URL, WithCacheTTL(time.Hour))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		set, err := ks.Keys(context.Background())
		require.NoError(t, err)
		_, ok := set.LookupKeyID(testKeyID)
		assert.True(t, ok)
	}

	assert.Equal(t, int32(1), hits.Load())

	stats := ks.Stats()
	assert.Equal(t, server.URL, stats.URL)
	assert.Equal(t, 1, stats.KeyCount)
	assert.Equal(t, int64(1), stats.Refreshes)
	assert.Equal(t, int64(0), stats.Errors)
}

func TestJWKSKeySet_ConcurrentCallersShareOneFetch(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, testKeyID)
	jwksJSON, err := json.Marshal(signer.public)
	require.NoError(t, err)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		time.Sleep(100 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON)
	}))
	defer server.Close()

	ks, err := NewJWKSKeySet(server.URL, WithCacheTTL(time.Hour))
	require.NoError(t, err)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ks.Keys(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, int64(1), ks.Stats().Refreshes)
}

func TestJWKSKeySet_WaitHonorsDeadline(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	defer close(release)

	ks, err := NewJWKSKeySet(server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = ks.Keys(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestJWKSKeySet_RefreshIsRateLimited(t *testing.T) {
	t.Parallel()

	signer := newTestSigner(t, testKeyID)
	jwksJSON, err := json.Marshal(signer.public)
	require.NoError(t, err)

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write(jwksJSON)
	}))
	defer server.Close()

	ks, err := NewJWKSKeySet(server.URL)
	require.NoError(t, err)

	require.NoError(t, ks.Refresh(context.Background()))
	require.NoError(t, ks.Refresh(context.Background()))

	assert.Equal(t, int32(1), hits.Load())
}

func TestJWKSKeySet_FetchError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ks, err := NewJWKSKeySet(server.URL)
	require.NoError(t, err)

	set, err := ks.Keys(context.Background())
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ErrJWKSFetchFailed)
	assert.Equal(t, int64(1), ks.Stats().Errors)
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	t.Run("missing jwks_uri", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"issuer":"x"}`))
		}))
		defer server.Close()

		doc, err := Discover(context.Background(), nil, server.URL, false)
		assert.Nil(t, doc)
		assert.ErrorIs(t, err, ErrDiscoveryFailed)
	})

	t.Run("non-200 status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := Discover(context.Background(), nil, server.URL, false)
		assert.ErrorIs(t, err, ErrDiscoveryFailed)
	})

	t.Run("trailing slash on authority", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, wellKnownPath, r.URL.Path)
			_, _ = w.Write([]byte(`{"issuer":"x","jwks_uri":"http://x/keys"}`))
		}))
		defer server.Close()

		doc, err := Discover(context.Background(), nil, server.URL+"/", false)
		require.NoError(t, err)
		assert.Equal(t, "http://x/keys", doc.JWKSURI)
	})
}
