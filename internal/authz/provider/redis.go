package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/opagate/internal/auth"
	"github.com/vyrodovalexey/opagate/internal/observability"
)

// Redis provider defaults.
const (
	DefaultRedisKeyPrefix = "opagate:attributes:"
	DefaultRedisTimeout   = 100 * time.Millisecond
)

var tracer = otel.Tracer("opagate/context-provider")

// RedisProvider exposes the fields of the Redis hash <keyPrefix><subject>
// kept by an upstream service for the authenticated caller.
type RedisProvider struct {
	base
	client    *redis.Client
	keyPrefix string
	timeout   time.Duration
}

// NewRedisProvider creates a Redis provider over client.
func NewRedisProvider(client *redis.Client, keyPrefix string, timeout time.Duration, opts ...Option) *RedisProvider {
	if timeout <= 0 {
		timeout = DefaultRedisTimeout
	}
	return &RedisProvider{
		base:      newBase(TypeRedis, opts),
		client:    client,
		keyPrefix: keyPrefix,
		timeout:   timeout,
	}
}

// NewRedisClient creates a Redis client from cfg and pings it. A failed
// ping is logged and not fatal; lookups fail soft until Redis is reachable.
func NewRedisClient(ctx context.Context, cfg RedisConfig, logger observability.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.Timeout > 0 {
		opts.ReadTimeout = cfg.Timeout
		opts.WriteTimeout = cfg.Timeout
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis context provider not reachable at startup",
			observability.String("addr", opts.Addr),
			observability.Error(err),
		)
	}

	return client, nil
}

// Extract looks up the caller's attributes. Anonymous callers get no
// lookup; any Redis failure yields empty context.
func (p *RedisProvider) Extract(r *http.Request) ContextData {
	data := ContextData{}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity.IsAnonymous() || identity.Subject == "" {
		return data
	}

	ctx, cancel := context.WithTimeout(r.Context(), p.timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "context_provider.redis",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", "redis")),
	)
	defer span.End()

	fields, err := p.client.HGetAll(ctx, p.keyPrefix+identity.Subject).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		p.fail(r, "redis", err)
		return data
	}

	for k, v := range fields {
		data[k] = v
	}
	return data
}

// Ping pings Redis.
func (p *RedisProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (p *RedisProvider) Close() error {
	return p.client.Close()
}
