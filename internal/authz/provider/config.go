package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vyrodovalexey/opagate/internal/observability"
)

// Provider types.
const (
	TypeBody      = "body"
	TypeHeaders   = "headers"
	TypeQuery     = "query"
	TypePath      = "path"
	TypeRedis     = "redis"
	TypeComposite = "composite"
)

// Config selects and configures the context data provider.
type Config struct {
	// Type is one of body, headers, query, path, redis or composite.
	Type string `yaml:"type" json:"type"`

	// MaxBodyBytes caps the body parsed by the body provider.
	MaxBodyBytes int64 `yaml:"maxBodyBytes,omitempty" json:"maxBodyBytes,omitempty"`

	// Headers is the allow-list of the headers provider.
	Headers []string `yaml:"headers,omitempty" json:"headers,omitempty"`

	// Redis configures the redis provider.
	Redis RedisConfig `yaml:"redis,omitempty" json:"redis,omitempty"`

	// Providers are the children of a composite provider, merged in order.
	Providers []Config `yaml:"providers,omitempty" json:"providers,omitempty"`
}

// RedisConfig configures the redis provider.
type RedisConfig struct {
	URL       string        `yaml:"url" json:"url"`
	KeyPrefix string        `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	PoolSize  int           `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`
}

// DefaultConfig returns the default provider configuration: the JSON body
// provider with a 1 MiB cap.
func DefaultConfig() Config {
	return Config{
		Type:         TypeBody,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Redis: RedisConfig{
			KeyPrefix: DefaultRedisKeyPrefix,
			Timeout:   DefaultRedisTimeout,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Type {
	case TypeBody:
		if c.MaxBodyBytes < 0 {
			return errors.New("contextProvider.maxBodyBytes must be non-negative")
		}
	case TypeHeaders:
		if len(c.Headers) == 0 {
			return errors.New("contextProvider.headers is required for the headers provider")
		}
	case TypeQuery, TypePath:
	case TypeRedis:
		if c.Redis.URL == "" {
			return errors.New("contextProvider.redis.url is required for the redis provider")
		}
		if c.Redis.Timeout < 0 {
			return errors.New("contextProvider.redis.timeout must be non-negative")
		}
	case TypeComposite:
		if len(c.Providers) == 0 {
			return errors.New("contextProvider.providers is required for the composite provider")
		}
		for i := range c.Providers {
			if c.Providers[i].Type == TypeComposite {
				return fmt.Errorf("contextProvider.providers[%d]: composite providers cannot be nested", i)
			}
			if err := c.Providers[i].Validate(); err != nil {
				return fmt.Errorf("contextProvider.providers[%d]: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("contextProvider.type %q is not supported", c.Type)
	}
	return nil
}

// New builds the provider described by cfg.
func New(ctx context.Context, cfg Config, logger observability.Logger, opts ...Option) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	opts = append([]Option{WithLogger(logger)}, opts...)

	switch cfg.Type {
	case TypeBody:
		return NewBodyProvider(cfg.MaxBodyBytes, opts...), nil
	case TypeHeaders:
		return NewHeaderProvider(cfg.Headers, opts...), nil
	case TypeQuery:
		return NewQueryProvider(opts...), nil
	case TypePath:
		return NewPathProvider(opts...), nil
	case TypeRedis:
		client, err := NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		return NewRedisProvider(client, cfg.Redis.KeyPrefix, cfg.Redis.Timeout, opts...), nil
	default:
		children := make([]Provider, 0, len(cfg.Providers))
		for _, childCfg := range cfg.Providers {
			child, err := New(ctx, childCfg, logger, opts...)
			if err != nil {
				for _, c := range children {
					_ = Close(c)
				}
				return nil, err
			}
			children = append(children, child)
		}
		return NewCompositeProvider(children, opts...), nil
	}
}
