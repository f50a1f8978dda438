// Package cache provides response caching for the gateway. Proxied
// upstream reads are cached so repeated edge requests avoid a round
// trip to the platform.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/owasp-blt/blt-gateway/internal/observability"
)

// Common cache errors.
var (
	// ErrCacheMiss indicates that the key was not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheDisabled indicates that caching is disabled.
	ErrCacheDisabled = errors.New("cache disabled")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")
)

// Cache is the caching interface used by upstream-backed handlers.
type Cache interface {
	// Get retrieves a value. Returns ErrCacheMiss if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A TTL of 0 means the
	// entry never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error

	// Close releases cache resources.
	Close() error
}

// Config selects and tunes a cache backend.
type Config struct {
	Enabled    bool          `yaml:"enabled"`
	Type       string        `yaml:"type"` // "memory" or "redis"
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"maxEntries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Cache backend types.
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// New creates a cache from the configuration. A disabled config yields
// a cache whose every operation returns ErrCacheDisabled, so callers
// need no enabled check of their own.
func New(cfg *Config, logger observability.Logger) (Cache, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if !cfg.Enabled {
		return &disabledCache{}, nil
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	switch cfg.Type {
	case TypeMemory, "":
		return newMemoryCache(cfg, logger), nil
	case TypeRedis:
		return newRedisCache(cfg, logger)
	default:
		return nil, errors.New("unknown cache type: " + cfg.Type)
	}
}

type disabledCache struct{}

func (*disabledCache) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheDisabled }

func (*disabledCache) Set(context.Context, string, []byte, time.Duration) error {
	return ErrCacheDisabled
}

func (*disabledCache) Delete(context.Context, string) error { return ErrCacheDisabled }

func (*disabledCache) Close() error { return nil }
