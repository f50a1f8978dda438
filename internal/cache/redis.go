package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/owasp-blt/blt-gateway/internal/observability"
)

const redisDialTimeout = 5 * time.Second

// redisCache stores entries in a shared Redis instance so edge nodes
// behind the same Redis see each other's cached responses.
type redisCache struct {
	logger     observability.Logger
	client     *redis.Client
	keyPrefix  string
	defaultTTL time.Duration
}

func newRedisCache(cfg *Config, logger observability.Logger) (*redisCache, error) {
	if cfg.Redis.Address == "" {
		return nil, ErrInvalidConfig
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	keyPrefix := cfg.Redis.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "blt:gateway:"
	}

	logger.Info("redis cache initialized",
		observability.String("address", cfg.Redis.Address),
		observability.String("keyPrefix", keyPrefix),
		observability.Duration("defaultTTL", cfg.TTL))

	return &redisCache{
		logger:     logger,
		client:     client,
		keyPrefix:  keyPrefix,
		defaultTTL: cfg.TTL,
	}, nil
}

// Get implements Cache.
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			getCacheMetrics().misses.WithLabelValues(TypeRedis).Inc()
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	getCacheMetrics().hits.WithLabelValues(TypeRedis).Inc()
	return value, nil
}

// Set implements Cache.
func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	return c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err()
}

// Delete implements Cache.
func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.keyPrefix+key).Err()
}

// Close implements Cache.
func (c *redisCache) Close() error {
	return c.client.Close()
}
