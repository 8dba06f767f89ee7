// Package cache provides the Redis-backed completion cache. Identical prompts
// recur constantly in negotiation threads (re-analysis after an edit, retried
// requests), and model calls are the dominant cost, so completed responses are
// cached under a digest of the rendered prompt.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// defaultTTL keeps entries long enough to absorb request retries and quick
// edits without serving stale strategy for days.
const defaultTTL = 15 * time.Minute

// keyPrefix namespaces completion entries in a shared Redis.
const keyPrefix = "negotiator:completion:"

// RedisCache is a completion cache backed by Redis. Errors are logged and
// treated as misses; Redis being down must never fail a reply request.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures a RedisCache.
type Option func(*RedisCache)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the cache's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *RedisCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Redis completion cache over an existing client.
func New(client *redis.Client, opts ...Option) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    defaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get looks up a cached completion. Any Redis error reads as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	value, err := c.client.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.logger.Warn("Cache read failed, treating as miss", "error", err)
		return "", false
	}
	return value, true
}

// Set stores a completion. Write failures are logged and dropped.
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, keyPrefix+key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("Cache write failed", "error", err)
	}
}
