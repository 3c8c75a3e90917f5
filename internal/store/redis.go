// redis.go -- go-redis credential cache.
//
// Caches successful XSTS exchanges so repeated calls with the same access
// token skip both upstream hops. Keys are derived from a hash of the access
// token (built by the handler); raw tokens never appear in Redis keys.
// The cache is strictly optional: every caller treats a cache failure as a
// miss, never as a fatal error.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheDisabled is returned by NopCache so callers (and the health
// endpoint) can tell "no cache configured" apart from a cache failure.
var ErrCacheDisabled = errors.New("credential cache disabled")

// RedisCache wraps a Redis client for credential cache operations.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to Redis and pings it to verify connectivity.
// Call once at startup; the returned cache is safe for concurrent use.
func NewRedisCache(ctx context.Context, redisURL string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{rdb}, nil
}

// Close shuts down the Redis client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// CheckHealth pings Redis.
func (c *RedisCache) CheckHealth(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// SetCredential caches a credential under the given key with a TTL.
func (c *RedisCache) SetCredential(ctx context.Context, key string, cred CachedCredential, ttl time.Duration) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("caching credential: %w", err)
	}
	return nil
}

// GetCredential retrieves a cached credential. Any error, including a plain
// miss, means the caller should run the full exchange.
func (c *RedisCache) GetCredential(ctx context.Context, key string) (*CachedCredential, error) {
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("fetching credential: %w", err)
	}
	var cred CachedCredential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		return nil, fmt.Errorf("parsing credential: %w", err)
	}
	return &cred, nil
}

// NopCache is the stand-in when REDIS_URL is unset. Every read misses and
// every write is dropped.
type NopCache struct{}

func (NopCache) CheckHealth(context.Context) error { return ErrCacheDisabled }

func (NopCache) SetCredential(context.Context, string, CachedCredential, time.Duration) error {
	return ErrCacheDisabled
}

func (NopCache) GetCredential(context.Context, string) (*CachedCredential, error) {
	return nil, ErrCacheDisabled
}
