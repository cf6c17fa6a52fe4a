package cache

import (
	"context"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// RedisCache stores cache entries in Redis with native TTL support. Meant
// for shared build machines where several packsmith invocations benefit
// from one registry cache.
type RedisCache struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisCache.
type RedisOption func(*RedisCache)

// WithPrefix sets the key prefix. Defaults to "packsmith:cache:".
func WithPrefix(prefix string) RedisOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(addr, password string, db int, opts ...RedisOption) *RedisCache {
	client := backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	c := &RedisCache{
		client: client,
		prefix: "packsmith:cache:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRedisCacheFromClient creates a Redis-backed cache over an existing client.
func NewRedisCacheFromClient(client *backend.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		prefix: "packsmith:cache:",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == backend.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in Redis. A ttl of 0 means no expiration.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), data, ttl).Err()
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
