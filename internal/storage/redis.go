package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisNamespace prefixes every key written by RedisCache.
const DefaultRedisNamespace = "paysplit"

// RedisCache keeps cached values in Redis under a namespace.
type RedisCache struct {
	rdb       *redis.Client
	namespace string
}

// NewRedisCache creates a cache on top of an existing Redis client.
func NewRedisCache(rdb *redis.Client, namespace string) (*RedisCache, error) {
	if rdb == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if namespace == "" {
		namespace = DefaultRedisNamespace
	}
	return &RedisCache{rdb: rdb, namespace: namespace}, nil
}

// Key returns the namespaced Redis key for key.
func (c *RedisCache) Key(key string) string {
	return c.namespace + ":" + key
}

// Ping verifies Redis connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// GetItem returns the value stored under key.
func (c *RedisCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(ctx, key); err != nil {
		return "", false, err
	}

	value, err := c.rdb.Get(ctx, c.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s from Redis: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key without expiry.
func (c *RedisCache) SetItem(ctx context.Context, key, value string) error {
	if err := validateKey(ctx, key); err != nil {
		return err
	}

	if err := c.rdb.Set(ctx, c.Key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s to Redis: %w", key, err)
	}
	return nil
}
