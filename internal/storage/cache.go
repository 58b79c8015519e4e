package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/paysplit/internal/common"
	"github.com/Veraticus/paysplit/internal/service"
	"github.com/redis/go-redis/v9"
)

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a cache backend.
type Options struct {
	Backend        string
	Path           string
	RedisAddr      string
	RedisNamespace string
}

// Open returns a ready-to-use cache for opts.Backend.
func Open(ctx context.Context, opts Options) (service.LocalCache, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		c, err := NewSQLiteCache(opts.Path)
		if err != nil {
			return nil, err
		}
		if err := c.Migrate(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to migrate cache: %w", err)
		}
		slog.Debug("Opened SQLite cache", "path", opts.Path)
		return c, nil

	case BackendRedis:
		if err := validateString(opts.RedisAddr, "redisAddr"); err != nil {
			return nil, err
		}
		c, err := NewRedisCache(redis.NewClient(&redis.Options{Addr: opts.RedisAddr}), opts.RedisNamespace)
		if err != nil {
			return nil, err
		}
		if err := c.Ping(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("failed to reach Redis at %s: %w", opts.RedisAddr, err)
		}
		slog.Debug("Opened Redis cache", "addr", opts.RedisAddr, "namespace", c.namespace)
		return c, nil

	case BackendMemory:
		return NewMemoryCache(), nil

	default:
		return nil, fmt.Errorf("%w: %q", common.ErrCacheBackend, opts.Backend)
	}
}
