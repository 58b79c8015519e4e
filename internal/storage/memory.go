package storage

import (
	"context"
	"sync"

	"github.com/Veraticus/paysplit/internal/common"
)

// MemoryCache is a process-local cache. Values are lost on exit.
type MemoryCache struct {
	items  map[string]string
	mu     sync.RWMutex
	closed bool
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]string)}
}

// GetItem returns the value stored under key.
func (m *MemoryCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := validateKey(ctx, key); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", false, common.ErrCacheClosed
	}
	v, ok := m.items[key]
	return v, ok, nil
}

// SetItem stores value under key.
func (m *MemoryCache) SetItem(ctx context.Context, key, value string) error {
	if err := validateKey(ctx, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return common.ErrCacheClosed
	}
	m.items[key] = value
	return nil
}

// Close makes further calls fail with common.ErrCacheClosed.
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
