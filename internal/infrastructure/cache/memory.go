package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache implements ports.Cache in process. It is used when Redis is not
// configured.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates a cache that purges expired entries every
// cleanupInterval.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	return b, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}
