package cache

import (
	"context"
	"sync"
	"time"

	"github.com/freshkeep/backend/internal/domain"
)

// DefaultCleanupInterval is how often expired entries are purged
const DefaultCleanupInterval = 10 * time.Minute

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	value      []byte
	expiration time.Time
}

func (i cacheItem) expired(now time.Time) bool {
	return now.After(i.expiration)
}

// MemoryCache is a thread-safe in-memory cache with TTL support
type MemoryCache struct {
	data      map[string]cacheItem
	mutex     sync.RWMutex
	stop      chan struct{}
	closeOnce sync.Once
}

// NewMemoryCache creates a new in-memory cache and starts its janitor.
// Call Close to stop the janitor.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}

	cache := &MemoryCache{
		data: make(map[string]cacheItem),
		stop: make(chan struct{}),
	}
	go cache.cleanupExpired(cleanupInterval)

	return cache
}

// Get retrieves a copy of the stored value
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists || item.expired(time.Now()) {
		return nil, domain.ErrCacheMiss
	}

	return append([]byte(nil), item.value...), nil
}

// Set stores a copy of value with TTL
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		value:      append([]byte(nil), value...),
		expiration: time.Now().Add(ttl),
	}

	return nil
}

// Close stops the janitor goroutine. The cache stays usable.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.stop) })
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.purge(time.Now())
		case <-c.stop:
			return
		}
	}
}

func (c *MemoryCache) purge(now time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key, item := range c.data {
		if item.expired(now) {
			delete(c.data, key)
		}
	}
}
