package cache

import (
	"context"
	"sync"
	"time"

	"weather-average-service/internal/models"
)

// Cache is the capability consumed by the service layer. Get returns the
// cached result if present and not expired, Set stores a result with a TTL.
// Backends are interchangeable; callers must treat any error as a miss.
type Cache interface {
	Get(ctx context.Context, key string) (models.AverageWeather, bool, error)
	Set(ctx context.Context, key string, value models.AverageWeather, ttl time.Duration) error
}

// InMemoryCache implements Cache with a process-local map and per-entry
// expiry. Expired entries are evicted on read. There is no capacity bound;
// the key space rolls over daily (the window anchor is part of every key)
// so growth is bounded by traffic diversity, not time.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     models.AverageWeather
	expiresAt time.Time
}

// NewInMemoryCache creates an empty in-memory cache.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get returns (value, true, nil) on a hit and (zero, false, nil) on a miss.
// An entry whose expiry has passed is deleted and reported as a miss.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.AverageWeather, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		return models.AverageWeather{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.AverageWeather{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores value under key. The entry is served until ttl elapses and is
// removed on the next Get after that.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.AverageWeather, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}
