package cache

import (
	"context"
	"sync"
	"time"

	"github.com/wangyizhang/eco-weather-service/internal/models"
)

// Cache stores one aggregated forecast per canonical region name.
// Get returns the cached value if present and not expired; Set overwrites
// unconditionally. Implementations must make Get/Set on a given key atomic
// with respect to each other.
type Cache interface {
	Get(ctx context.Context, key string) (models.AggregatedForecast, bool, error)
	Set(ctx context.Context, key string, value models.AggregatedForecast, ttl time.Duration) error
}

// InMemoryCache implements Cache with a mutex-guarded map. Expiry is lazy:
// an entry is treated as absent once its TTL has elapsed and is removed on
// the next Get for its key; there is no background sweep.
type InMemoryCache struct {
	mu    sync.Mutex
	data  map[string]cacheEntry
	clock func() time.Time
}

// cacheEntry pairs a stored forecast with the instant it was stored.
type cacheEntry struct {
	value    models.AggregatedForecast
	storedAt time.Time
	ttl      time.Duration
}

// NewInMemoryCache creates an in-memory cache using the wall clock.
func NewInMemoryCache() *InMemoryCache {
	return NewInMemoryCacheWithClock(time.Now)
}

// NewInMemoryCacheWithClock creates an in-memory cache with an injected
// clock, so expiry can be tested deterministically.
func NewInMemoryCacheWithClock(clock func() time.Time) *InMemoryCache {
	return &InMemoryCache{
		data:  make(map[string]cacheEntry),
		clock: clock,
	}
}

// Get returns the entry for key if it exists and now-storedAt < ttl.
// An expired entry is deleted and reported as a miss.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.AggregatedForecast, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return models.AggregatedForecast{}, false, nil
	}
	if c.clock().Sub(entry.storedAt) >= entry.ttl {
		delete(c.data, key)
		return models.AggregatedForecast{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores value for key, replacing any previous entry.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.AggregatedForecast, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:    value,
		storedAt: c.clock(),
		ttl:      ttl,
	}
	return nil
}
