package cache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/wangyizhang/eco-weather-service/internal/models"
)

const keyPrefix = "forecast:"

// MemcachedCache implements Cache using memcached, for deployments that run
// more than one instance behind a load balancer. Entries are JSON-encoded;
// expiry is delegated to memcached's relative expiration.
type MemcachedCache struct {
	client *memcache.Client
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated
// server list (e.g. "localhost:11211,host2:11211"). timeout and maxIdleConns
// fall back to client defaults when zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func (c *MemcachedCache) key(k string) string {
	return keyPrefix + k
}

// Get implements Cache.Get. A memcached miss is (zero, false, nil); transport
// or decode failures surface as errors.
func (c *MemcachedCache) Get(ctx context.Context, key string) (models.AggregatedForecast, bool, error) {
	if ctx.Err() != nil {
		return models.AggregatedForecast{}, false, ctx.Err()
	}
	item, err := c.client.Get(c.key(key))
	if err != nil {
		if err == memcache.ErrCacheMiss {
			return models.AggregatedForecast{}, false, nil
		}
		return models.AggregatedForecast{}, false, err
	}
	var forecast models.AggregatedForecast
	if err := json.Unmarshal(item.Value, &forecast); err != nil {
		return models.AggregatedForecast{}, false, err
	}
	return forecast, true, nil
}

// Set implements Cache.Set.
func (c *MemcachedCache) Set(ctx context.Context, key string, value models.AggregatedForecast, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	expSec := int32(ttl.Seconds())
	const maxRelativeExp = 30 * 24 * 60 * 60 // memcached treats larger values as unix timestamps
	if expSec <= 0 || expSec > maxRelativeExp {
		expSec = 600
	}
	return c.client.Set(&memcache.Item{
		Key:        c.key(key),
		Value:      raw,
		Expiration: expSec,
	})
}

// Ping checks that memcached is reachable. Used by the health handler.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

// Close closes client connections. Call during shutdown.
func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
