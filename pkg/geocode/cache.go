package geocode

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/kass/go-speedlimit/pkg/models"
)

const cacheKeyPrefix = "geocode:"

// Cache is an optional Redis-backed geocoding result cache. Address lookups
// are rate-limited by the upstream providers, so repeated queries for the
// same address should not hit the network twice. A nil client disables
// caching; all operations become no-ops.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps a Redis client as a geocoding cache
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// CacheFromEnv opens a cache from REDIS_ADDR / REDIS_PASS. Returns nil when
// no address is configured, which callers can use directly: a nil Cache is
// safe and never caches.
func CacheFromEnv(ttl time.Duration) *Cache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASS"),
	})
	return NewCache(rdb, ttl)
}

// cacheKey normalizes a query into a cache key: lowercased, inner
// whitespace collapsed
func cacheKey(query string) string {
	return cacheKeyPrefix + strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Get returns a cached location for the query, if any. Cache errors are
// treated as misses.
func (c *Cache) Get(ctx context.Context, query string) (models.Location, bool) {
	if c == nil || c.rdb == nil {
		return models.Location{}, false
	}
	data, err := c.rdb.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		return models.Location{}, false
	}
	var loc models.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return models.Location{}, false
	}
	return loc, true
}

// Set stores a resolved location. Failures are ignored; the cache is an
// optimization, not a dependency.
func (c *Cache) Set(ctx context.Context, query string, loc models.Location) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(loc)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, cacheKey(query), data, c.ttl)
}
