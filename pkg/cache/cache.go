package cache

import (
	"context"
	"time"

	pkgredis "github.com/valeclub/valeclub-backend/pkg/redis"

	"github.com/valeclub/valeclub-backend/pkg/logger"
)

// Cache is a read-through cache with a fixed TTL and stale-fallback-on-error
// semantics. Values are kept past their freshness window so that a failing
// compute can still serve the last known-good payload.
//
// Two keys back each entry: the value key (TTL = ttl + staleWindow) and a
// freshness marker (TTL = ttl). A present marker means the value is fresh;
// an absent marker with a present value means the value is stale but usable.
type Cache struct {
	kv          pkgredis.KV
	logg        *logger.Logger
	staleWindow time.Duration
}

// ComputeFunc produces the serialized payload on a cache miss.
type ComputeFunc func(ctx context.Context) (string, error)

// New builds a Cache. staleWindow bounds how long an expired value may still
// be served when compute fails; zero disables the stale fallback.
func New(kv pkgredis.KV, logg *logger.Logger, staleWindow time.Duration) *Cache {
	return &Cache{kv: kv, logg: logg, staleWindow: staleWindow}
}

// GetOrCompute returns the cached payload for key, recomputing it when the
// freshness window has lapsed. When compute fails and a stale value is still
// held, the stale value is returned and the error is only logged.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (string, error) {
	if c == nil || c.kv == nil {
		return compute(ctx)
	}

	valueKey := c.kv.CacheKey(key)
	freshKey := c.kv.CacheKey(key, "fresh")

	if _, err := c.kv.Get(ctx, freshKey); err == nil {
		if value, err := c.kv.Get(ctx, valueKey); err == nil {
			return value, nil
		}
	}

	value, computeErr := compute(ctx)
	if computeErr == nil {
		if err := c.kv.Set(ctx, valueKey, value, ttl+c.staleWindow); err != nil && c.logg != nil {
			c.logg.Warn(ctx, "cache value write failed")
		}
		if err := c.kv.Set(ctx, freshKey, "1", ttl); err != nil && c.logg != nil {
			c.logg.Warn(ctx, "cache marker write failed")
		}
		return value, nil
	}

	if stale, err := c.kv.Get(ctx, valueKey); err == nil {
		if c.logg != nil {
			c.logg.Error(ctx, "cache compute failed, serving stale value", computeErr)
		}
		return stale, nil
	}

	return "", computeErr
}
