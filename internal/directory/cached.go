package directory

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DefaultCachePrefix namespaces cached lookups in Redis.
const DefaultCachePrefix = "relay:account:"

// CacheStats counts cache outcomes.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Errors uint64 `json:"errors"`
}

// Cached is a cache-aside decorator over another Directory. Positive and
// negative answers are cached with separate TTLs. Redis failures are logged
// and the lookup falls through to the wrapped directory.
type Cached struct {
	next        Directory
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	negativeTTL time.Duration
	logger      *slog.Logger

	group singleflight.Group

	hits   atomic.Uint64
	misses atomic.Uint64
	errors atomic.Uint64
}

// NewCached wraps next with a Redis cache.
func NewCached(next Directory, client *redis.Client, ttl, negativeTTL time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		next:        next,
		client:      client,
		prefix:      DefaultCachePrefix,
		ttl:         ttl,
		negativeTTL: negativeTTL,
		logger:      logger,
	}
}

// AccountExists answers from Redis when possible.
func (c *Cached) AccountExists(ctx context.Context, identity string) (bool, error) {
	key := c.prefix + identity

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.hits.Add(1)
		return val == "1", nil
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
	default:
		c.errors.Add(1)
		c.logger.Warn("account cache get failed", "identity", identity, "error", err)
	}

	// The shared lookup outlives any one caller's cancellation; each caller
	// still stops waiting when its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(identity, func() (any, error) {
		exists, err := c.next.AccountExists(shared, identity)
		if err != nil {
			return false, err
		}

		val, ttl := "1", c.ttl
		if !exists {
			val, ttl = "0", c.negativeTTL
		}
		if err := c.client.Set(shared, key, val, ttl).Err(); err != nil {
			c.errors.Add(1)
			c.logger.Warn("account cache set failed", "identity", identity, "error", err)
		}
		return exists, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Forget drops the cached answer for identity.
func (c *Cached) Forget(ctx context.Context, identity string) error {
	return c.client.Del(ctx, c.prefix+identity).Err()
}

// Stats returns a snapshot of cache counters.
func (c *Cached) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Errors: c.errors.Load(),
	}
}

// Close closes the Redis client.
func (c *Cached) Close() error {
	return c.client.Close()
}
