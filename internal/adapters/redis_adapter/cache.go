// internal/adapters/redis_adapter/cache.go
package redis_a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

// CacheKeyPrefix defines prefixes for different cache types
type CacheKeyPrefix string

const (
	PrefixReport      CacheKeyPrefix = "report"
	PrefixIdempotency CacheKeyPrefix = "idem"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache provides caching functionality with Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	since   time.Time
}

// Statically assert that *Cache implements the CacheRepository interface.
var _ ports.CacheRepository = (*Cache)(nil)

// NewCache creates a new cache instance
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "cache")),
		since:  time.Now().UTC(),
	}
}

// Set stores a value in cache with default TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores a value in cache with custom TTL
func (c *Cache) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.logger.ErrorContext(ctx, "failed to set cache",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fmt.Errorf("redis set error: %w", err)
	}

	c.sets.Add(1)
	c.logger.DebugContext(ctx, "cache set",
		slog.String("key", key),
		slog.Duration("ttl", ttl))
	return nil
}

// Get retrieves a value from cache
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.misses.Add(1)
			return ErrCacheMiss
		}
		c.logger.ErrorContext(ctx, "failed to get cache",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return fmt.Errorf("redis get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal error: %w", err)
	}

	c.hits.Add(1)
	return nil
}

// Delete removes keys from cache
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.ErrorContext(ctx, "failed to delete cache",
			slog.Any("keys", keys),
			slog.String("error", err.Error()))
		return fmt.Errorf("redis del error: %w", err)
	}

	c.deletes.Add(int64(len(keys)))
	return nil
}

// DeletePattern removes all keys matching a pattern
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan error: %w", err)
	}

	return c.Delete(ctx, keys...)
}

// GetOrSet loads key into dest, calling fetch on a miss. A Redis failure
// falls through to fetch so readers keep working without the cache.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{},
	fetch func() (interface{}, error), ttl time.Duration) error {

	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.WarnContext(ctx, "cache unavailable, loading from source",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	value, err := fetch()
	if err != nil {
		return err
	}

	if err := c.SetWithTTL(ctx, key, value, ttl); err != nil {
		c.logger.WarnContext(ctx, "failed to cache value after fetch",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	return json.Unmarshal(data, dest)
}

// Ping checks if Redis is accessible
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping error: %w", err)
	}
	return nil
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits    int64     `json:"hits"`
	Misses  int64     `json:"misses"`
	Sets    int64     `json:"sets"`
	Deletes int64     `json:"deletes"`
	HitRate float64   `json:"hit_rate"`
	Since   time.Time `json:"since"`
}

// Stats returns counters accumulated since the cache was created
func (c *Cache) Stats() CacheStats {
	stats := CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Sets:    c.sets.Load(),
		Deletes: c.deletes.Load(),
		Since:   c.since,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// BuildKey creates a cache key with prefix
func BuildKey(prefix CacheKeyPrefix, parts ...string) string {
	key := string(prefix)
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
