// Package cache is the read-through Redis cache for computed analytics.
// Results are keyed by (kind, date, location); recomputation is
// deterministic, so a stale miss only costs CPU, never correctness.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowline-analytics/flowline/internal/metrics"
)

// ErrMiss is returned when a key is absent or the cache is disabled.
var ErrMiss = errors.New("cache miss")

// Cache stores JSON-serialized computation results in Redis.
type Cache struct {
	redis   *redis.Client
	enabled bool
	ttl     time.Duration
}

// New creates a Cache. A nil client or enabled=false yields a cache that
// always misses, so callers need no special path for cacheless deployments.
func New(client *redis.Client, enabled bool, ttl time.Duration) *Cache {
	return &Cache{redis: client, enabled: enabled, ttl: ttl}
}

// IsEnabled returns whether the cache is active.
func (c *Cache) IsEnabled() bool {
	return c.enabled && c.redis != nil
}

// Key builds the canonical cache key for a computation kind, date, and
// optional location.
func Key(kind, date, locationID string) string {
	if locationID == "" {
		locationID = "all"
	}
	return fmt.Sprintf("flowline:%s:%s:%s", kind, date, locationID)
}

// Get unmarshals the cached value for key into out. Returns ErrMiss when
// absent or disabled.
func (c *Cache) Get(ctx context.Context, kind, key string, out interface{}) error {
	if !c.IsEnabled() {
		return ErrMiss
	}
	data, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		metrics.CacheMisses.WithLabelValues(kind).Inc()
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read cache: %w", err)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	metrics.CacheHits.WithLabelValues(kind).Inc()
	return nil
}

// Set stores value under key with the configured TTL. A disabled cache
// silently does nothing.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.IsEnabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for cache: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}

// InvalidateDay drops every cached computation for a date, across kinds
// and locations. Called when new events arrive for that day.
func (c *Cache) InvalidateDay(ctx context.Context, date string) error {
	if !c.IsEnabled() {
		return nil
	}
	pattern := fmt.Sprintf("flowline:*:%s:*", date)
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}
