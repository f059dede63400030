// Package cache provides an optional Redis-backed cache for full search
// responses, adapted from the teacher platform's internal/searcher/cache
// QueryCache: the same singleflight-guarded GetOrCompute shape, keyed on
// the request instead of a parsed boolean query, and caching a
// cascade.SearchResponse instead of an executor.SearchResult.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/retrieval-cascade/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search-response:"

// Cache is a generic, singleflight-guarded Redis cache keyed by an
// arbitrary string (typically a serialized SearchRequest). Callers
// instantiate it with the type they cache, e.g. Cache[cascade.SearchResponse].
// A tripped circuit breaker turns every Get/Set into an immediate miss
// instead of piling up requests against a Redis that is already down.
type Cache[T any] struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	cb      *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New wraps a Redis client for caching values of type T under a string key.
// m may be nil to skip circuit-breaker-state reporting.
func New[T any](client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *Cache[T] {
	return &Cache[T]{
		client:  client,
		cfg:     cfg,
		cb:      resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{}),
		metrics: m,
		logger:  slog.Default().With("component", "search-cache"),
	}
}

// Get looks up key, returning the cached value and true on a hit.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	var value T
	var hit bool
	cacheKey := c.buildKey(key)
	err := c.cb.Execute(func() error {
		data, gerr := c.client.Get(ctx, cacheKey)
		if gerr != nil {
			if pkgredis.IsNilError(gerr) {
				return nil
			}
			return gerr
		}
		if uerr := json.Unmarshal([]byte(data), &value); uerr != nil {
			return uerr
		}
		hit = true
		return nil
	})
	c.reportBreakerState()
	if err != nil {
		c.logger.Error("cache get failed", "key", cacheKey, "error", err)
		return zero, false
	}
	return value, hit
}

// Set stores value under key with the configured TTL.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) {
	cacheKey := c.buildKey(key)
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", cacheKey, "error", err)
		return
	}
	err = c.cb.Execute(func() error {
		return c.client.Set(ctx, cacheKey, data, c.cfg.CacheTTL)
	})
	c.reportBreakerState()
	if err != nil {
		c.logger.Error("cache set failed", "key", cacheKey, "error", err)
	}
}

func (c *Cache[T]) reportBreakerState() {
	if c.metrics != nil {
		c.metrics.CircuitBreakerState.WithLabelValues("redis-cache").Set(float64(c.cb.GetState()))
	}
}

// GetOrCompute returns the cached value for key if present; otherwise it
// calls computeFn at most once across concurrent callers sharing key
// (via singleflight), caches the result, and returns it.
func (c *Cache[T]) GetOrCompute(ctx context.Context, key string, computeFn func() (T, error)) (T, bool, error) {
	if value, ok := c.Get(ctx, key); ok {
		return value, true, nil
	}
	cacheKey := c.buildKey(key)
	val, err, _ := c.group.Do(cacheKey, func() (any, error) {
		if value, ok := c.Get(ctx, key); ok {
			return value, nil
		}
		value, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, value)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return val.(T), false, nil
}

// Invalidate clears every cached search response.
func (c *Cache[T]) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.cb.Execute(func() error {
		n, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
		deleted = n
		return err
	})
	c.reportBreakerState()
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *Cache[T]) buildKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
