// Package cache provides a small TTL cache abstraction with in-process and
// Redis backends, plus a JSON memoization helper.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores opaque values under string keys with a per-entry TTL.
// A miss is reported as found=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// MemoryCache is an in-process Cache backed by go-cache.
// Thread-safe for concurrent access.
type MemoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache creates an in-process cache. Expired entries are purged every
// cleanupInterval; a non-positive interval disables the janitor.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		c: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get returns the value stored under key if it has not expired.
func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores value under key for ttl. A non-positive ttl never expires.
func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

// Flush removes every entry.
func (m *MemoryCache) Flush() {
	m.c.Flush()
}

// ItemCount returns the number of entries, including expired ones not yet purged.
func (m *MemoryCache) ItemCount() int {
	return m.c.ItemCount()
}

// Memoize returns the cached value for key, or calls fn, caches its result for
// ttl and returns it. The hit result reports whether the value came from the cache.
//
// Cache failures never fail the call: read and write errors are logged and the
// value is computed directly. Errors returned by fn are not cached.
func Memoize[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (value T, hit bool, err error) {
	if c == nil {
		value, err = fn(ctx)
		return value, false, err
	}

	data, found, getErr := c.Get(ctx, key)
	if getErr != nil {
		slog.WarnContext(ctx, "cache read failed, computing value",
			slog.String("key", key),
			slog.String("error", getErr.Error()))
	} else if found {
		var cached T
		jsonErr := json.Unmarshal(data, &cached)
		if jsonErr == nil {
			return cached, true, nil
		}
		slog.WarnContext(ctx, "discarding undecodable cache entry",
			slog.String("key", key),
			slog.String("error", jsonErr.Error()))
	}

	value, err = fn(ctx)
	if err != nil {
		return value, false, err
	}

	encoded, jsonErr := json.Marshal(value)
	if jsonErr != nil {
		slog.WarnContext(ctx, "failed to encode value for cache",
			slog.String("key", key),
			slog.String("error", jsonErr.Error()))
		return value, false, nil
	}
	if setErr := c.Set(ctx, key, encoded, ttl); setErr != nil {
		slog.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", setErr.Error()))
	}
	return value, false, nil
}
