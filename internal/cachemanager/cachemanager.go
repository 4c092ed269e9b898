// Package cachemanager provides a typed TTL cache on top of go-cache.
package cachemanager

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/newhook/remedy/internal/logging"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 15 * time.Minute
	// NoExpiration keeps an item until it is deleted or flushed.
	NoExpiration = gocache.NoExpiration
)

// CacheManager is a typed key/value cache.
type CacheManager[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	// GetMultiple returns the hits among keys. ok is false when nothing hit.
	GetMultiple(ctx context.Context, keys []K) (map[K]V, bool)
	// GetWithRefresh returns the value and extends its lifetime to ttl.
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}

// InMemoryCacheManager is a process-local CacheManager.
type InMemoryCacheManager[K comparable, V any] struct {
	name  string
	cache *gocache.Cache
}

var _ CacheManager[string, string] = (*InMemoryCacheManager[string, string])(nil)

// NewInMemoryCacheManager creates a cache. name only appears in logs.
func NewInMemoryCacheManager[K comparable, V any](name string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[K, V] {
	return &InMemoryCacheManager[K, V]{
		name:  name,
		cache: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func cacheKey[K comparable](key K) string {
	return fmt.Sprint(key)
}

func (c *InMemoryCacheManager[K, V]) lookup(key K) (V, bool) {
	var zero V
	raw, ok := c.cache.Get(cacheKey(key))
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		logging.Warn("cache value has unexpected type", "cache", c.name, "key", cacheKey(key), "type", fmt.Sprintf("%T", raw))
		return zero, false
	}
	return v, true
}

// Get implements CacheManager.
func (c *InMemoryCacheManager[K, V]) Get(_ context.Context, key K) (V, bool) {
	return c.lookup(key)
}

// GetMultiple implements CacheManager.
func (c *InMemoryCacheManager[K, V]) GetMultiple(_ context.Context, keys []K) (map[K]V, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	var out map[K]V
	for _, key := range keys {
		v, ok := c.lookup(key)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[K]V, len(keys))
		}
		out[key] = v
	}
	return out, out != nil
}

// GetWithRefresh implements CacheManager.
func (c *InMemoryCacheManager[K, V]) GetWithRefresh(_ context.Context, key K, ttl time.Duration) (V, bool) {
	v, ok := c.lookup(key)
	if ok {
		c.cache.Set(cacheKey(key), v, ttl)
	}
	return v, ok
}

// Set implements CacheManager.
func (c *InMemoryCacheManager[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	c.cache.Set(cacheKey(key), value, ttl)
}

// Delete implements CacheManager.
func (c *InMemoryCacheManager[K, V]) Delete(_ context.Context, keys ...K) error {
	for _, key := range keys {
		c.cache.Delete(cacheKey(key))
	}
	return nil
}

// Flush implements CacheManager.
func (c *InMemoryCacheManager[K, V]) Flush(_ context.Context) error {
	c.cache.Flush()
	return nil
}

// Len returns the number of cached items, including expired ones not yet
// cleaned up.
func (c *InMemoryCacheManager[K, V]) Len() int {
	return c.cache.ItemCount()
}
