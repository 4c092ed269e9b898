// Package assets resolves instance handles to asset paths for records
// whose text names no file.
package assets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/newhook/remedy/internal/cachemanager"
	"github.com/newhook/remedy/internal/logentry"
	"github.com/newhook/remedy/internal/logging"
)

// Source looks up the asset path for a handle. ok is false for unknown
// handles.
type Source interface {
	Lookup(ctx context.Context, handle int) (path string, ok bool, err error)
}

// StaticResolver is a fixed handle table, usually loaded from config.
type StaticResolver map[int]string

var (
	_ Source                 = StaticResolver(nil)
	_ logentry.AssetResolver = StaticResolver(nil)
)

// Lookup implements Source.
func (s StaticResolver) Lookup(_ context.Context, handle int) (string, bool, error) {
	path, ok := s[handle]
	return path, ok, nil
}

// PathForInstance implements logentry.AssetResolver.
func (s StaticResolver) PathForInstance(handle int) string {
	return s[handle]
}

// ParseHandles converts a config table keyed by decimal handle strings.
func ParseHandles(table map[string]string) (StaticResolver, error) {
	out := make(StaticResolver, len(table))
	for k, v := range table {
		handle, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("invalid asset handle %q: %w", k, err)
		}
		out[handle] = v
	}
	return out, nil
}

// CachedResolver memoizes a Source. Misses are cached as empty paths so an
// unknown handle is looked up once per TTL.
type CachedResolver struct {
	source Source
	cache  cachemanager.CacheManager[int, string]
	ttl    time.Duration
}

var _ logentry.AssetResolver = (*CachedResolver)(nil)

// NewCachedResolver wraps source with an in-memory cache.
func NewCachedResolver(source Source, ttl time.Duration) *CachedResolver {
	return &CachedResolver{
		source: source,
		cache:  cachemanager.NewInMemoryCacheManager[int, string]("asset-paths", ttl, cachemanager.DefaultCleanupInterval),
		ttl:    ttl,
	}
}

// NewCachedResolverWithCache is NewCachedResolver with an injected cache.
func NewCachedResolverWithCache(source Source, cache cachemanager.CacheManager[int, string], ttl time.Duration) *CachedResolver {
	return &CachedResolver{source: source, cache: cache, ttl: ttl}
}

// Resolve returns the path for handle, consulting the source on a miss.
func (r *CachedResolver) Resolve(ctx context.Context, handle int) (string, error) {
	if path, ok := r.cache.Get(ctx, handle); ok {
		return path, nil
	}
	path, ok, err := r.source.Lookup(ctx, handle)
	if err != nil {
		return "", fmt.Errorf("failed to resolve asset handle %d: %w", handle, err)
	}
	if !ok {
		path = ""
	}
	r.cache.Set(ctx, handle, path, r.ttl)
	return path, nil
}

// PathForInstance implements logentry.AssetResolver. Lookup errors resolve
// to an empty path.
func (r *CachedResolver) PathForInstance(handle int) string {
	path, err := r.Resolve(context.Background(), handle)
	if err != nil {
		logging.Warn("asset lookup failed", "handle", handle, "error", err)
		return ""
	}
	return path
}

// Invalidate drops cached paths so the next lookups hit the source.
func (r *CachedResolver) Invalidate(ctx context.Context, handles ...int) error {
	if len(handles) == 0 {
		return r.cache.Flush(ctx)
	}
	return r.cache.Delete(ctx, handles...)
}
