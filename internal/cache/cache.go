// Package cache provides the time-boxed analytics result cache. Values are
// opaque bytes; concurrent writers for the same key are last-writer-wins.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wellnessgrid/backend/internal/metrics"
)

// DefaultTTL is how long analytics payloads stay cached
const DefaultTTL = 30 * time.Minute

// Cache stores serialized values with a TTL
type Cache interface {
	// Get returns the value and true on a hit
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
	Name() string
}

// AnalyticsKey builds "analytics:{user}:{range}:{flags}". Flags are sorted so
// the same set always maps to the same key.
func AnalyticsKey(userID, timeRange string, flags ...string) string {
	sorted := append([]string(nil), flags...)
	sort.Strings(sorted)
	f := strings.Join(sorted, ",")
	if f == "" {
		f = "-"
	}
	return fmt.Sprintf("analytics:%s:%s:%s", userID, timeRange, f)
}

// UserPrefix is the prefix covering every analytics key for a user
func UserPrefix(userID string) string {
	return fmt.Sprintf("analytics:%s:", userID)
}

// ReadThrough serves JSON values from a Cache and collapses concurrent misses
// for the same key into one load.
type ReadThrough[T any] struct {
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewReadThrough wraps c. A zero ttl uses DefaultTTL.
func NewReadThrough[T any](c Cache, ttl time.Duration) *ReadThrough[T] {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ReadThrough[T]{cache: c, ttl: ttl}
}

// Get returns the cached value for key or calls load and stores its result.
// The boolean reports a cache hit. Cache errors are treated as misses.
func (r *ReadThrough[T]) Get(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, bool, error) {
	var zero T

	raw, ok, err := r.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues(r.cache.Name(), "error").Inc()
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.CacheLookups.WithLabelValues(r.cache.Name(), "hit").Inc()
			return v, true, nil
		}
		metrics.CacheLookups.WithLabelValues(r.cache.Name(), "error").Inc()
	default:
		metrics.CacheLookups.WithLabelValues(r.cache.Name(), "miss").Inc()
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(loaded); err == nil {
			// a failed write only costs a future miss
			_ = r.cache.Set(ctx, key, encoded, r.ttl)
		}
		return loaded, nil
	})
	if err != nil {
		return zero, false, err
	}
	return v.(T), false, nil
}

// Invalidate drops every key under prefix
func (r *ReadThrough[T]) Invalidate(ctx context.Context, prefix string) error {
	return r.cache.DeletePrefix(ctx, prefix)
}
