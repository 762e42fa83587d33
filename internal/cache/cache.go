// Package cache provides the string key/value cache used for derived data.
//
// Every adapter degrades to a miss or a no-op when its backend fails: the
// cache is a read-side optimisation, so callers never see backend errors.
package cache

import (
	"context"
	"time"
)

// Cache is a string-keyed, string-valued store with per-entry TTL.
type Cache interface {
	// Get returns the cached value and true, or "" and false on miss or failure.
	Get(ctx context.Context, key string) (string, bool)

	// Set stores value under key for ttl. It reports whether the write succeeded.
	Set(ctx context.Context, key, value string, ttl time.Duration) bool

	// Delete removes key. It reports whether the backend accepted the delete.
	Delete(ctx context.Context, key string) bool

	// DeleteMany removes all keys in a single round trip where the backend allows it.
	DeleteMany(ctx context.Context, keys ...string) bool
}

// Pinger is implemented by adapters that can report backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}
