// Package cache provides the process-wide L2 cache abstraction used by the metadata catalog
// decorator. Cache misses and cache-backend failures are always tolerated -- the source of
// truth is the catalog itself, the cache is a latency optimization only.
package cache

import (
	"context"
	"time"
)

// L2 is a small cross-process string cache, implemented by a Redis client in production and
// an in-memory map in tests.
type L2 interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
