package cache

import (
	"context"
	"time"
)

// Store is a byte-oriented query cache shared by read paths and invalidated by
// mutations. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached value and true, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A zero ttl means the store's default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
