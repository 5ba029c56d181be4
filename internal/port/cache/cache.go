// Package cache defines the key-value cache port. The reasoner uses it
// to remember CloudEvent IDs it has already acted on.
package cache

import (
	"context"
	"time"
)

// Cache stores byte values under string keys with per-entry TTLs.
// A miss is reported through the bool, not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
