// Package cache provides a small shared key-value store with expiry, used
// for rate limiting counters and operational status markers. The memory
// store serves single-instance deployments; the database store shares state
// between instances through the primary database.
package cache

import (
	"context"
	"time"
)

// Store is the shared cache contract.
type Store interface {
	// IncrementWithTTL bumps the counter behind key, starting a fresh
	// window when none is running, and reports the count and remaining
	// window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}
