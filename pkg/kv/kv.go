// Package kv provides a key-value store abstraction used for run claims, so
// that several hosts can share one batch without processing a cell twice.
package kv

import (
	"context"
	"time"
)

// Store defines the key-value operations claims need.
// Keys are strings, values are byte slices.
type Store interface {
	// Get retrieves a value by key. Returns ErrNotFound if key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// SetNX sets a value only if the key doesn't exist (atomic).
	// Returns true if the key was set, false if it already existed.
	// If TTL is 0, the key does not expire.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// DeleteIfEqual removes key only while it still holds value (atomic).
	DeleteIfEqual(ctx context.Context, key string, value []byte) (bool, error)

	// Close closes the connection to the store.
	Close() error
}
