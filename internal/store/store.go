// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package store implements a key-value store with per-entry expiration,
// backed in-memory, by a JSON file, SQLite or PostgreSQL.
package store

import (
	"context"
	"time"
)

// Store is a generic interface for a key-value store with per-entry
// expiration.
type Store interface {
	// Get retrieves a value for a given key.
	// It must return (nil, nil) if the key is not found or has expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value for a given key. A non-positive ttl means the entry
	// never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close closes the store and releases any resources.
	Close() error
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(now, expiresAt time.Time) bool {
	return !expiresAt.IsZero() && now.After(expiresAt)
}
