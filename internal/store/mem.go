// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package store

import (
	"context"
	"time"

	"herald/internal/syncx"
)

// MemStore is an in-memory implementation of the [Store] interface.
type MemStore struct {
	now   func() time.Time
	cache *syncx.Protected[map[string]memEntry]
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemStore creates a new MemStore. Expired entries are swept every sweep
// interval; a non-positive sweep disables the janitor (entries still expire
// lazily on Get).
func NewMemStore(ctx context.Context, sweep time.Duration) *MemStore {
	s := &MemStore{
		now:   time.Now,
		cache: syncx.Protect(make(map[string]memEntry)),
	}
	if sweep > 0 {
		go s.janitor(ctx, sweep)
	}
	return s
}

func (s *MemStore) janitor(ctx context.Context, sweep time.Duration) {
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := s.now()
			s.cache.Access(func(m map[string]memEntry) {
				for key, e := range m {
					if expired(now, e.expiresAt) {
						delete(m, key)
					}
				}
			})
		case <-ctx.Done():
			return
		}
	}
}

// Get retrieves a value for a given key.
func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	var val []byte
	now := s.now()
	s.cache.Access(func(m map[string]memEntry) {
		e, ok := m[key]
		if !ok {
			return
		}
		if expired(now, e.expiresAt) {
			delete(m, key)
			return
		}
		// Return a copy to prevent the caller from mutating the cache.
		val = append([]byte(nil), e.value...)
	})
	return val, nil
}

// Set stores a value for a given key.
func (s *MemStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{
		// Store a copy to prevent the caller from mutating the cache.
		value:     append([]byte(nil), value...),
		expiresAt: expiry(s.now(), ttl),
	}
	s.cache.Access(func(m map[string]memEntry) {
		m[key] = e
	})
	return nil
}

// Delete removes a key.
func (s *MemStore) Delete(_ context.Context, key string) error {
	s.cache.Access(func(m map[string]memEntry) {
		delete(m, key)
	})
	return nil
}

// Close closes the store.
func (s *MemStore) Close() error { return nil }
