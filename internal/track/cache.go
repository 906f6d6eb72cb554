// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package track

import (
	"time"

	"herald/internal/syncx"
)

// SeenCache is a short-lived in-process cache of delivered identities. It
// only short-circuits duplicate bursts within one process lifetime; the
// durable ledger remains the source of truth, and the cache vanishing on
// process recycle is harmless.
type SeenCache struct {
	ttl     time.Duration
	now     func() time.Time
	entries *syncx.Protected[map[string]time.Time]
}

// NewSeenCache returns a SeenCache whose entries expire after ttl.
func NewSeenCache(ttl time.Duration) *SeenCache {
	return &SeenCache{
		ttl:     ttl,
		now:     time.Now,
		entries: syncx.Protect(make(map[string]time.Time)),
	}
}

// Seen reports whether identity was added within the cache's TTL.
func (c *SeenCache) Seen(identity string) bool {
	var seen bool
	now := c.now()
	c.entries.Access(func(m map[string]time.Time) {
		at, ok := m[Hash(identity)]
		if !ok {
			return
		}
		if now.Sub(at) > c.ttl {
			delete(m, Hash(identity))
			return
		}
		seen = true
	})
	return seen
}

// Add marks identity as seen now.
func (c *SeenCache) Add(identity string) {
	now := c.now()
	c.entries.Access(func(m map[string]time.Time) {
		m[Hash(identity)] = now
	})
}
