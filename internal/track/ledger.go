// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package track

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"time"

	"herald/internal/logger"
	"herald/internal/store"
)

// LedgerEntry remembers one delivery.
type LedgerEntry struct {
	SentAt   time.Time `json:"sentAt"`
	Identity string    `json:"identity"`
}

// Ledger is the long-lived sent-ledger: a capacity-bounded map from hashed
// identity to delivery record, independent of any bucket's time window. It
// exists so that a rotated bucket (new day, expired snapshot) does not
// redeliver items the previous bucket already announced.
type Ledger struct {
	key     string
	entries map[string]LedgerEntry
	dirty   bool
}

// LoadLedger reads the ledger stored under key. Missing or malformed
// entries yield an empty ledger, never an error, except for store I/O
// failures.
func LoadLedger(ctx context.Context, st store.Store, key string) (*Ledger, error) {
	l := &Ledger{key: key, entries: make(map[string]LedgerEntry)}

	raw, err := st.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return l, nil
	}
	if err := json.Unmarshal(raw, &l.entries); err != nil {
		logger.WarnContext(ctx, "discarding malformed ledger", "key", key, "error", err)
		l.entries = make(map[string]LedgerEntry)
	}
	return l, nil
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Dirty reports whether the ledger changed since it was loaded and needs to
// be written back.
func (l *Ledger) Dirty() bool { return l.dirty }

// Lookup returns the delivery record for identity, if any.
func (l *Ledger) Lookup(identity string) (LedgerEntry, bool) {
	e, ok := l.entries[Hash(identity)]
	return e, ok
}

// Record upserts the delivery record for identity.
func (l *Ledger) Record(identity string, sentAt time.Time) {
	l.entries[Hash(identity)] = LedgerEntry{
		SentAt:   sentAt.UTC(),
		Identity: identity,
	}
	l.dirty = true
}

// Prune evicts the oldest entries by SentAt until at most limit remain and
// returns how many were removed.
func (l *Ledger) Prune(limit int) (removed int) {
	if len(l.entries) <= limit {
		return 0
	}

	type keyed struct {
		hash  string
		entry LedgerEntry
	}
	all := make([]keyed, 0, len(l.entries))
	for h, e := range l.entries {
		all = append(all, keyed{h, e})
	}
	slices.SortFunc(all, func(a, b keyed) int {
		if c := a.entry.SentAt.Compare(b.entry.SentAt); c != 0 {
			return c
		}
		return cmp.Compare(a.hash, b.hash)
	})

	for _, k := range all[:len(all)-limit] {
		delete(l.entries, k.hash)
		removed++
	}
	l.dirty = true
	return removed
}

// Save prunes the ledger to limit entries and writes it back if it changed.
func (l *Ledger) Save(ctx context.Context, st store.Store, limit int, ttl time.Duration) error {
	if pruned := l.Prune(limit); pruned > 0 {
		logger.DebugContext(ctx, "pruned ledger", "key", l.key, "removed", pruned, "limit", limit)
	}
	if !l.dirty {
		return nil
	}
	raw, err := json.Marshal(l.entries)
	if err != nil {
		return err
	}
	if err := st.Set(ctx, l.key, raw, ttl); err != nil {
		return err
	}
	l.dirty = false
	return nil
}

// ReconcileLedger marks every unsent bucket item that the ledger already
// remembers as sent, copying the ledger's SentAt. A bucket may have been
// recreated while the ledger, with its much longer retention, still
// remembers the delivery; without this step a rotated bucket would
// redeliver old items. It reports whether any item was newly marked, so the
// caller knows to persist the bucket even absent new candidates.
func (b *Bucket) ReconcileLedger(l *Ledger) (marked bool) {
	for _, it := range b.Items {
		if it.Sent {
			continue
		}
		e, ok := l.Lookup(it.Identity)
		if !ok {
			continue
		}
		it.Sent = true
		if it.SentAt == nil {
			sentAt := e.SentAt
			it.SentAt = &sentAt
		}
		marked = true
	}
	return marked
}
