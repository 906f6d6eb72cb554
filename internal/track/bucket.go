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

// Bucket is one durable state record: every item observed within one scope,
// keyed by identity.
type Bucket struct {
	Scope     string              `json:"scope"`
	Label     string              `json:"label,omitempty"`
	Items     map[string]*Tracked `json:"items"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// NewBucket returns an empty bucket for scope.
func NewBucket(scope, label string) *Bucket {
	return &Bucket{
		Scope: scope,
		Label: label,
		Items: make(map[string]*Tracked),
	}
}

// LoadBucket reads the bucket stored under scope. A missing or malformed
// entry yields an empty bucket with existed=false: a parse failure degrades
// to a fresh start, trading a possible duplicate delivery for availability.
// The returned error is non-nil only for store I/O failures.
func LoadBucket(ctx context.Context, st store.Store, scope, label string) (b *Bucket, existed bool, err error) {
	raw, err := st.Get(ctx, scope)
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return NewBucket(scope, label), false, nil
	}

	b = new(Bucket)
	if err := json.Unmarshal(raw, b); err != nil {
		logger.WarnContext(ctx, "discarding malformed bucket", "scope", scope, "error", err)
		return NewBucket(scope, label), false, nil
	}

	b.Scope = scope
	if b.Label == "" {
		b.Label = label
	}
	if b.Items == nil {
		b.Items = make(map[string]*Tracked)
	}
	for key, it := range b.Items {
		if !it.normalize() {
			delete(b.Items, key)
		}
	}
	return b, true, nil
}

// Save writes the bucket back as a single atomic put of a fully-formed blob.
func (b *Bucket) Save(ctx context.Context, st store.Store, ttl time.Duration) error {
	b.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return st.Set(ctx, b.Scope, raw, ttl)
}

// Ordered returns the bucket's items in delivery order: ascending by
// publish time with unknown timestamps last, ties broken by ascending
// identity. The order is total and independent of map iteration.
func (b *Bucket) Ordered() []*Tracked {
	items := make([]*Tracked, 0, len(b.Items))
	for _, it := range b.Items {
		items = append(items, it)
	}
	slices.SortFunc(items, compareTracked)
	return items
}

func compareTracked(a, b *Tracked) int {
	am, bm := a.PublishedAtMs, b.PublishedAtMs
	// A missing timestamp sorts last.
	if am == 0 {
		am = 1<<63 - 1
	}
	if bm == 0 {
		bm = 1<<63 - 1
	}
	if c := cmp.Compare(am, bm); c != 0 {
		return c
	}
	return cmp.Compare(a.Identity, b.Identity)
}

// SelectForDelivery returns the unsent items in delivery order, at most
// limit of them. Taking the oldest first guarantees a long backlog drains in
// bounded per-cycle chunks instead of newer items starving older ones.
func (b *Bucket) SelectForDelivery(limit int) []*Tracked {
	var sel []*Tracked
	for _, it := range b.Ordered() {
		if it.Sent {
			continue
		}
		sel = append(sel, it)
		if len(sel) == limit {
			break
		}
	}
	return sel
}

// SelectNewest returns the single newest item regardless of its sent state,
// or nil for an empty bucket. Used by test mode, which trades completeness
// for a quick smoke check and must keep working when everything is already
// sent.
func (b *Bucket) SelectNewest() *Tracked {
	items := b.Ordered()
	if len(items) == 0 {
		return nil
	}
	return items[len(items)-1]
}
