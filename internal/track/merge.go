// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package track

import "time"

// Merge folds the current fetch cycle's candidates into the bucket.
//
// A candidate absent from the bucket is inserted as a new unsent record. A
// candidate already present refreshes only fields that materially differ
// (title, description, thumbnail, link, publish time); an empty candidate
// field never erases a stored value, and Sent/SentAt are never touched.
//
// The returned flag is true iff any insertion or material update occurred;
// pure re-observation of unchanged candidates reports false, so a caller
// can skip the state write entirely.
func (b *Bucket) Merge(candidates []Item) (changed bool) {
	for _, c := range candidates {
		if c.Identity == "" {
			continue
		}

		existing, ok := b.Items[c.Identity]
		if !ok {
			b.Items[c.Identity] = newTracked(c)
			changed = true
			continue
		}

		if refresh(existing, c) {
			changed = true
		}
	}
	return changed
}

func refresh(t *Tracked, c Item) (changed bool) {
	if c.Title != "" && c.Title != t.Title {
		t.Title = c.Title
		changed = true
	}
	if c.Description != "" && c.Description != t.Description {
		t.Description = c.Description
		changed = true
	}
	if c.Thumbnail != "" && c.Thumbnail != t.Thumbnail {
		t.Thumbnail = c.Thumbnail
		changed = true
	}
	if c.URL != "" && c.URL != t.URL {
		t.URL = c.URL
		changed = true
	}
	if !c.PublishedAt.IsZero() {
		ms := c.PublishedAt.UnixMilli()
		if ms != t.PublishedAtMs {
			t.PublishedAt = c.PublishedAt.UTC().Format(time.RFC3339)
			t.PublishedAtMs = ms
			changed = true
		}
	}
	return changed
}
