// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package track

import "time"

// Item is a candidate item produced by a source adapter for the current
// fetch cycle. Identity must be stable across fetches of the same
// underlying item (a URL, a numeric ID or a feed GUID); items with an empty
// identity are ineligible for tracking and get dropped.
type Item struct {
	Identity    string
	Title       string
	Description string
	Thumbnail   string
	URL         string
	PublishedAt time.Time // zero means unknown
}

// Tracked is the persisted per-item state record inside a bucket.
//
// Once Sent is true, SentAt is non-nil and the record is never selected for
// delivery again; a merge never resets either field.
type Tracked struct {
	Identity      string     `json:"identity"`
	Title         string     `json:"title,omitempty"`
	Description   string     `json:"description,omitempty"`
	Thumbnail     string     `json:"thumbnail,omitempty"`
	URL           string     `json:"link,omitempty"`
	PublishedAt   string     `json:"publishedAt,omitempty"`
	PublishedAtMs int64      `json:"publishedAtMs,omitempty"`
	Sent          bool       `json:"sent"`
	SentAt        *time.Time `json:"sentAt"`
}

// MarkSent records a successful delivery at now.
func (t *Tracked) MarkSent(now time.Time) {
	t.Sent = true
	sentAt := now.UTC()
	t.SentAt = &sentAt
}

func newTracked(it Item) *Tracked {
	t := &Tracked{
		Identity:    it.Identity,
		Title:       it.Title,
		Description: it.Description,
		Thumbnail:   it.Thumbnail,
		URL:         it.URL,
	}
	if !it.PublishedAt.IsZero() {
		t.PublishedAt = it.PublishedAt.UTC().Format(time.RFC3339)
		t.PublishedAtMs = it.PublishedAt.UnixMilli()
	}
	return t
}

// normalize coerces a record loaded from storage into a usable shape.
// It reports false for records that must be dropped.
func (t *Tracked) normalize() bool {
	if t == nil || t.Identity == "" {
		return false
	}
	if t.PublishedAtMs == 0 && t.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, t.PublishedAt); err == nil {
			t.PublishedAtMs = ts.UnixMilli()
		}
	}
	if !t.Sent {
		t.SentAt = nil
	} else if t.SentAt == nil {
		// A sent item without a timestamp stays sent; redelivering would be
		// worse than an inaccurate age. The zero time makes it the first to
		// go when the ledger prunes.
		t.SentAt = new(time.Time)
	}
	return true
}
