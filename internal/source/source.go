// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package source defines the adapters that turn remote feeds into
// normalized candidate items for reconciliation.
package source

import (
	"context"
	"fmt"

	"herald/internal/track"
)

// Source produces a normalized sequence of candidate items for the current
// fetch cycle.
type Source interface {
	// Name returns the source's stable name, used to derive storage keys.
	Name() string
	// Fetch fetches and parses the feed. A failure is reported as a
	// [*FetchError]; the caller treats it as zero candidates for this cycle,
	// not as fatal.
	Fetch(ctx context.Context) ([]track.Item, error)
}

// FetchError wraps a transport or parse failure of one source.
type FetchError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }
