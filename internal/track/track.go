// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package track implements the cross-run deduplication protocol shared by
// all herald jobs: given a fetched snapshot of items and durable state,
// decide which items were never announced, hand out a bounded batch in a
// deterministic order, and durably remember deliveries.
//
// State lives in two kinds of records. A [Bucket] holds every item observed
// within one scope (a calendar day in a fixed timezone, or one rolling
// snapshot) and expires with the scope. A [Ledger] is a capacity-bounded map
// of delivered-item fingerprints that outlives bucket rotation, so an item
// redelivered into a fresh bucket is still recognized as already sent.
package track

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultLedgerCap is the default maximum number of ledger entries. It is a
// capacity bound rather than a time bound: infrequent sources keep their
// dedup memory for as long as it takes to fill the cap, which at expected
// volume is years of headroom.
const DefaultLedgerCap = 2000

// Hash fingerprints an identity string into a fixed-width token safe to use
// as a storage key.
func Hash(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:8])
}

// DailyScope returns the bucket scope key for source covering the calendar
// day of now in loc.
func DailyScope(source string, now time.Time, loc *time.Location) string {
	return source + "/" + now.In(loc).Format("2006-01-02")
}

// SnapshotScope returns the bucket scope key for source covering one rolling
// snapshot, independent of any time window.
func SnapshotScope(source string) string {
	return source + "/snapshot"
}

// LedgerKey returns the storage key of the sent-ledger for source.
func LedgerKey(source string) string {
	return source + "/ledger"
}
