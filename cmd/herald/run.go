// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"herald/internal/filelock"
	"herald/internal/syncx"
	"herald/internal/track"
)

// run fetches every configured source and announces new items. A failing
// source is logged and never aborts the others.
func (a *announcer) run(ctx context.Context) error {
	if a.sender == nil && !a.dry {
		return errNoWebhook
	}

	// Prevent a slow previous run still executing when the next scheduled
	// tick fires from racing our state writes.
	lock, err := filelock.Acquire(filepath.Join(a.stateDir, ".run.lock"), strconv.Itoa(os.Getpid())+"\n")
	if err != nil {
		if errors.Is(err, filelock.ErrAlreadyLocked) {
			return errAlreadyRunning
		}
		return err
	}
	defer lock.Release()

	wg := syncx.NewLimitedWaitGroup(concurrencyLimit)
	for _, src := range a.sources {
		wg.Go(func() {
			if err := a.cycle(ctx, src); err != nil {
				a.slog.Error("source cycle failed", "source", src.Name, "error", err)
			}
		})
	}
	wg.Wait()

	return nil
}

// cycle runs one reconciliation cycle for src: fetch, merge into the
// current bucket, reconcile against the sent ledger, deliver a bounded
// oldest-first batch and persist whatever changed.
func (a *announcer) cycle(ctx context.Context, src *sourceConfig) error {
	items, err := a.fetch(ctx, src)
	if err != nil {
		// Zero candidates this cycle; nothing was loaded or mutated.
		return err
	}

	scope := a.scopeKey(src)
	bucket, existed, err := track.LoadBucket(ctx, a.store, scope, src.Scope)
	if err != nil {
		return fmt.Errorf("loading bucket %s: %w", scope, err)
	}
	ledger, err := track.LoadLedger(ctx, a.store, track.LedgerKey(src.Name))
	if err != nil {
		return fmt.Errorf("loading ledger for %s: %w", src.Name, err)
	}

	a.rewriteTitles(ctx, src, bucket, items)

	changed := bucket.Merge(items)
	marked := bucket.ReconcileLedger(ledger)

	var delivered int
	if a.test {
		// Smoke check: send the single newest item, leave all state alone.
		if it := bucket.SelectNewest(); it != nil {
			if a.dry {
				a.slog.Info("would announce", "source", src.Name, "item", it.Identity, "title", it.Title)
				return nil
			}
			if err := a.deliver(ctx, src, it); err != nil {
				a.slog.Warn("test delivery failed", "source", src.Name, "item", it.Identity, "error", err)
			}
		}
		return nil
	}

	batch := bucket.SelectForDelivery(src.Limit)
	for i, it := range batch {
		if i > 0 && !a.sleep(ctx, deliveryPace) {
			break
		}

		if a.seen.Seen(it.Identity) {
			// Already delivered by this process, only the durable marking
			// is missing.
			it.MarkSent(a.now())
			ledger.Record(it.Identity, *it.SentAt)
			delivered++
			continue
		}

		if a.dry {
			a.slog.Info("would announce", "source", src.Name, "item", it.Identity, "title", it.Title)
			continue
		}

		if err := a.deliver(ctx, src, it); err != nil {
			// The item stays unsent and is retried on a future cycle.
			a.slog.Warn("delivery failed", "source", src.Name, "item", it.Identity, "error", err)
			continue
		}

		it.MarkSent(a.now())
		ledger.Record(it.Identity, *it.SentAt)
		a.seen.Add(it.Identity)
		delivered++
	}

	a.slog.Debug("cycle finished",
		"source", src.Name,
		"scope", scope,
		"candidates", len(items),
		"delivered", delivered,
		"changed", changed,
		"marked", marked,
	)

	if a.dry {
		return nil
	}

	if changed || marked || delivered > 0 || !existed {
		if err := bucket.Save(ctx, a.store, bucketTTL(src)); err != nil {
			return fmt.Errorf("saving bucket %s: %w", scope, err)
		}
	}
	if err := ledger.Save(ctx, a.store, track.DefaultLedgerCap, ledgerTTL); err != nil {
		return fmt.Errorf("saving ledger for %s: %w", src.Name, err)
	}

	return nil
}

// fetch fetches src and applies its keep_rule.
func (a *announcer) fetch(ctx context.Context, src *sourceConfig) ([]track.Item, error) {
	items, err := src.src.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if src.KeepRule == nil {
		return items, nil
	}
	kept := items[:0]
	for _, it := range items {
		if a.keep(src, it) {
			kept = append(kept, it)
		}
	}
	return kept, nil
}

func (a *announcer) deliver(ctx context.Context, src *sourceConfig, it *track.Tracked) error {
	return a.sender.Send(ctx, a.message(src, it))
}

// rewriteTitles rewrites titles of not yet tracked candidates with Gemini.
// It runs before the merge so the rewritten title is what gets stored and
// is never recomputed for an already tracked item.
func (a *announcer) rewriteTitles(ctx context.Context, src *sourceConfig, bucket *track.Bucket, items []track.Item) {
	if a.geminic == nil {
		return
	}
	for i, it := range items {
		if it.Title == "" {
			continue
		}
		if _, tracked := bucket.Items[it.Identity]; tracked {
			continue
		}
		title, err := a.geminic.GenerateText(ctx,
			"Rewrite the following news title to be concise and factual. Reply with the title only.",
			it.Title)
		if err != nil {
			a.slog.Warn("title rewrite failed", "source", src.Name, "item", it.Identity, "error", err)
			continue
		}
		items[i].Title = title
	}
}

// backfill re-announces every current item of the named source. It reads
// and writes no state: its purpose is replay, not bookkeeping.
func (a *announcer) backfill(ctx context.Context, name string) error {
	if a.sender == nil && !a.dry {
		return errNoWebhook
	}

	var src *sourceConfig
	for _, s := range a.sources {
		if s.Name == name {
			src = s
			break
		}
	}
	if src == nil {
		return fmt.Errorf("%w: %q", errNoSource, name)
	}

	items, err := a.fetch(ctx, src)
	if err != nil {
		return err
	}

	bucket := track.NewBucket(a.scopeKey(src), src.Scope)
	bucket.Merge(items)

	for i, it := range bucket.Ordered() {
		if i > 0 && !a.sleep(ctx, deliveryPace) {
			return ctx.Err()
		}
		if a.dry {
			a.slog.Info("would announce", "source", src.Name, "item", it.Identity, "title", it.Title)
			continue
		}
		if err := a.deliver(ctx, src, it); err != nil {
			a.slog.Warn("delivery failed", "source", src.Name, "item", it.Identity, "error", err)
		}
	}

	return nil
}
