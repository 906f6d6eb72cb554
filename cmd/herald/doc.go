// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Herald fetches content feeds and announces new items to a chat webhook.

It is meant to run as a scheduled job (cron, systemd timer, CI schedule).
Each run fetches every configured source, reconciles the fetched items
against durable state and delivers a small batch of not yet announced
items, oldest first. State survives between runs, so an item is announced
at most once no matter how often herald runs.

# Usage

	$ herald [flags...] <command> [args...]

Commands are:

  - run: fetch all sources and announce new items.
  - sources: list configured sources.
  - backfill: re-announce every current item of the given source, ignoring
    and not touching any saved state.

# Environment Variables

The herald program relies on the following environment variables:

  - WEBHOOK_URL: chat webhook URL where new items are announced. Required
    for run and backfill.
  - STATE_DIRECTORY: directory where herald keeps its state and looks for
    config.star. Defaults to $XDG_STATE_HOME/herald.
  - HERALD_CONFIG: path to the config.star file. Defaults to config.star
    inside the state directory.
  - HERALD_TZ: IANA timezone name used for daily bucket rotation. Defaults
    to UTC.
  - DATABASE_URL: if set, state is kept in this PostgreSQL database instead
    of a JSON file.
  - HERALD_DB: if set, state is kept in this SQLite database instead of a
    JSON file.
  - GEMINI_API_KEY: if set, titles of newly observed items are rewritten
    once with the Gemini API before being stored.

# Configuration

Sources are defined in config.star, written in Starlark, for example:

	sources = [
	    source(
	        name = "hn",
	        kind = "rss",
	        url = "https://hnrss.org/newest",
	        keep_rule = lambda item: "golang" in item.title.lower(),
	    ),
	    source(
	        name = "board",
	        kind = "board",
	        url = "https://forum.example.com/latest",
	        selector = "table.topics tr",
	        scope = "snapshot",
	    ),
	]

Each source has a unique name (used to derive storage keys, so renaming a
source resets its memory), a kind (rss, board, page or plurk), a URL and
optional fields:

  - selector: CSS selector of item rows (board) or item cards (page).
  - heading: CSS selector of the title element inside a page card.
  - scope: "daily" (default) buckets items by calendar day, "snapshot"
    keeps one rolling bucket.
  - limit: maximum items announced per run for this source. Defaults to 5.
  - top_k: for plurk sources, how many top posts to consider.
  - keep_rule: a function taking an item and returning a boolean; items for
    which it returns False are dropped before reconciliation.
  - format: a function taking an item and returning the message text,
    replacing the default link-embed formatting.

The item passed to keep_rule and format is a struct with title, url,
description and thumbnail keys.

# State

For every source herald keeps two records in its store: a bucket holding
all items observed within the current scope window, and a long-lived ledger
remembering what was already announced even after the bucket rotates or
expires. Malformed state is treated as empty rather than fatal. You won't
need to touch these records at all, except from very rare cases.

# Flags

The -dry flag logs what would be announced without sending anything or
saving state. The -test flag announces only the single newest item of each
source and leaves all saved state untouched; use it to check formatting
against the real webhook. The -json flag switches supported commands to
JSON output.
*/
package main

import (
	_ "embed"

	"herald/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
