// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"io"
	"strings"
	"testing"
	"time"

	"herald/internal/logger"
	"herald/internal/testutil"
	"herald/internal/track"
)

func parseTestConfig(t *testing.T, config string) (*announcer, []*sourceConfig) {
	t.Helper()

	l := logger.New(io.Discard)
	a := &announcer{
		now:       time.Now,
		loc:       time.UTC,
		logf:      t.Logf,
		slog:      l.Logger,
		slogLevel: l.Level,
	}
	sources, err := a.parseConfig(config)
	if err != nil {
		t.Fatal(err)
	}
	a.sources = sources
	return a, sources
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	_, sources := parseTestConfig(t, `
sources = [
    source(name = "hn", kind = "rss", url = "https://hnrss.org/newest"),
    source(name = "board", kind = "board", url = "https://forum.example.com", selector = "tr", scope = "snapshot", limit = 3),
    source(name = "plurk", kind = "plurk", url = "https://example.com/api", top_k = 7),
]
`)

	testutil.AssertEqual(t, len(sources), 3)
	testutil.AssertEqual(t, sources[0].Scope, "daily")
	testutil.AssertEqual(t, sources[0].Limit, deliveryLimit)
	testutil.AssertEqual(t, sources[1].Scope, "snapshot")
	testutil.AssertEqual(t, sources[1].Limit, 3)
	testutil.AssertEqual(t, sources[2].TopK, 7)
}

func TestParseConfigErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		config  string
		wantErr string
	}{
		"no sources": {
			config:  `x = 1`,
			wantErr: "sources must be defined",
		},
		"duplicate name": {
			config: `sources = [
			    source(name = "a", kind = "rss", url = "https://example.com"),
			    source(name = "a", kind = "rss", url = "https://example.org"),
			]`,
			wantErr: "duplicate source name",
		},
		"unknown kind": {
			config:  `sources = [source(name = "a", kind = "gopher", url = "gopher://example.com")]`,
			wantErr: "unknown kind",
		},
		"invalid scope": {
			config:  `sources = [source(name = "a", kind = "rss", url = "https://example.com", scope = "weekly")]`,
			wantErr: "invalid scope",
		},
		"positional args": {
			config:  `sources = [source("a")]`,
			wantErr: "unexpected positional arguments",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			l := logger.New(io.Discard)
			a := &announcer{logf: t.Logf, slog: l.Logger, slogLevel: l.Level}
			_, err := a.parseConfig(tc.config)
			if err == nil {
				t.Fatal("want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestKeepRule(t *testing.T) {
	t.Parallel()

	a, sources := parseTestConfig(t, `
sources = [
    source(
        name = "hn",
        kind = "rss",
        url = "https://hnrss.org/newest",
        keep_rule = lambda item: "go" in item.title.lower(),
    ),
]
`)

	src := sources[0]
	testutil.AssertEqual(t, a.keep(src, track.Item{Title: "Going to production"}), true)
	testutil.AssertEqual(t, a.keep(src, track.Item{Title: "Rust news"}), false)
}

func TestFormatRule(t *testing.T) {
	t.Parallel()

	a, sources := parseTestConfig(t, `
sources = [
    source(
        name = "hn",
        kind = "rss",
        url = "https://hnrss.org/newest",
        format = lambda item: item.title + " => " + item.url,
    ),
]
`)

	msg := a.message(sources[0], &track.Tracked{Title: "Hello", URL: "https://example.com/1"})
	testutil.AssertEqual(t, msg.Text, "Hello => https://example.com/1")
	testutil.AssertEqual(t, msg.URL, "")
}

func TestDefaultFormat(t *testing.T) {
	t.Parallel()

	a, sources := parseTestConfig(t, `sources = [source(name = "a", kind = "rss", url = "https://example.com")]`)
	msg := a.message(sources[0], &track.Tracked{
		Title:       "Hello",
		URL:         "https://example.com/1",
		Description: "teaser",
		Thumbnail:   "https://example.com/t.jpg",
	})
	testutil.AssertEqual(t, msg.Text, "Hello")
	testutil.AssertEqual(t, msg.URL, "https://example.com/1")
	testutil.AssertEqual(t, msg.Teaser, "teaser")
	testutil.AssertEqual(t, msg.Thumbnail, "https://example.com/t.jpg")
}

func TestScopeKey(t *testing.T) {
	t.Parallel()

	a, sources := parseTestConfig(t, `
sources = [
    source(name = "daily", kind = "rss", url = "https://example.com"),
    source(name = "snap", kind = "rss", url = "https://example.org", scope = "snapshot"),
]
`)
	a.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	testutil.AssertEqual(t, a.scopeKey(sources[0]), "daily/2024-06-01")
	testutil.AssertEqual(t, a.scopeKey(sources[1]), "snap/snapshot")
}
