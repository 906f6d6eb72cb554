// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"herald/internal/testutil"
)

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Feed</title>
  <entry>
    <title>First post</title>
    <link href="https://example.com/first"/>
    <id>https://example.com/first</id>
    <published>2024-01-01T00:00:00Z</published>
    <summary>Hello.</summary>
  </entry>
  <entry>
    <title>Second post</title>
    <link href="https://example.com/second"/>
    <id>https://example.com/second</id>
    <published>2024-01-02T00:00:00Z</published>
  </entry>
</feed>`

func TestRSSFetch(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", "v1")
		w.Write([]byte(atomFeed))
	}))
	defer ts.Close()

	s := NewRSS("example", ts.URL, nil)
	items, err := s.Fetch(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, len(items), 2)
	testutil.AssertEqual(t, items[0].Identity, "https://example.com/first")
	testutil.AssertEqual(t, items[0].Title, "First post")
	testutil.AssertEqual(t, items[0].Description, "Hello.")
	testutil.AssertEqual(t, items[0].PublishedAt, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestRSSConditionalFetch(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == "v1" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", "v1")
		w.Write([]byte(atomFeed))
	}))
	defer ts.Close()

	s := NewRSS("example", ts.URL, nil)

	items, err := s.Fetch(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(items), 2)

	// Unmodified feed yields zero candidates, not an error.
	items, err = s.Fetch(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, len(items), 0)
}

func TestRSSFetchFailure(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	defer ts.Close()

	s := NewRSS("example", ts.URL, nil)
	_, err := s.Fetch(t.Context())

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("want FetchError, got %v", err)
	}
	testutil.AssertEqual(t, fetchErr.Source, "example")
}
