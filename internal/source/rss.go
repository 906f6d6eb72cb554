// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"herald/internal/request"
	"herald/internal/track"
	"herald/internal/version"

	"github.com/mmcdole/gofeed"
)

// RSS fetches an RSS or Atom feed.
type RSS struct {
	name  string
	url   string
	httpc *http.Client
	fp    *gofeed.Parser

	// Conditional request state. Kept only in memory: losing it on process
	// recycle costs one full fetch, nothing else.
	etag         string
	lastModified string
}

// NewRSS returns an RSS source fetching url. If httpc is nil,
// [request.DefaultClient] is used.
func NewRSS(name, url string, httpc *http.Client) *RSS {
	if httpc == nil {
		httpc = request.DefaultClient
	}
	return &RSS{
		name:  name,
		url:   url,
		httpc: httpc,
		fp:    gofeed.NewParser(),
	}
}

// Name implements the [Source] interface.
func (s *RSS) Name() string { return s.name }

// Fetch implements the [Source] interface.
func (s *RSS) Fetch(ctx context.Context) ([]track.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &FetchError{Source: s.name, Err: err}
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if s.etag != "" {
		req.Header.Set("If-None-Match", s.etag)
	}
	if s.lastModified != "" {
		req.Header.Set("If-Modified-Since", s.lastModified)
	}

	res, err := s.httpc.Do(req)
	if err != nil {
		return nil, &FetchError{Source: s.name, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotModified {
		return nil, nil
	}
	if res.StatusCode != http.StatusOK {
		const readLimit = 16384 // enough for error messages
		body, _ := io.ReadAll(io.LimitReader(res.Body, readLimit))
		return nil, &FetchError{Source: s.name, Err: fmt.Errorf("want 200, got %d: %s", res.StatusCode, body)}
	}

	feed, err := s.fp.Parse(res.Body)
	if err != nil {
		return nil, &FetchError{Source: s.name, Err: err}
	}

	s.etag = res.Header.Get("ETag")
	if lastModified := res.Header.Get("Last-Modified"); lastModified != "" {
		s.lastModified = lastModified
	}

	items := make([]track.Item, 0, len(feed.Items))
	for _, fi := range feed.Items {
		it := track.Item{
			Identity:    cmp.Or(fi.GUID, fi.Link),
			Title:       fi.Title,
			Description: fi.Description,
			URL:         fi.Link,
		}
		if fi.Image != nil {
			it.Thumbnail = fi.Image.URL
		}
		if fi.PublishedParsed != nil {
			it.PublishedAt = *fi.PublishedParsed
		} else if fi.UpdatedParsed != nil {
			it.PublishedAt = *fi.UpdatedParsed
		}
		items = append(items, it)
	}
	return items, nil
}

var _ Source = (*RSS)(nil)

// parseAnyTime parses ts in the handful of formats feeds actually use.
func parseAnyTime(ts string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC3339,
		time.RFC1123,
		time.RFC1123Z,
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
