// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"context"
	"fmt"
	"net/http"
	urlpkg "net/url"
	"strings"

	"herald/internal/request"
	"herald/internal/track"
	"herald/internal/version"

	"github.com/PuerkitoBio/goquery"
)

// Board scrapes a forum board: a table of threads where each row links to a
// thread whose URL doubles as its identity.
type Board struct {
	name  string
	url   string
	httpc *http.Client

	// rowSelector matches one thread row; within it, an "a" element carries
	// the thread link and title and an optional "time" element carries the
	// post date in its datetime attribute.
	rowSelector string
}

// NewBoard returns a Board source scraping url with rowSelector.
func NewBoard(name, url, rowSelector string, httpc *http.Client) *Board {
	if httpc == nil {
		httpc = request.DefaultClient
	}
	return &Board{
		name:        name,
		url:         url,
		httpc:       httpc,
		rowSelector: rowSelector,
	}
}

// Name implements the [Source] interface.
func (s *Board) Name() string { return s.name }

// Fetch implements the [Source] interface.
func (s *Board) Fetch(ctx context.Context) ([]track.Item, error) {
	doc, err := fetchDocument(ctx, s.httpc, s.url)
	if err != nil {
		return nil, &FetchError{Source: s.name, Err: err}
	}

	var items []track.Item
	seen := make(map[string]bool)

	doc.Find(s.rowSelector).Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a").First()
		href, ok := link.Attr("href")
		if !ok || href == "" {
			return
		}
		threadURL := resolveURL(s.url, href)
		if threadURL == "" || seen[threadURL] {
			return
		}
		seen[threadURL] = true

		it := track.Item{
			Identity: threadURL,
			Title:    strings.TrimSpace(link.Text()),
			URL:      threadURL,
		}
		if datetime, ok := row.Find("time").First().Attr("datetime"); ok {
			if ts, ok := parseAnyTime(datetime); ok {
				it.PublishedAt = ts
			}
		}
		items = append(items, it)
	})

	return items, nil
}

var _ Source = (*Board)(nil)

func fetchDocument(ctx context.Context, httpc *http.Client, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("want 200, got %d", res.StatusCode)
	}
	return goquery.NewDocumentFromReader(res.Body)
}

func resolveURL(base, href string) string {
	bu, err := urlpkg.Parse(base)
	if err != nil {
		return ""
	}
	hu, err := urlpkg.Parse(href)
	if err != nil {
		return ""
	}
	return bu.ResolveReference(hu).String()
}
