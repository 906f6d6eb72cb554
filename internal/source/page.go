// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"context"
	"net/http"
	"strings"

	"herald/internal/request"
	"herald/internal/track"

	"github.com/PuerkitoBio/goquery"
)

// Page scrapes a bespoke news page made of article cards.
type Page struct {
	name  string
	url   string
	httpc *http.Client

	// itemSelector matches one article card. Within a card the first "a"
	// links to the article, headingSelector (default "h3") carries the
	// title, "img" an optional thumbnail, and "p" an optional teaser.
	itemSelector    string
	headingSelector string
}

// NewPage returns a Page source scraping url with itemSelector.
func NewPage(name, url, itemSelector, headingSelector string, httpc *http.Client) *Page {
	if httpc == nil {
		httpc = request.DefaultClient
	}
	if headingSelector == "" {
		headingSelector = "h3"
	}
	return &Page{
		name:            name,
		url:             url,
		httpc:           httpc,
		itemSelector:    itemSelector,
		headingSelector: headingSelector,
	}
}

// Name implements the [Source] interface.
func (s *Page) Name() string { return s.name }

// Fetch implements the [Source] interface.
func (s *Page) Fetch(ctx context.Context) ([]track.Item, error) {
	doc, err := fetchDocument(ctx, s.httpc, s.url)
	if err != nil {
		return nil, &FetchError{Source: s.name, Err: err}
	}

	var items []track.Item
	seen := make(map[string]bool)

	doc.Find(s.itemSelector).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Find("a").First().Attr("href")
		if !ok || href == "" {
			return
		}
		articleURL := resolveURL(s.url, href)
		if articleURL == "" || seen[articleURL] {
			return
		}

		title := strings.TrimSpace(card.Find(s.headingSelector).First().Text())
		if title == "" {
			return
		}
		seen[articleURL] = true

		it := track.Item{
			Identity:    articleURL,
			Title:       title,
			Description: strings.TrimSpace(card.Find("p").First().Text()),
			URL:         articleURL,
		}
		if src, ok := card.Find("img").First().Attr("src"); ok {
			it.Thumbnail = resolveURL(s.url, src)
		}
		if datetime, ok := card.Find("time").First().Attr("datetime"); ok {
			if ts, ok := parseAnyTime(datetime); ok {
				it.PublishedAt = ts
			}
		}
		items = append(items, it)
	})

	return items, nil
}

var _ Source = (*Page)(nil)
