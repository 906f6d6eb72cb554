// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package source

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"herald/internal/request"
	"herald/internal/track"
)

// Plurk fetches recent posts matching a query from the Plurk search API and
// keeps the top K by favorite count. Candidates are thus pre-ranked by
// popularity rather than recency; identity is the numeric post ID.
type Plurk struct {
	name  string
	url   string
	topK  int
	httpc *http.Client
}

// NewPlurk returns a Plurk source querying url and keeping the topK most
// favorited posts.
func NewPlurk(name, url string, topK int, httpc *http.Client) *Plurk {
	if topK <= 0 {
		topK = 10
	}
	return &Plurk{
		name:  name,
		url:   url,
		topK:  topK,
		httpc: httpc,
	}
}

// Name implements the [Source] interface.
func (s *Plurk) Name() string { return s.name }

type plurkResponse struct {
	Plurks []plurkPost `json:"plurks"`
}

type plurkPost struct {
	ID            int64  `json:"plurk_id"`
	ContentRaw    string `json:"content_raw"`
	Posted        string `json:"posted"`
	FavoriteCount int    `json:"favorite_count"`
}

// Fetch implements the [Source] interface.
func (s *Plurk) Fetch(ctx context.Context) ([]track.Item, error) {
	resp, err := request.Make[plurkResponse](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        s.url,
		HTTPClient: s.httpc,
	})
	if err != nil {
		return nil, &FetchError{Source: s.name, Err: err}
	}

	posts := slices.Clone(resp.Plurks)
	slices.SortFunc(posts, func(a, b plurkPost) int {
		if c := cmp.Compare(b.FavoriteCount, a.FavoriteCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(posts) > s.topK {
		posts = posts[:s.topK]
	}

	items := make([]track.Item, 0, len(posts))
	for _, p := range posts {
		id := strconv.FormatInt(p.ID, 10)
		it := track.Item{
			Identity: id,
			Title:    p.ContentRaw,
			URL:      "https://www.plurk.com/p/" + strconv.FormatInt(p.ID, 36),
		}
		if ts, err := time.Parse(time.RFC1123, p.Posted); err == nil {
			it.PublishedAt = ts
		}
		items = append(items, it)
	}
	return items, nil
}

var _ Source = (*Plurk)(nil)
