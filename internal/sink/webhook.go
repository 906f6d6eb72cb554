// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package sink

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"herald/internal/request"
	"herald/internal/version"
)

const sendRetryLimit = 5 // N attempts to retry message sending

// Config configures a webhook sender.
type Config struct {
	URL        string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Webhook sends messages to a chat webhook URL.
type Webhook struct {
	url      string
	httpc    *http.Client
	scrubber *strings.Replacer
	slog     *slog.Logger
	sleep    func(context.Context, time.Duration) bool
}

// New returns a webhook sender posting to cfg.URL.
func New(cfg Config) *Webhook {
	s := &Webhook{
		url:   cfg.URL,
		httpc: cfg.HTTPClient,
		slog:  cfg.Logger,
	}
	if s.httpc == nil {
		s.httpc = request.DefaultClient
	}
	if s.slog == nil {
		s.slog = slog.Default()
	}
	s.scrubber = scrubber(cfg.URL)
	s.sleep = sleep
	return s
}

// scrubber hides the webhook token (the last path segment) in error messages.
func scrubber(rawURL string) *strings.Replacer {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.NewReplacer()
	}
	if i := strings.LastIndexByte(u.Path, '/'); i >= 0 && i+1 < len(u.Path) {
		if token := u.Path[i+1:]; token != "" {
			return strings.NewReplacer(token, "[EXPUNGED]")
		}
	}
	return strings.NewReplacer()
}

type webhookMessage struct {
	Content string         `json:"content"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

type webhookEmbed struct {
	Title       string             `json:"title,omitempty"`
	URL         string             `json:"url,omitempty"`
	Description string             `json:"description,omitempty"`
	Thumbnail   *webhookMediaEmbed `json:"thumbnail,omitempty"`
}

type webhookMediaEmbed struct {
	URL string `json:"url"`
}

// Send sends a message to the webhook, retrying requests when rate limited.
func (s *Webhook) Send(ctx context.Context, msg Message) error {
	body := &webhookMessage{Content: msg.Text}
	if msg.URL != "" || msg.Teaser != "" || msg.Thumbnail != "" {
		embed := webhookEmbed{
			Title:       msg.Text,
			URL:         msg.URL,
			Description: msg.Teaser,
		}
		if msg.Thumbnail != "" {
			embed.Thumbnail = &webhookMediaEmbed{URL: msg.Thumbnail}
		}
		body.Content = ""
		body.Embeds = append(body.Embeds, embed)
	}

	var err error
	for range sendRetryLimit {
		err = s.post(ctx, body)
		if err == nil {
			return nil
		}

		retryable, wait := isRateLimited(err)
		if !retryable {
			break
		}

		s.slog.Warn("sending rate limited, waiting", slog.String("message", msg.Text), slog.Duration("wait", wait))
		if !s.sleep(ctx, wait) {
			return ctx.Err()
		}
	}
	return err
}

func (s *Webhook) post(ctx context.Context, body *webhookMessage) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    s.url,
		Body:   body,
		Headers: map[string]string{
			"User-Agent": version.UserAgent(),
		},
		WantStatusCode: http.StatusNoContent,
		HTTPClient:     s.httpc,
		Scrubber:       s.scrubber,
	})
	// Some webhook implementations respond with 200 and a body instead of 204.
	var statusErr *request.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusOK {
		return nil
	}
	return err
}

func isRateLimited(err error) (bool, time.Duration) {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}

	wait := time.Second
	if secs, err := strconv.Atoi(statusErr.Header.Get("Retry-After")); err == nil && secs > 0 {
		wait = time.Duration(secs) * time.Second
	}
	return true, wait
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ Sender = (*Webhook)(nil)
