// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"herald/internal/sink"
	"herald/internal/source"
	"herald/internal/track"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"
)

// sourceConfig is one source(...) entry from config.star.
type sourceConfig struct {
	Name     string             `json:"name"`
	Kind     string             `json:"kind"`
	URL      string             `json:"url"`
	Selector string             `json:"selector,omitempty"`
	Heading  string             `json:"heading,omitempty"`
	Scope    string             `json:"scope,omitempty"`
	Limit    int                `json:"limit,omitempty"`
	TopK     int                `json:"top_k,omitempty"`
	KeepRule *starlark.Function `json:"-"`
	Format   *starlark.Function `json:"-"`

	src source.Source
}

func (s *sourceConfig) String() string        { return fmt.Sprintf("<source name=%q>", s.Name) }
func (s *sourceConfig) Type() string          { return "source" }
func (s *sourceConfig) Freeze()               {} // immutable
func (s *sourceConfig) Truth() starlark.Bool  { return starlark.Bool(s.Name != "") }
func (s *sourceConfig) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", s.Type()) }

func sourceBuiltin(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("unexpected positional arguments")
	}
	s := new(sourceConfig)
	if err := starlark.UnpackArgs("source", args, kwargs,
		"name", &s.Name,
		"kind", &s.Kind,
		"url", &s.URL,
		"selector?", &s.Selector,
		"heading?", &s.Heading,
		"scope?", &s.Scope,
		"limit?", &s.Limit,
		"top_k?", &s.TopK,
		"keep_rule?", &s.KeepRule,
		"format?", &s.Format,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *announcer) loadConfig(ctx context.Context) error {
	if a.config == "" {
		b, err := os.ReadFile(a.configPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", a.configPath, err)
		}
		a.config = string(b)
	}

	sources, err := a.parseConfig(a.config)
	if err != nil {
		return err
	}
	a.sources = sources
	return nil
}

func (a *announcer) parseConfig(config string) ([]*sourceConfig, error) {
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { a.logf("%s", msg) },
		},
		"config.star",
		config,
		starlark.StringDict{
			"source": starlark.NewBuiltin("source", sourceBuiltin),
		},
	)
	if err != nil {
		return nil, err
	}

	sourcesList, ok := globals["sources"].(*starlark.List)
	if !ok {
		return nil, errors.New("sources must be defined and be a list")
	}

	var (
		sources []*sourceConfig
		names   = make(map[string]bool)
	)

	for elem := range sourcesList.Elements() {
		src, ok := elem.(*sourceConfig)
		if !ok {
			continue
		}
		if src.Name == "" {
			return nil, errors.New("source with an empty name")
		}
		if names[src.Name] {
			return nil, fmt.Errorf("duplicate source name %q", src.Name)
		}
		names[src.Name] = true
		if _, err := url.Parse(src.URL); err != nil {
			return nil, fmt.Errorf("invalid URL %q of source %q", src.URL, src.Name)
		}
		switch src.Scope {
		case "":
			src.Scope = "daily"
		case "daily", "snapshot":
		default:
			return nil, fmt.Errorf("invalid scope %q of source %q", src.Scope, src.Name)
		}
		if src.Limit <= 0 {
			src.Limit = deliveryLimit
		}
		if err := a.bindSource(src); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	return sources, nil
}

func (a *announcer) bindSource(src *sourceConfig) error {
	switch src.Kind {
	case "rss":
		src.src = source.NewRSS(src.Name, src.URL, a.httpc)
	case "board":
		src.src = source.NewBoard(src.Name, src.URL, src.Selector, a.httpc)
	case "page":
		src.src = source.NewPage(src.Name, src.URL, src.Selector, src.Heading, a.httpc)
	case "plurk":
		src.src = source.NewPlurk(src.Name, src.URL, src.TopK, a.httpc)
	default:
		return fmt.Errorf("unknown kind %q of source %q", src.Kind, src.Name)
	}
	return nil
}

// scopeKey returns the bucket key covering the current cycle.
func (a *announcer) scopeKey(src *sourceConfig) string {
	if src.Scope == "snapshot" {
		return track.SnapshotScope(src.Name)
	}
	return track.DailyScope(src.Name, a.now(), a.loc)
}

func bucketTTL(src *sourceConfig) time.Duration {
	if src.Scope == "snapshot" {
		return snapshotBucketTTL
	}
	return dailyBucketTTL
}

func itemStruct(title, url, description, thumbnail string) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(
		starlarkstruct.Default,
		starlark.StringDict{
			"title":       starlark.String(title),
			"url":         starlark.String(url),
			"description": starlark.String(description),
			"thumbnail":   starlark.String(thumbnail),
		},
	)
}

// keep reports whether item passes the source's keep_rule. Sources without
// a keep_rule keep everything.
func (a *announcer) keep(src *sourceConfig, it track.Item) bool {
	if src.KeepRule == nil {
		return true
	}
	val, err := starlark.Call(
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { a.slog.Info(msg) },
		},
		src.KeepRule,
		starlark.Tuple{itemStruct(it.Title, it.URL, it.Description, it.Thumbnail)},
		[]starlark.Tuple{},
	)
	if err != nil {
		a.slog.Warn("applying keep_rule for item", "source", src.Name, "item", it.URL, "error", err)
		return false
	}

	ret, ok := val.(starlark.Bool)
	if !ok {
		a.slog.Warn("keep_rule returned non-boolean value", "source", src.Name, "item", it.URL)
		return false
	}
	return bool(ret)
}

// message builds the outgoing message for item, using the source's format
// function when present and link-embed formatting otherwise.
func (a *announcer) message(src *sourceConfig, it *track.Tracked) sink.Message {
	if src.Format != nil {
		val, err := starlark.Call(
			&starlark.Thread{
				Print: func(_ *starlark.Thread, msg string) { a.slog.Info(msg) },
			},
			src.Format,
			starlark.Tuple{itemStruct(it.Title, it.URL, it.Description, it.Thumbnail)},
			[]starlark.Tuple{},
		)
		if err != nil {
			a.slog.Warn("applying format for item", "source", src.Name, "item", it.URL, "error", err)
		} else if text, ok := starlark.AsString(val); ok && text != "" {
			return sink.Message{Text: text}
		} else {
			a.slog.Warn("format returned non-string value", "source", src.Name, "item", it.URL)
		}
	}
	return sink.Message{
		Text:      it.Title,
		URL:       it.URL,
		Teaser:    it.Description,
		Thumbnail: it.Thumbnail,
	}
}
