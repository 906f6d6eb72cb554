// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"herald/internal/cli"
	"herald/internal/testutil"
)

// appEnv returns a cli.Env with the given environment variables and
// discarded output streams.
func appEnv(t *testing.T, vars map[string]string) *cli.Env {
	t.Helper()
	return &cli.Env{
		Getenv: func(key string) string { return vars[key] },
		Stdin:  bytes.NewReader(nil),
		Stdout: io.Discard,
		Stderr: io.Discard,
	}
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	feed := serveRSS(t, rssFeed)

	var (
		mu   sync.Mutex
		sent []string
	)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg struct {
			Embeds []struct {
				Title string `json:"title"`
			} `json:"embeds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Error(err)
		}
		mu.Lock()
		for _, e := range msg.Embeds {
			sent = append(sent, e.Title)
		}
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(webhook.Close)

	stateDir := t.TempDir()
	config := []byte(rssConfig(feed.URL))
	if err := os.WriteFile(filepath.Join(stateDir, "config.star"), config, 0o644); err != nil {
		t.Fatal(err)
	}

	a := &announcer{
		now:   func() time.Time { return time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC) },
		sleep: func(ctx context.Context, d time.Duration) bool { return true },
	}
	env := appEnv(t, map[string]string{
		"STATE_DIRECTORY": stateDir,
		"WEBHOOK_URL":     webhook.URL + "/hook/token",
	})
	env.Args = []string{"run"}

	if err := cli.Run(t.Context(), a, env); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertEqual(t, sent, []string{"First post", "Second post"})

	// State went to the JSON file in the state directory.
	if _, err := os.Stat(filepath.Join(stateDir, "state.json")); err != nil {
		t.Fatal(err)
	}
}

func TestRunRequiresWebhook(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(stateDir, "config.star"), []byte(`sources = []`), 0o644); err != nil {
		t.Fatal(err)
	}

	env := appEnv(t, map[string]string{"STATE_DIRECTORY": stateDir})
	env.Args = []string{"run"}

	err := cli.Run(t.Context(), new(announcer), env)
	if !errors.Is(err, errNoWebhook) {
		t.Fatalf("want errNoWebhook, got %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(stateDir, "config.star"), []byte(`sources = []`), 0o644); err != nil {
		t.Fatal(err)
	}

	env := appEnv(t, map[string]string{"STATE_DIRECTORY": stateDir})
	env.Args = []string{"explode"}

	err := cli.Run(t.Context(), new(announcer), env)
	if !errors.Is(err, cli.ErrInvalidArgs) {
		t.Fatalf("want cli.ErrInvalidArgs, got %v", err)
	}
}

func TestMissingConfig(t *testing.T) {
	t.Parallel()

	env := appEnv(t, map[string]string{"STATE_DIRECTORY": t.TempDir()})
	env.Args = []string{"sources"}

	if err := cli.Run(t.Context(), new(announcer), env); err == nil {
		t.Fatal("want error for missing config.star")
	}
}

func TestListSources(t *testing.T) {
	t.Parallel()

	stateDir := t.TempDir()
	config := []byte(`sources = [source(name = "hn", kind = "rss", url = "https://hnrss.org/newest")]`)
	if err := os.WriteFile(filepath.Join(stateDir, "config.star"), config, 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	env := appEnv(t, map[string]string{"STATE_DIRECTORY": stateDir})
	env.Stdout = &out
	env.Args = []string{"-json", "sources"}

	if err := cli.Run(t.Context(), new(announcer), env); err != nil {
		t.Fatal(err)
	}

	sources := testutil.UnmarshalJSON[[]map[string]string](t, out.Bytes())
	testutil.AssertEqual(t, len(sources), 1)
	testutil.AssertEqual(t, sources[0]["name"], "hn")
	testutil.AssertEqual(t, sources[0]["kind"], "rss")
}
