// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"herald/internal/cli"
	"herald/internal/gemini"
	"herald/internal/logger"
	"herald/internal/request"
	"herald/internal/sink"
	"herald/internal/store"
	"herald/internal/track"
)

// Some types of errors that can happen during herald execution.
var (
	errAlreadyRunning = errors.New("already running")
	errNoSource       = errors.New("no such source")
	errNoWebhook      = errors.New("environment variable WEBHOOK_URL is not defined")
)

const (
	deliveryLimit    = 5               // items announced per source per run
	deliveryPace     = 1 * time.Second // minimum delay between sends
	concurrencyLimit = 4               // sources processed at once

	dailyBucketTTL    = 48 * time.Hour
	snapshotBucketTTL = 30 * 24 * time.Hour
	ledgerTTL         = 365 * 24 * time.Hour

	storeSweepInterval = time.Hour
	seenCacheTTL       = time.Hour
)

func main() { cli.Main(new(announcer)) }

func (a *announcer) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&a.dry, "dry", false, "Enable dry-run mode: log actions, but don't send announcements or save state.")
	fs.BoolVar(&a.test, "test", false, "Announce only the newest item of each source and don't save state.")
	fs.BoolVar(&a.json, "json", false, "Output in JSON format (honored in supported commands).")
}

func (a *announcer) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)

	// Load configuration from environment variables.
	a.webhookURL = cmp.Or(a.webhookURL, env.Getenv("WEBHOOK_URL"))
	a.geminiKey = cmp.Or(a.geminiKey, env.Getenv("GEMINI_API_KEY"))
	a.databaseURL = cmp.Or(a.databaseURL, env.Getenv("DATABASE_URL"))
	a.sqliteDSN = cmp.Or(a.sqliteDSN, env.Getenv("HERALD_DB"))
	a.stateDir = cmp.Or(a.stateDir, env.Getenv("STATE_DIRECTORY"))
	if a.stateDir == "" {
		xdgStateHome := env.Getenv("XDG_STATE_HOME")
		if xdgStateHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			xdgStateHome = filepath.Join(home, ".local", "state")
		}
		a.stateDir = filepath.Join(xdgStateHome, "herald")
		if err := os.MkdirAll(a.stateDir, 0o700); err != nil {
			return err
		}
	}
	a.configPath = cmp.Or(a.configPath, env.Getenv("HERALD_CONFIG"), filepath.Join(a.stateDir, "config.star"))

	if a.loc == nil {
		tz := cmp.Or(env.Getenv("HERALD_TZ"), "UTC")
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid HERALD_TZ %q: %v", tz, err)
		}
		a.loc = loc
	}

	// Initialize internal state.
	var initErr error
	a.init.Do(func() {
		initErr = a.doInit(ctx)
	})
	if initErr != nil {
		return initErr
	}

	// Enable debug logging in dry-run mode.
	if a.dry {
		a.slogLevel.Set(slog.LevelDebug)
	}

	if err := a.loadConfig(ctx); err != nil {
		return err
	}

	if len(env.Args) == 0 {
		return fmt.Errorf("%w: command is required, see -help for usage", cli.ErrInvalidArgs)
	}
	command := env.Args[0]

	switch command {
	case "run":
		return a.run(ctx)
	case "sources":
		return a.listSources(env.Stdout)
	case "backfill":
		if len(env.Args) != 2 {
			return fmt.Errorf("%w: backfill command expects a source name", cli.ErrInvalidArgs)
		}
		return a.backfill(ctx, env.Args[1])
	default:
		return fmt.Errorf("%w: no such command %q", cli.ErrInvalidArgs, command)
	}
}

type announcer struct {
	init sync.Once

	// configuration
	dry         bool
	test        bool
	json        bool
	webhookURL  string
	geminiKey   string
	databaseURL string
	sqliteDSN   string
	stateDir    string
	configPath  string
	loc         *time.Location
	// now acts as time.Now, but can be mocked for testing.
	now func() time.Time

	// initialized by doInit
	httpc     *http.Client
	logf      func(string, ...any)
	scrubber  *strings.Replacer
	slog      *slog.Logger
	slogLevel *slog.LevelVar
	store     store.Store
	sender    sink.Sender
	geminic   *gemini.Client
	seen      *track.SeenCache
	sleep     func(context.Context, time.Duration) bool

	// loaded from config.star
	config  string
	sources []*sourceConfig
}

func (a *announcer) doInit(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	a.logf = log.New(env.Stderr, "", 0).Printf
	if a.now == nil {
		a.now = time.Now
	}
	if a.sleep == nil {
		a.sleep = sleep
	}

	if a.httpc == nil {
		a.httpc = request.DefaultClient
	}

	if a.geminiKey != "" {
		a.scrubber = strings.NewReplacer(
			a.geminiKey, "[EXPUNGED]",
		)
	}

	l := logger.Get(ctx)
	a.slogLevel = l.Level
	a.slog = l.Logger

	if a.store == nil {
		st, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		a.store = st
	}

	if a.sender == nil && a.webhookURL != "" {
		a.sender = sink.New(sink.Config{
			URL:        a.webhookURL,
			HTTPClient: a.httpc,
			Logger:     a.slog,
		})
	}

	if a.geminic == nil && a.geminiKey != "" {
		a.geminic = &gemini.Client{
			APIKey:     a.geminiKey,
			Model:      "gemini-2.0-flash",
			HTTPClient: a.httpc,
			Scrubber:   a.scrubber,
		}
	}

	a.seen = track.NewSeenCache(seenCacheTTL)

	return nil
}

func (a *announcer) openStore(ctx context.Context) (store.Store, error) {
	switch {
	case a.databaseURL != "":
		return store.NewPostgresStore(ctx, a.databaseURL, storeSweepInterval)
	case a.sqliteDSN != "":
		return store.NewSQLiteStore(ctx, a.sqliteDSN, storeSweepInterval)
	}
	return store.NewJSONFile(filepath.Join(a.stateDir, "state.json"))
}

func (a *announcer) listSources(w io.Writer) error {
	if a.json {
		type sourceJSON struct {
			Name  string `json:"name"`
			Kind  string `json:"kind"`
			URL   string `json:"url"`
			Scope string `json:"scope"`
		}

		var sources []sourceJSON
		for _, src := range a.sources {
			sources = append(sources, sourceJSON{
				Name:  src.Name,
				Kind:  src.Kind,
				URL:   src.URL,
				Scope: src.Scope,
			})
		}

		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sources)
	}

	for _, src := range a.sources {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", src.Name, src.Kind, src.Scope, src.URL)
	}
	return nil
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
