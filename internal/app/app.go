package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/config"
	"github.com/five82/marquee/internal/dashboard"
	"github.com/five82/marquee/internal/listing"
	"github.com/five82/marquee/internal/mutation"
	"github.com/five82/marquee/internal/notify"
	"github.com/five82/marquee/internal/prefs"
	"github.com/five82/marquee/internal/query"
	"github.com/five82/marquee/internal/state"
	"github.com/five82/marquee/internal/ui"
)

// Options configure the console.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses ~/.config/marquee/prefs.toml
	APIURL     string // overrides config and environment when set
	PollEvery  int    // seconds; zero uses the configured interval
	Debug      bool
}

const prefetchTimeout = 10 * time.Second

// Run boots the console until the UI exits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger, closer, err := newLogger(cfg.LogFile, level)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closer.Close()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("prefs unreadable, using defaults", "error", err)
	}

	client, err := catalog.NewClient(cfg.APIURL, catalog.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("init catalog client: %w", err)
	}
	logger.Info("marquee starting", "api", client.BaseURL(), "stale", cfg.StaleTime, "page_size", cfg.PageSize)

	cache := query.New(query.Options{StaleTime: cacheStaleTime(cfg.StaleTime), Logger: logger})
	defer cache.Close()

	notes := notify.NewCenter()
	store := &state.Store{}

	listEvents := make(chan listing.State, 1)
	list := listing.New(
		listing.WithLimit(cfg.PageSize),
		listing.WithOnChange(func(s listing.State) { offer(listEvents, s) }),
	)
	defer list.Close()

	mutationEvents := make(chan mutation.Kind, 4)
	mutations := mutation.New(client, cache, notes,
		mutation.WithLogger(logger),
		mutation.WithOnChange(func(k mutation.Kind, _ mutation.Status) { offer(mutationEvents, k) }),
	)

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	prefetch(ctx, cache, client, logger)
	StartPoller(ctx, store, cache, client, interval, logger)

	return ui.Run(ui.Options{
		Context:        ctx,
		API:            client,
		Cache:          cache,
		Store:          store,
		Notes:          notes,
		Listing:        list,
		Mutations:      mutations,
		ListEvents:     listEvents,
		MutationEvents: mutationEvents,
		Images:         cfg.Normalizer(),
		Prefs:          userPrefs,
		PrefsPath:      opts.PrefsPath,
		LogFile:        cfg.LogFile,
		PollTick:       interval,
		Logger:         logger,
	})
}

// cacheStaleTime maps the configured stale time onto query.Options, where
// zero means the default and negative means always stale.
func cacheStaleTime(d time.Duration) time.Duration {
	if d <= 0 {
		return -1
	}
	return d
}

// prefetch warms the dashboard entries concurrently. Failures are logged; the
// views fetch again when they render.
func prefetch(ctx context.Context, cache *query.Cache, api dashboard.Reader, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, prefetchTimeout)
	defer cancel()

	var wg conc.WaitGroup
	wg.Go(func() {
		if _, err := dashboard.Stats(ctx, cache, api); err != nil {
			logger.Warn("prefetch stats failed", "error", err)
		}
	})
	wg.Go(func() {
		r := dashboard.DefaultRange(time.Now())
		if _, err := dashboard.Charts(ctx, cache, api, r); err != nil {
			logger.Warn("prefetch charts failed", "range", r.String(), "error", err)
		}
	})
	wg.Go(func() {
		if _, err := dashboard.LastSync(ctx, cache, api); err != nil {
			logger.Warn("prefetch last sync failed", "error", err)
		}
	})
	wg.Wait()
}

// offer delivers v unless the receiver is behind; the UI re-reads state on
// every event, so a dropped duplicate loses nothing.
func offer[T any](ch chan<- T, v T) {
	select {
	case ch <- v:
	default:
	}
}
