package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/marquee/internal/dashboard"
	"github.com/five82/marquee/internal/query"
	"github.com/five82/marquee/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
)

// StartPoller launches a background goroutine that keeps the connectivity
// snapshot current. Reads go through the cache, so a fresh entry costs no
// request. After failures the next poll backs off exponentially. It returns
// immediately.
func StartPoller(ctx context.Context, store *state.Store, cache *query.Cache, api dashboard.Reader, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			if err := refresh(ctx, store, cache, api); err != nil {
				logger.Warn("poll failed", "failures", store.Snapshot().ConsecutiveFailures, "error", err)
			}
			timer.Reset(calculateBackoff(store.Snapshot().ConsecutiveFailures, interval))
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
	}()
}

func refresh(ctx context.Context, store *state.Store, cache *query.Cache, api dashboard.Reader) error {
	stats, err := dashboard.Stats(ctx, cache, api)
	if err == nil {
		err = refreshErr(cache, dashboard.StatsKey())
	}
	if err != nil {
		store.Update(nil, nil, err)
		return err
	}
	lastSync, err := dashboard.LastSync(ctx, cache, api)
	if err == nil {
		err = refreshErr(cache, dashboard.LastSyncKey())
	}
	if err != nil {
		store.Update(nil, nil, err)
		return err
	}
	store.Update(stats, lastSync, nil)
	return nil
}

// refreshErr surfaces a failed background refresh, which Get hides behind the
// stale value it returns.
func refreshErr(cache *query.Cache, key query.Key) error {
	if st, ok := cache.Peek(key); ok {
		return st.Err
	}
	return nil
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for range failures {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
