package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/catalog/catalogtest"
	"github.com/five82/marquee/internal/query"
	"github.com/five82/marquee/internal/state"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 30 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 30 * time.Second},
		{"negative failures", -1, 30 * time.Second},
		{"one failure", 1, time.Minute},
		{"two failures", 2, 2 * time.Minute},
		{"three failures", 3, 4 * time.Minute},
		{"four failures capped", 4, 5 * time.Minute}, // Would be 8m, capped to 5m
		{"many failures capped", 40, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 5 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

func TestCacheStaleTime(t *testing.T) {
	if got := cacheStaleTime(0); got >= 0 {
		t.Errorf("cacheStaleTime(0) = %v, want negative", got)
	}
	if got := cacheStaleTime(time.Minute); got != time.Minute {
		t.Errorf("cacheStaleTime(1m) = %v", got)
	}
}

func newPollFixture(t *testing.T) (*catalogtest.Server, *catalog.Client, *query.Cache, *state.Store) {
	t.Helper()
	srv := catalogtest.New(t)
	client, err := catalog.NewClient(srv.APIURL())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	cache := query.New(query.Options{RetryDelay: time.Millisecond})
	t.Cleanup(cache.Close)
	return srv, client, cache, &state.Store{}
}

func TestRefresh_UpdatesStore(t *testing.T) {
	srv, client, cache, store := newPollFixture(t)
	srv.Seed(catalog.Movie{Title: "Alien", VoteAverage: 8.5})

	if err := refresh(context.Background(), store, cache, client); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	snap := store.Snapshot()
	if !snap.HasStats || snap.Stats.TotalMovies != 1 {
		t.Fatalf("snapshot stats = %+v, want one movie", snap.Stats)
	}
	if !snap.NeverSynced() {
		t.Error("expected NeverSynced before any sync run")
	}
	if snap.IsOffline() {
		t.Error("expected online")
	}
}

func TestRefresh_FailuresGoOffline(t *testing.T) {
	srv, client, cache, store := newPollFixture(t)

	// Each refresh fetches once and retries once.
	srv.FailNext(catalogtest.RouteStats, http.StatusBadGateway, 4)
	for range 2 {
		if err := refresh(context.Background(), store, cache, client); err == nil {
			t.Fatal("expected refresh error")
		}
	}
	snap := store.Snapshot()
	if snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("failures = %d, offline = %v", snap.ConsecutiveFailures, snap.IsOffline())
	}
	if catalog.StatusCode(snap.LastError) != http.StatusBadGateway {
		t.Errorf("LastError = %v, want 502", snap.LastError)
	}

	if err := refresh(context.Background(), store, cache, client); err != nil {
		t.Fatalf("refresh after recovery: %v", err)
	}
	if store.Snapshot().IsOffline() {
		t.Error("expected recovery to clear offline state")
	}
}

func TestRefresh_FreshEntriesSkipNetwork(t *testing.T) {
	srv, client, cache, store := newPollFixture(t)
	for range 3 {
		if err := refresh(context.Background(), store, cache, client); err != nil {
			t.Fatalf("refresh: %v", err)
		}
	}
	if got := srv.Hits(catalogtest.RouteStats); got != 1 {
		t.Errorf("stats hits = %d, want 1", got)
	}
	if got := srv.Hits(catalogtest.RouteLastSyncLog); got != 1 {
		t.Errorf("last log hits = %d, want 1", got)
	}
}
