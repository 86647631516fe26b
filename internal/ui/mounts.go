package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/dashboard"
	"github.com/five82/marquee/internal/listing"
	"github.com/five82/marquee/internal/query"
)

// mountSet tracks the cache entries the visible view renders. Mounted
// entries are refetched when invalidated; everything else is dropped.
type mountSet struct {
	active map[query.Key]func()
}

func newMountSet() *mountSet {
	return &mountSet{active: make(map[query.Key]func())}
}

// sync mounts every key in want that is not mounted yet and releases the
// keys no longer wanted.
func (s *mountSet) sync(want map[query.Key]func() func()) {
	for k, release := range s.active {
		if _, ok := want[k]; !ok {
			release()
			delete(s.active, k)
		}
	}
	for k, mount := range want {
		if _, ok := s.active[k]; !ok {
			s.active[k] = mount()
		}
	}
}

func (s *mountSet) releaseAll() {
	if s == nil {
		return
	}
	for k, release := range s.active {
		release()
		delete(s.active, k)
	}
}

func (s *mountSet) has(k query.Key) bool {
	_, ok := s.active[k]
	return ok
}

// syncMounts moves the mounts to the entries the current view renders.
func (m *Model) syncMounts() {
	if m.cache == nil || m.api == nil {
		return
	}
	want := make(map[query.Key]func() func())
	switch m.currentView {
	case ViewDashboard:
		r := m.chartRange
		want[dashboard.StatsKey()] = func() func() { return dashboard.MountStats(m.cache, m.api) }
		want[dashboard.ChartKey(r)] = func() func() { return dashboard.MountCharts(m.cache, m.api, r) }
		want[dashboard.LastSyncKey()] = func() func() { return dashboard.MountLastSync(m.cache, m.api) }
	case ViewMovies:
		st := m.list.State()
		want[listing.KeyFor(st)] = func() func() { return listing.Mount(m.cache, m.api, st) }
	case ViewSync:
		want[dashboard.LastSyncKey()] = func() func() { return dashboard.MountLastSync(m.cache, m.api) }
	}
	m.mounts.sync(want)
}

// loadDashboard reads the three dashboard entries concurrently.
func (m *Model) loadDashboard() []tea.Cmd {
	if m.cache == nil || m.api == nil {
		return nil
	}
	ctx, cache, api, r := m.ctx, m.cache, m.api, m.chartRange
	return []tea.Cmd{
		loadCmd(ctx, dashboard.StatsKey(), func(ctx context.Context) error {
			_, err := dashboard.Stats(ctx, cache, api)
			return err
		}),
		loadCmd(ctx, dashboard.ChartKey(r), func(ctx context.Context) error {
			_, err := dashboard.Charts(ctx, cache, api, r)
			return err
		}),
		m.loadLastSync(),
	}
}

func (m *Model) loadLastSync() tea.Cmd {
	if m.cache == nil || m.api == nil {
		return nil
	}
	cache, api := m.cache, m.api
	return loadCmd(m.ctx, dashboard.LastSyncKey(), func(ctx context.Context) error {
		_, err := dashboard.LastSync(ctx, cache, api)
		return err
	})
}

// loadMovies reads the page for the current list state.
func (m *Model) loadMovies() tea.Cmd {
	if m.cache == nil || m.api == nil {
		return nil
	}
	cache, api, list := m.cache, m.api, m.list
	return loadCmd(m.ctx, list.Key(), func(ctx context.Context) error {
		_, err := list.Load(ctx, cache, api)
		return err
	})
}

func loadCmd(parent context.Context, key query.Key, load func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, LoadTimeout)
		defer cancel()
		return loadedMsg{key: key, err: load(ctx)}
	}
}

// noteLoad reports a failed read once per key. The key is reported again only
// after it has loaded successfully in between.
func (m *Model) noteLoad(msg loadedMsg) {
	if msg.err == nil {
		delete(m.loadFailed, msg.key)
		return
	}
	if errors.Is(msg.err, context.Canceled) {
		return
	}
	m.logger.Warn("view load failed", "key", msg.key.String(), "error", msg.err)
	if m.loadFailed[msg.key] {
		return
	}
	m.loadFailed[msg.key] = true
	m.notes.Error(loadFailureText(msg.key.Family))
}

func loadFailureText(family query.Family) string {
	switch family {
	case query.FamilyMovies:
		return "Failed to load movies"
	case query.FamilyDashboardStats:
		return "Failed to load dashboard stats"
	case query.FamilyChartData:
		return "Failed to load chart data"
	case query.FamilyLastSyncLog:
		return "Failed to load last sync"
	default:
		return "Failed to load data"
	}
}

// refreshPage shows the cached page for the current list key. The previous
// page stays on screen while the next one loads.
func (m *Model) refreshPage() {
	if m.cache == nil {
		return
	}
	key := m.list.Key()
	page, ok := query.Cached[catalog.Page](m.cache, key)
	if !ok {
		return
	}
	m.page = page
	m.pageKey = key
	m.hasPage = true
	if m.selectedRow >= len(page.Movies) {
		m.selectedRow = max(0, len(page.Movies)-1)
	}
}

// entryState returns the cache state for key, or a zero state.
func (m Model) entryState(key query.Key) query.State {
	if m.cache == nil {
		return query.State{}
	}
	st, _ := m.cache.Peek(key)
	return st
}
