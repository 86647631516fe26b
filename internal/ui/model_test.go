package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/catalog/catalogtest"
	"github.com/five82/marquee/internal/dashboard"
	"github.com/five82/marquee/internal/listing"
	"github.com/five82/marquee/internal/mutation"
	"github.com/five82/marquee/internal/notify"
	"github.com/five82/marquee/internal/prefs"
	"github.com/five82/marquee/internal/query"
	"github.com/five82/marquee/internal/state"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type harness struct {
	srv   *catalogtest.Server
	notes *notify.Center
	prefs string
}

func newTestModel(t *testing.T, movies int) (Model, *harness) {
	t.Helper()
	srv := catalogtest.New(t)
	for i := range movies {
		srv.Seed(catalog.Movie{Title: "Movie " + string(rune('A'+i%26)), VoteAverage: 7, VoteCount: 100})
	}
	client, err := catalog.NewClient(srv.APIURL())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	cache := query.New(query.Options{RetryDelay: time.Millisecond})
	t.Cleanup(cache.Close)
	notes := notify.NewCenter(notify.WithClock(func() time.Time { return testNow }))
	list := listing.New()
	t.Cleanup(list.Close)
	prefsPath := filepath.Join(t.TempDir(), "prefs.toml")

	m := New(Options{
		Context:   context.Background(),
		API:       client,
		Cache:     cache,
		Store:     &state.Store{},
		Notes:     notes,
		Listing:   list,
		Mutations: mutation.New(client, cache, notes),
		Prefs:     prefs.Default(),
		PrefsPath: prefsPath,
		Now:       func() time.Time { return testNow },
	})
	t.Cleanup(m.Close)
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, &harness{srv: srv, notes: notes, prefs: prefsPath}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

// press sends one key and returns the model with the command it produced.
func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		msg = tea.KeyMsg{Type: tea.KeyCtrlS}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return update(t, m, cmd())
}

// chain runs a dialog command and then the write it asks for.
func chain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	next, write := m.Update(cmd())
	return run(t, next.(Model), write)
}

func showMovies(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = press(t, m, "M")
	return run(t, m, m.loadMovies())
}

func TestTabCyclesViews(t *testing.T) {
	m, _ := newTestModel(t, 0)
	want := []View{ViewMovies, ViewSync, ViewLogs, ViewDashboard}
	for _, v := range want {
		m, _ = press(t, m, "tab")
		if m.currentView != v {
			t.Fatalf("currentView = %v, want %v", m.currentView, v)
		}
	}
}

func TestMovies_LoadAndPaginate(t *testing.T) {
	m, h := newTestModel(t, 25)
	m = showMovies(t, m)

	if !m.hasPage || len(m.page.Movies) != listing.DefaultLimit {
		t.Fatalf("page has %d movies, want %d", len(m.page.Movies), listing.DefaultLimit)
	}
	if got := m.list.State().TotalPages; got != 3 {
		t.Fatalf("TotalPages = %d, want 3", got)
	}

	var cmd tea.Cmd
	m, cmd = press(t, m, ">")
	m = run(t, m, cmd)
	if got := m.list.State().Page; got != 3 {
		t.Fatalf("Page = %d, want 3", got)
	}
	if len(m.page.Movies) != 5 {
		t.Fatalf("last page has %d movies, want 5", len(m.page.Movies))
	}
	if !m.mounts.has(m.list.Key()) {
		t.Fatal("current list key is not mounted")
	}
	if h.srv.Hits(catalogtest.RouteListMovies) != 2 {
		t.Fatalf("list hits = %d, want 2", h.srv.Hits(catalogtest.RouteListMovies))
	}
}

func TestMovies_LoadFailureNotifiesOncePerKey(t *testing.T) {
	m, h := newTestModel(t, 3)
	h.srv.FailNext(catalogtest.RouteListMovies, 500, 2)
	m = showMovies(t, m)

	errorNotes := func() int {
		n := 0
		for _, note := range h.notes.Active(testNow) {
			if note.Level == notify.LevelError {
				n++
			}
		}
		return n
	}
	note, ok := h.notes.Latest(testNow)
	if !ok || note.Text != "Failed to load movies" {
		t.Fatalf("latest note = %+v, want load failure", note)
	}

	key := m.list.Key()
	m = update(t, m, loadedMsg{key: key, err: errors.New("still down")})
	m = update(t, m, loadedMsg{key: key, err: context.Canceled})
	if got := errorNotes(); got != 1 {
		t.Fatalf("error notes = %d, want 1 for repeated failures of one key", got)
	}

	m = update(t, m, loadedMsg{key: key})
	m = update(t, m, loadedMsg{key: key, err: errors.New("down again")})
	if got := errorNotes(); got != 2 {
		t.Fatalf("error notes = %d, want 2 after a success in between", got)
	}
}

func TestMovies_SortKeys(t *testing.T) {
	m, _ := newTestModel(t, 3)
	m = showMovies(t, m)

	m, _ = press(t, m, "s")
	st := m.list.State()
	if st.SortBy != listing.SortID || st.Order != listing.Desc {
		t.Fatalf("after s: %s %s, want id DESC", st.SortBy, st.Order)
	}
	m, _ = press(t, m, "o")
	if got := m.list.State().Order; got != listing.Asc {
		t.Fatalf("after o: order %s, want ASC", got)
	}
}

func TestMovies_SearchCommitsOnEnter(t *testing.T) {
	m, _ := newTestModel(t, 3)
	m = showMovies(t, m)

	m, _ = press(t, m, "/")
	if !m.searching {
		t.Fatal("search box not focused")
	}
	m, _ = press(t, m, "Mov")
	if got := m.list.State().Search; got != "Mov" {
		t.Fatalf("Search = %q, want Mov", got)
	}
	m, _ = press(t, m, "enter")
	st := m.list.State()
	if m.searching || st.DebouncedSearch != "Mov" {
		t.Fatalf("after enter: searching=%v debounced=%q", m.searching, st.DebouncedSearch)
	}
}

func TestMovies_DeleteConfirmed(t *testing.T) {
	m, h := newTestModel(t, 2)
	m = showMovies(t, m)

	m, _ = press(t, m, "d")
	if _, ok := m.modal.(*confirmModal); !ok {
		t.Fatalf("modal = %T, want *confirmModal", m.modal)
	}
	m, cmd := press(t, m, "y")
	m = chain(t, m, cmd)

	if h.srv.MovieCount() != 1 {
		t.Fatalf("MovieCount = %d, want 1", h.srv.MovieCount())
	}
	if m.modal != nil {
		t.Fatalf("modal still open after delete: %T", m.modal)
	}
	note, ok := h.notes.Latest(testNow)
	if !ok || note.Text != "Movie deleted successfully!" {
		t.Fatalf("latest note = %+v", note)
	}
}

func TestForm_ValidationKeepsDialogOpen(t *testing.T) {
	m, h := newTestModel(t, 0)
	m = showMovies(t, m)

	m, _ = press(t, m, "n")
	if _, ok := m.modal.(*formModal); !ok {
		t.Fatalf("modal = %T, want *formModal", m.modal)
	}

	submit := func(m Model) Model {
		m, cmd := press(t, m, "ctrl+s")
		return chain(t, m, cmd)
	}

	m = submit(m)
	if m.modal == nil {
		t.Fatal("dialog closed on a validation error")
	}
	if note, _ := h.notes.Latest(testNow); note.Text != "Title is required" {
		t.Fatalf("latest note = %q", note.Text)
	}
	if h.srv.MovieCount() != 0 {
		t.Fatal("invalid form reached the server")
	}

	m, _ = press(t, m, "Alien")
	m = submit(m)

	if h.srv.MovieCount() != 1 {
		t.Fatalf("MovieCount = %d, want 1", h.srv.MovieCount())
	}
	if m.modal != nil {
		t.Fatalf("dialog still open after save: %T", m.modal)
	}
}

func TestCreate_DialogClosesAndListShowsMovieFirst(t *testing.T) {
	m, _ := newTestModel(t, 3)
	m = showMovies(t, m)

	m, _ = press(t, m, "n")
	m, _ = press(t, m, "Test Film")
	m, cmd := press(t, m, "ctrl+s")
	m = chain(t, m, cmd)
	if m.modal != nil {
		t.Fatalf("dialog still open after save: %T", m.modal)
	}

	// The mounted page is refetched in the background after invalidation.
	m.cache.Wait()
	m = update(t, m, cacheMsg(m.list.Key()))
	if len(m.page.Movies) == 0 || m.page.Movies[0].Title != "Test Film" {
		t.Fatalf("first row = %+v, want Test Film", m.page.Movies)
	}
	if m.list.State().Page != 1 {
		t.Fatalf("Page = %d, want 1", m.list.State().Page)
	}
}

func TestForm_RejectsBadNumbers(t *testing.T) {
	f := newFormModal(nil, nil)
	f.inputs[fieldTitle].SetValue("Alien")
	f.inputs[fieldVotes].SetValue("lots")
	if cmd := f.submit(); cmd != nil {
		t.Fatal("submit produced a command for a bad number")
	}
	if f.err != "Vote count must be a whole number" {
		t.Fatalf("err = %q", f.err)
	}

	f.inputs[fieldVotes].SetValue("12")
	for _, v := range []string{"inf", "+Inf", "NaN"} {
		f.inputs[fieldPopularity].SetValue(v)
		if cmd := f.submit(); cmd != nil {
			t.Fatalf("submit produced a command for popularity %q", v)
		}
		if f.err != "Popularity must be a number" {
			t.Fatalf("popularity %q: err = %q", v, f.err)
		}
	}
	f.inputs[fieldPopularity].SetValue("3.5")
	f.inputs[fieldAdult].SetValue("yes")
	msg, ok := f.submit()().(formSubmitMsg)
	if !ok || !msg.form.Adult || msg.form.VoteCount != 12 || msg.id != 0 {
		t.Fatalf("submit msg = %+v", msg)
	}
}

func TestSyncPages_ClampAndPersist(t *testing.T) {
	m, h := newTestModel(t, 0)
	m, _ = press(t, m, "S")
	for range 12 {
		m, _ = press(t, m, "+")
	}
	if m.syncPages != mutation.MaxSyncPages {
		t.Fatalf("syncPages = %d, want %d", m.syncPages, mutation.MaxSyncPages)
	}
	m, _ = press(t, m, "-")
	if m.syncPages != 9 {
		t.Fatalf("syncPages = %d, want 9", m.syncPages)
	}
	saved, err := prefs.Load(h.prefs)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if saved.SyncPages != 9 {
		t.Fatalf("saved SyncPages = %d, want 9", saved.SyncPages)
	}
}

func TestSync_RunImportsMovies(t *testing.T) {
	m, h := newTestModel(t, 0)
	m, _ = press(t, m, "S")
	m, cmd := press(t, m, "enter")
	m = run(t, m, cmd)

	if m.lastRun == nil || !m.lastRun.Succeeded() {
		t.Fatalf("lastRun = %+v", m.lastRun)
	}
	if h.srv.MovieCount() != catalogtest.MoviesPerSyncPage {
		t.Fatalf("MovieCount = %d, want %d", h.srv.MovieCount(), catalogtest.MoviesPerSyncPage)
	}
	if !strings.Contains(m.View(), "added") {
		t.Fatal("sync view does not show the run summary")
	}
}

func TestDashboard_RangeKeys(t *testing.T) {
	m, _ := newTestModel(t, 0)
	def := dashboard.DefaultRange(testNow)

	m, _ = press(t, m, "[")
	if m.chartRange != def.Shift(-1) {
		t.Fatalf("chartRange = %s, want %s", m.chartRange, def.Shift(-1))
	}
	if !m.mounts.has(dashboard.ChartKey(m.chartRange)) || m.mounts.has(dashboard.ChartKey(def)) {
		t.Fatal("chart mount did not follow the range")
	}
	m, _ = press(t, m, "0")
	if m.chartRange != def {
		t.Fatalf("chartRange = %s, want %s", m.chartRange, def)
	}
}

func TestCycleTheme_SavesPrefs(t *testing.T) {
	m, h := newTestModel(t, 0)
	m, _ = press(t, m, "T")
	if m.theme.Name != "Slate" {
		t.Fatalf("theme = %q, want Slate", m.theme.Name)
	}
	saved, err := prefs.Load(h.prefs)
	if err != nil {
		t.Fatalf("prefs.Load: %v", err)
	}
	if saved.Theme != "Slate" {
		t.Fatalf("saved theme = %q, want Slate", saved.Theme)
	}
}

func TestView_RendersEveryView(t *testing.T) {
	m, _ := newTestModel(t, 5)
	for _, cmd := range m.loadDashboard() {
		m = run(t, m, cmd)
	}
	if out := m.View(); !strings.Contains(out, "Total") || !strings.Contains(out, "marquee") {
		t.Fatal("dashboard view is missing its cards")
	}
	for _, k := range []string{"M", "S", "L"} {
		m, _ = press(t, m, k)
		if out := m.View(); out == "" {
			t.Fatalf("view %v rendered nothing", m.currentView)
		}
	}
	m, _ = press(t, m, "?")
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help overlay not shown")
	}
}
