package ui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/dashboard"
	"github.com/five82/marquee/internal/imageurl"
	"github.com/five82/marquee/internal/listing"
	"github.com/five82/marquee/internal/mutation"
	"github.com/five82/marquee/internal/notify"
	"github.com/five82/marquee/internal/prefs"
	"github.com/five82/marquee/internal/query"
	"github.com/five82/marquee/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewDashboard View = iota
	ViewMovies
	ViewSync
	ViewLogs
)

var viewOrder = []View{ViewDashboard, ViewMovies, ViewSync, ViewLogs}

func (v View) String() string {
	switch v {
	case ViewMovies:
		return "Movies"
	case ViewSync:
		return "Sync"
	case ViewLogs:
		return "Logs"
	default:
		return "Dashboard"
	}
}

// Options configures the UI.
type Options struct {
	Context        context.Context
	API            catalog.API
	Cache          *query.Cache
	Store          *state.Store
	Notes          *notify.Center
	Listing        *listing.Controller
	Mutations      *mutation.Controller
	ListEvents     <-chan listing.State
	MutationEvents <-chan mutation.Kind
	Images         imageurl.Normalizer
	Prefs          prefs.Prefs
	PrefsPath      string
	LogFile        string
	PollTick       time.Duration
	Logger         *slog.Logger
	Now            func() time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Services
	ctx            context.Context
	api            catalog.API
	cache          *query.Cache
	store          *state.Store
	notes          *notify.Center
	list           *listing.Controller
	mutations      *mutation.Controller
	listEvents     <-chan listing.State
	mutationEvents <-chan mutation.Kind
	cacheEvents    <-chan query.Key
	unsubscribe    func()
	mounts         *mountSet
	images         imageurl.Normalizer
	logger         *slog.Logger
	now            func() time.Time
	keys           keyMap

	// Preferences
	prefs     prefs.Prefs
	prefsPath string
	logFile   string
	uiTick    time.Duration
	pollTick  time.Duration

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal

	// Data state
	snapshot   state.Snapshot
	loadFailed map[query.Key]bool

	// Dashboard state
	chartRange dashboard.Range

	// Movies state
	page        catalog.Page
	pageKey     query.Key
	hasPage     bool
	selectedRow int
	searchInput textinput.Model
	searching   bool

	// Sync state
	syncPages int
	lastRun   *catalog.SyncLog

	// Log state
	logViewport viewport.Model
	logState    logState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	notes := opts.Notes
	if notes == nil {
		notes = notify.NewCenter()
	}
	list := opts.Listing
	if list == nil {
		list = listing.New()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs := opts.Prefs
	if userPrefs.Theme == "" {
		userPrefs = prefs.Default()
	}

	search := textinput.New()
	search.Placeholder = "Search title..."
	search.Prompt = "/ "
	search.CharLimit = 100

	m := Model{
		ctx:            ctx,
		api:            opts.API,
		cache:          opts.Cache,
		store:          opts.Store,
		notes:          notes,
		list:           list,
		mutations:      opts.Mutations,
		listEvents:     opts.ListEvents,
		mutationEvents: opts.MutationEvents,
		mounts:         newMountSet(),
		loadFailed:     make(map[query.Key]bool),
		images:         opts.Images,
		logger:         logger,
		now:            now,
		keys:           DefaultKeyMap(),
		prefs:          userPrefs,
		prefsPath:      prefsPath,
		logFile:        opts.LogFile,
		uiTick:         DefaultUIInterval,
		pollTick:       opts.PollTick,
		theme:          GetTheme(userPrefs.Theme),
		currentView:    ViewDashboard,
		chartRange:     dashboard.DefaultRange(now()),
		searchInput:    search,
		syncPages:      max(mutation.MinSyncPages, min(userPrefs.SyncPages, mutation.MaxSyncPages)),
		logState:       newLogState(),
	}
	if m.images.HostRewrites == nil && !m.images.SecurePage {
		m.images = imageurl.Default
	}
	if m.cache != nil {
		m.cacheEvents, m.unsubscribe = m.cache.Subscribe()
	}
	return m
}

// Close releases cache subscriptions and mounts.
func (m Model) Close() {
	m.mounts.releaseAll()
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.uiTick),
		waitFor(m.cacheEvents, func(k query.Key) tea.Msg { return cacheMsg(k) }),
		waitFor(m.listEvents, func(s listing.State) tea.Msg { return listMsg(s) }),
		waitFor(m.mutationEvents, func(k mutation.Kind) tea.Msg { return mutationMsg(k) }),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	cmds = append(cmds, m.enterView()...)
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initLogViewport()
		}
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case cacheMsg:
		m.refreshPage()
		return m, waitFor(m.cacheEvents, func(k query.Key) tea.Msg { return cacheMsg(k) })

	case listMsg:
		cmds := []tea.Cmd{waitFor(m.listEvents, func(s listing.State) tea.Msg { return listMsg(s) })}
		if m.currentView == ViewMovies {
			m.syncMounts()
			cmds = append(cmds, m.loadMovies())
		}
		m.refreshPage()
		return m, tea.Batch(cmds...)

	case mutationMsg:
		return m, waitFor(m.mutationEvents, func(k mutation.Kind) tea.Msg { return mutationMsg(k) })

	case loadedMsg:
		m.noteLoad(msg)
		m.refreshPage()
		return m, nil

	case formSubmitMsg:
		return m, m.submitForm(msg)

	case deleteConfirmedMsg:
		return m, m.deleteMovie(msg.id)

	case dateFilterMsg:
		return m.applyDateFilter(msg)

	case editMovieMsg:
		m.modal = newFormModal(&msg.movie, m.mutations)
		return m, nil

	case mutationDoneMsg:
		return m.handleMutationDone(msg)

	case logsLoadedMsg:
		m.handleLogsLoaded(msg)
		return m, nil
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}
	if m.searching {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
			m.resetSettled()
		}
		return m, cmd
	}

	if m.searching {
		return m.handleSearchInput(msg)
	}
	if m.currentView == ViewLogs && m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.savePrefs()
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.stepView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.stepView(-1))
	case key.Matches(msg, m.keys.ViewDashboard):
		return m.switchView(ViewDashboard)
	case key.Matches(msg, m.keys.ViewMovies):
		return m.switchView(ViewMovies)
	case key.Matches(msg, m.keys.ViewSync):
		return m.switchView(ViewSync)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	}

	switch m.currentView {
	case ViewDashboard:
		return m.handleDashboardKey(msg)
	case ViewMovies:
		return m.handleMoviesKey(msg)
	case ViewSync:
		return m.handleSyncKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) stepView(delta int) View {
	for i, v := range viewOrder {
		if v == m.currentView {
			n := len(viewOrder)
			return viewOrder[((i+delta)%n+n)%n]
		}
	}
	return ViewDashboard
}

// switchView changes the visible view, moves cache mounts to the keys it
// renders and loads them.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	if v == m.currentView {
		return m, nil
	}
	m.currentView = v
	m.searching = false
	m.searchInput.Blur()
	cmds := m.enterView()
	return m, tea.Batch(cmds...)
}

// enterView mounts and loads everything the current view renders.
func (m *Model) enterView() []tea.Cmd {
	m.syncMounts()
	switch m.currentView {
	case ViewDashboard:
		return m.loadDashboard()
	case ViewMovies:
		return []tea.Cmd{m.loadMovies()}
	case ViewSync:
		return []tea.Cmd{m.loadLastSync()}
	case ViewLogs:
		return []tea.Cmd{m.refreshLogs()}
	}
	return nil
}

// handleTick prunes notifications and re-reads the connectivity snapshot.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.uiTick)}
	m.notes.Prune(m.now())
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.currentView == ViewLogs && m.logState.follow {
		cmds = append(cmds, m.refreshLogs())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) savePrefs() {
	m.prefs.SyncPages = m.syncPages
	if err := prefs.Save(m.prefsPath, m.prefs); err != nil {
		m.logger.Warn("save prefs failed", "path", m.prefsPath, "error", err)
	}
}

// resetSettled returns settled dialog mutations to idle once their dialog
// closes, so the next dialog starts clean.
func (m *Model) resetSettled() {
	if m.mutations == nil {
		return
	}
	for _, k := range []mutation.Kind{mutation.KindCreate, mutation.KindUpdate, mutation.KindDelete} {
		m.mutations.Reset(k)
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

// cacheMsg reports that a cache entry changed.
type cacheMsg query.Key

// listMsg reports a list state change made outside Update, such as a
// debounced search commit.
type listMsg listing.State

// mutationMsg reports a mutation status transition.
type mutationMsg mutation.Kind

type loadedMsg struct {
	key query.Key
	err error
}

type mutationDoneMsg struct {
	kind mutation.Kind
	err  error
	run  *catalog.SyncLog
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// waitFor blocks on ch and wraps the next value. A nil or closed channel
// yields no message.
func waitFor[T any](ch <-chan T, wrap func(T) tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		v, ok := <-ch
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	defer m.Close()

	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	_, err := tea.NewProgram(m, programOpts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
