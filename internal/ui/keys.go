package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding

	// View switching
	ViewDashboard key.Binding
	ViewMovies    key.Binding
	ViewSync      key.Binding
	ViewLogs      key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Movies
	Search       key.Binding
	FilterDates  key.Binding
	ClearFilters key.Binding
	SortNext     key.Binding
	SortOrder    key.Binding
	PrevPage     key.Binding
	NextPage     key.Binding
	FirstPage    key.Binding
	LastPage     key.Binding
	New          key.Binding
	Edit         key.Binding
	Delete       key.Binding
	Refresh      key.Binding
	Open         key.Binding

	// Dashboard
	RangeBack    key.Binding
	RangeForward key.Binding
	RangeReset   key.Binding

	// Sync
	MorePages key.Binding
	LessPages key.Binding
	RunSync   key.Binding

	// Logs
	ToggleFollow key.Binding
	NextMatch    key.Binding
	PrevMatch    key.Binding

	// Dialogs
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
	Confirm   key.Binding
	Yes       key.Binding
	No        key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close dialog"),
		),

		ViewDashboard: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Dashboard"),
		),
		ViewMovies: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "Movies"),
		),
		ViewSync: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "Sync"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		FilterDates: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Release date filter"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Clear filters"),
		),
		SortNext: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Next sort column"),
		),
		SortOrder: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Flip sort order"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("left", ","),
			key.WithHelp("←/,", "Previous page"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("right", "."),
			key.WithHelp("→/.", "Next page"),
		),
		FirstPage: key.NewBinding(
			key.WithKeys("<"),
			key.WithHelp("<", "First page"),
		),
		LastPage: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "Last page"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New movie"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit movie"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete movie"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Details"),
		),

		RangeBack: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "Range back a month"),
		),
		RangeForward: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "Range forward a month"),
		),
		RangeReset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "Last 12 months"),
		),

		MorePages: key.NewBinding(
			key.WithKeys("+", "=", "k", "up"),
			key.WithHelp("+", "More pages"),
		),
		LessPages: key.NewBinding(
			key.WithKeys("-", "j", "down"),
			key.WithHelp("-", "Fewer pages"),
		),
		RunSync: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Run sync"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "Next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "Previous match"),
		),

		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Save"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "Yes"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "No"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewDashboard, k.ViewMovies, k.ViewSync, k.ViewLogs},
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp},
		{k.Search, k.FilterDates, k.ClearFilters, k.SortNext, k.SortOrder},
		{k.PrevPage, k.NextPage, k.FirstPage, k.LastPage},
		{k.New, k.Edit, k.Delete, k.Refresh, k.Open},
		{k.RangeBack, k.RangeForward, k.RangeReset},
		{k.MorePages, k.LessPages, k.RunSync},
		{k.ToggleFollow, k.NextMatch, k.PrevMatch},
		{k.CycleTheme, k.Help, k.Quit},
	}
}
