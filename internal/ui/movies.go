package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/listing"
	"github.com/five82/marquee/internal/query"
)

type movieColumn struct {
	title string
	sort  listing.SortField
	width int
	right bool
	value func(catalog.Movie) string
}

// movieColumns lays out the table; the title column takes the slack.
var movieColumns = []movieColumn{
	{"ID", listing.SortID, 6, true, func(mv catalog.Movie) string { return fmt.Sprintf("%d", mv.ID) }},
	{"Title", listing.SortTitle, 0, false, func(mv catalog.Movie) string { return mv.Title }},
	{"Release", listing.SortReleaseDate, 10, false, func(mv catalog.Movie) string { return formatDate(mv.ReleaseDate) }},
	{"Rating", listing.SortVoteAverage, 7, true, func(mv catalog.Movie) string { return formatRating(mv.VoteAverage) }},
	{"Votes", "", 9, true, func(mv catalog.Movie) string { return formatCount(mv.VoteCount) }},
	{"Popularity", listing.SortPopularity, 10, true, func(mv catalog.Movie) string { return formatPopularity(mv.Popularity) }},
	{"Updated", listing.SortUpdatedAt, 10, false, func(mv catalog.Movie) string { return formatDate(mv.UpdatedAt) }},
}

func (m Model) handleMoviesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.list.State()
	switch {
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.searchInput.SetValue(st.Search)
		m.searchInput.CursorEnd()
		cmd := m.searchInput.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.FilterDates):
		m.modal = newDateFilterModal(st.StartDate, st.EndDate)
		return m, nil
	case key.Matches(msg, m.keys.ClearFilters):
		m.list.ClearSearch()
		m.list.ClearDates()
		m.searchInput.SetValue("")
		return m.reloadMovies()

	case key.Matches(msg, m.keys.SortNext):
		m.list.SortBy(nextSortField(st.SortBy))
		return m.reloadMovies()
	case key.Matches(msg, m.keys.SortOrder):
		m.list.SortBy(st.SortBy)
		return m.reloadMovies()

	case key.Matches(msg, m.keys.PrevPage):
		m.list.PrevPage()
		return m.reloadMovies()
	case key.Matches(msg, m.keys.NextPage):
		m.list.NextPage()
		return m.reloadMovies()
	case key.Matches(msg, m.keys.FirstPage):
		m.list.FirstPage()
		return m.reloadMovies()
	case key.Matches(msg, m.keys.LastPage):
		m.list.LastPage()
		return m.reloadMovies()

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(0, len(m.page.Movies)-1)
	case key.Matches(msg, m.keys.HalfPageUp):
		m.moveSelection(-max(1, len(m.page.Movies)/2))
	case key.Matches(msg, m.keys.HalfPageDown):
		m.moveSelection(max(1, len(m.page.Movies)/2))

	case key.Matches(msg, m.keys.Refresh):
		if m.cache != nil {
			m.cache.Invalidate(query.FamilyMovies)
		}
		return m, m.loadMovies()

	case key.Matches(msg, m.keys.New):
		m.modal = newFormModal(nil, m.mutations)
	case key.Matches(msg, m.keys.Open):
		if mv, ok := m.selectedMovie(); ok {
			m.modal = newDetailModal(mv, m.images)
		}
	case key.Matches(msg, m.keys.Edit):
		if mv, ok := m.selectedMovie(); ok {
			m.modal = newFormModal(&mv, m.mutations)
		}
	case key.Matches(msg, m.keys.Delete):
		if mv, ok := m.selectedMovie(); ok {
			m.modal = newConfirmModal(mv, m.mutations)
		}
	}
	return m, nil
}

// handleSearchInput feeds keystrokes to the search box. Every change goes
// to the list controller, which debounces the committed search.
func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		m.list.CommitSearch()
		return m.reloadMovies()
	}

	before := m.searchInput.Value()
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if after := m.searchInput.Value(); after != before {
		if strings.TrimSpace(after) == "" {
			m.list.ClearSearch()
			reload := m.reloadCmd()
			return m, tea.Batch(cmd, reload)
		}
		m.list.SetSearch(after)
	}
	return m, cmd
}

func (m Model) applyDateFilter(msg dateFilterMsg) (tea.Model, tea.Cmd) {
	if err := m.list.SetStartDate(msg.start); err != nil {
		m.notes.Error("Start " + err.Error())
		return m, nil
	}
	if err := m.list.SetEndDate(msg.end); err != nil {
		m.notes.Error("End " + err.Error())
		return m, nil
	}
	return m.reloadMovies()
}

func (m Model) reloadMovies() (tea.Model, tea.Cmd) {
	cmd := m.reloadCmd()
	return m, cmd
}

// reloadCmd moves the mount to the current list key and loads it.
func (m *Model) reloadCmd() tea.Cmd {
	m.syncMounts()
	m.refreshPage()
	return m.loadMovies()
}

func (m *Model) moveSelection(delta int) {
	n := len(m.page.Movies)
	if n == 0 {
		m.selectedRow = 0
		return
	}
	m.selectedRow = max(0, min(m.selectedRow+delta, n-1))
}

func (m Model) selectedMovie() (catalog.Movie, bool) {
	if !m.hasPage || m.selectedRow < 0 || m.selectedRow >= len(m.page.Movies) {
		return catalog.Movie{}, false
	}
	return m.page.Movies[m.selectedRow], true
}

func nextSortField(current listing.SortField) listing.SortField {
	for i, f := range listing.SortFields {
		if f == current {
			return listing.SortFields[(i+1)%len(listing.SortFields)]
		}
	}
	return listing.DefaultSort
}

// renderMovies renders the filter line, the table and the pager.
func (m Model) renderMovies(height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	st := m.list.State()
	inner := max(20, m.width-2)

	filters := m.renderFilterLine(st, inner)
	tableRows := max(1, height-2-3)

	var body []string
	body = append(body, filters)
	body = append(body, m.renderTableHeader(st, inner))

	entry := m.entryState(m.list.Key())
	switch {
	case !m.hasPage && entry.Err != nil:
		body = append(body, styles.DangerText.Render("Failed to load movies: "+entry.Err.Error()))
	case !m.hasPage:
		body = append(body, styles.MutedText.Render("Loading..."))
	case len(m.page.Movies) == 0:
		body = append(body, styles.FaintText.Render("No movies found"))
	default:
		start := 0
		if m.selectedRow >= tableRows {
			start = m.selectedRow - tableRows + 1
		}
		for i := start; i < len(m.page.Movies) && i < start+tableRows; i++ {
			body = append(body, m.renderMovieRow(m.page.Movies[i], inner, i == m.selectedRow))
		}
	}
	for len(body) < tableRows+2 {
		body = append(body, "")
	}
	body = append(body, m.renderPager(st, entry))

	title := "Movies"
	if m.hasPage && m.page.Meta.Total > 0 {
		title = fmt.Sprintf("Movies (%s)", formatCount(int64(m.page.Meta.Total)))
	}
	return m.renderTitledBox(title, strings.Join(body, "\n"), m.width, height, true)
}

func (m Model) renderFilterLine(st listing.State, width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	var search string
	switch {
	case m.searching:
		search = m.searchInput.View()
	case st.Search != "":
		search = styles.MutedText.Render("Search: ") + styles.Text.Render(st.Search)
	default:
		search = styles.FaintText.Render("/ to search")
	}
	if st.SearchPending() {
		search += styles.WarningText.Render(" …")
	}

	dates := "any date"
	if st.StartDate != "" || st.EndDate != "" {
		from, to := st.StartDate, st.EndDate
		if from == "" {
			from = "…"
		}
		if to == "" {
			to = "…"
		}
		dates = from + " .. " + to
	}
	right := styles.MutedText.Render("Released: ") + styles.Text.Render(dates)
	gap := max(1, width-lipgloss.Width(search)-lipgloss.Width(right))
	return search + strings.Repeat(" ", gap) + right
}

func (m Model) columnWidths(width int) []int {
	widths := make([]int, len(movieColumns))
	fixed := 0
	for i, c := range movieColumns {
		widths[i] = c.width
		fixed += c.width + 1
	}
	for i, c := range movieColumns {
		if c.width == 0 {
			widths[i] = max(10, width-fixed)
		}
	}
	return widths
}

func (m Model) renderTableHeader(st listing.State, width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	widths := m.columnWidths(width)
	cells := make([]string, len(movieColumns))
	for i, c := range movieColumns {
		title := c.title
		if c.sort != "" && c.sort == st.SortBy {
			if st.Order == listing.Asc {
				title += " ▲"
			} else {
				title += " ▼"
			}
		}
		if c.right {
			cells[i] = fitRight(title, widths[i])
		} else {
			cells[i] = fit(title, widths[i])
		}
	}
	return styles.AccentText.Bold(true).Render(strings.Join(cells, " "))
}

func (m Model) renderMovieRow(mv catalog.Movie, width int, selected bool) string {
	widths := m.columnWidths(width)
	cells := make([]string, len(movieColumns))
	for i, c := range movieColumns {
		if c.right {
			cells[i] = fitRight(c.value(mv), widths[i])
		} else {
			cells[i] = fit(c.value(mv), widths[i])
		}
	}
	line := strings.Join(cells, " ")
	if selected {
		return lipgloss.NewStyle().
			Background(lipgloss.Color(m.theme.SelectionBg)).
			Foreground(lipgloss.Color(m.theme.SelectionText)).
			Width(width).
			Render(line)
	}
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	return styles.Text.Render(line)
}

func (m Model) renderPager(st listing.State, entry query.State) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	pager := styles.MutedText.Render(fmt.Sprintf("Page %d of %d", st.Page, max(1, st.TotalPages)))
	if entry.Fetching || (m.hasPage && m.pageKey != m.list.Key()) {
		pager += styles.WarningText.Render("  loading…")
	}
	if entry.Err != nil && m.hasPage {
		pager += styles.DangerText.Render("  refresh failed")
	}
	return pager
}
