package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/dashboard"
	"github.com/five82/marquee/internal/imageurl"
	"github.com/five82/marquee/internal/query"
)

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.RangeBack):
		return m.setChartRange(m.chartRange.Shift(-1))
	case key.Matches(msg, m.keys.RangeForward):
		return m.setChartRange(m.chartRange.Shift(1))
	case key.Matches(msg, m.keys.RangeReset):
		return m.setChartRange(dashboard.DefaultRange(m.now()))
	case key.Matches(msg, m.keys.Refresh):
		if m.cache != nil {
			m.cache.Invalidate(query.FamilyDashboardStats, query.FamilyChartData, query.FamilyLastSyncLog)
		}
		return m, tea.Batch(m.loadDashboard()...)
	}
	return m, nil
}

func (m Model) setChartRange(r dashboard.Range) (tea.Model, tea.Cmd) {
	if r == m.chartRange {
		return m, nil
	}
	m.chartRange = r
	m.syncMounts()
	return m, tea.Batch(m.loadDashboard()...)
}

// renderDashboard renders stat cards, the two charts and the movie lists.
func (m Model) renderDashboard(height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)

	statsState := m.entryState(dashboard.StatsKey())
	stats, hasStats := query.Cached[*catalog.DashboardStats](m.cache, dashboard.StatsKey())
	lastRun, _ := query.Cached[*catalog.SyncLog](m.cache, dashboard.LastSyncKey())

	cardsHeight := 4
	cards := m.renderStatCards(stats, hasStats, statsState, lastRun, cardsHeight)

	rest := max(6, height-cardsHeight)
	chartHeight := rest / 2
	listHeight := rest - chartHeight

	charts := m.renderCharts(chartHeight)

	var lists string
	if hasStats && stats != nil {
		capped := stats.Capped(dashboard.ListCap)
		colWidth := m.width / 3
		lists = lipgloss.JoinHorizontal(lipgloss.Top,
			m.renderMovieList("Top Rated", capped.TopRatedMovies, colWidth, listHeight, func(mv catalog.Movie) string {
				return "★ " + formatRating(mv.VoteAverage)
			}),
			m.renderMovieList("Most Popular", capped.MostPopular, colWidth, listHeight, func(mv catalog.Movie) string {
				return formatPopularity(mv.Popularity)
			}),
			m.renderMovieList("Recently Added", capped.RecentlyAdded, m.width-2*colWidth, listHeight, func(mv catalog.Movie) string {
				return formatDate(mv.CreatedAt)
			}),
		)
	} else {
		lists = m.renderTitledBox("Movies", styles.MutedText.Render(loadingText(statsState)), m.width, listHeight, false)
	}
	return lipgloss.JoinVertical(lipgloss.Left, cards, charts, lists)
}

func loadingText(st query.State) string {
	if st.Err != nil && !st.HasValue {
		return "Failed to load: " + st.Err.Error()
	}
	return "Loading..."
}

func (m Model) renderStatCards(stats *catalog.DashboardStats, ok bool, st query.State, lastRun *catalog.SyncLog, height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	value := func(s string) string {
		if !ok || stats == nil {
			return styles.FaintText.Render(loadingText(st))
		}
		return styles.Text.Bold(true).Render(s)
	}

	var total, avg, votes, synced string
	if ok && stats != nil {
		total = formatCount(stats.TotalMovies)
		avg = formatRating(stats.AverageRating)
		votes = formatCount(stats.TotalVotes)
		synced = formatTimestamp(stats.ParsedLastSync())
	}
	syncBody := value(synced)
	if lastRun != nil {
		status := lastRun.Status
		syncBody += "\n" + styles.StatusStyle(status).Render(strings.ToUpper(status))
	}

	w := m.width / 4
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderTitledBox("Total Movies", value(total), w, height, false),
		m.renderTitledBox("Average Rating", value(avg), w, height, false),
		m.renderTitledBox("Total Votes", value(votes), w, height, false),
		m.renderTitledBox("Last Sync", syncBody, m.width-3*w, height, false),
	)
}

// renderCharts draws the language share and the monthly column chart as
// horizontal bars.
func (m Model) renderCharts(height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	key := dashboard.ChartKey(m.chartRange)
	data, ok := query.Cached[*catalog.ChartData](m.cache, key)

	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth
	rows := max(1, height-2)

	var pie, columns string
	if !ok || data == nil {
		msg := styles.MutedText.Render(loadingText(m.entryState(key)))
		pie, columns = msg, msg
	} else {
		pie = m.renderPie(data.PieChart, leftWidth-2, rows)
		columns = m.renderColumns(data.ColumnChart, rightWidth-2, rows)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderTitledBox("Languages", pie, leftWidth, height, false),
		m.renderTitledBox("Movies by Month  "+m.chartRange.String(), columns, rightWidth, height, false),
	)
}

func (m Model) renderPie(slices []catalog.PieSlice, width, rows int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	if len(slices) == 0 {
		return styles.FaintText.Render("No data")
	}
	var total, top float64
	for _, s := range slices {
		total += s.Value
		top = max(top, s.Value)
	}
	labelWidth := 12
	barWidth := max(4, width-labelWidth-10)

	var lines []string
	for i, s := range slices {
		if i >= rows {
			break
		}
		color := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SeriesColor(i))).Background(lipgloss.Color(m.theme.SurfaceAlt))
		label := s.Label
		if label == "" {
			label = strings.ToUpper(s.Code)
		}
		lines = append(lines, fit(label, labelWidth)+" "+
			color.Render(fit(bar(s.Value, top, barWidth), barWidth))+" "+
			styles.MutedText.Render(fitRight(percent(s.Value, total), 6)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderColumns(columns []catalog.ColumnBar, width, rows int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	if len(columns) == 0 {
		return styles.FaintText.Render("No movies in range")
	}
	if len(columns) > rows {
		columns = columns[len(columns)-rows:]
	}
	var top float64
	for _, c := range columns {
		top = max(top, c.Value)
	}
	labelWidth := 9
	barWidth := max(4, width-labelWidth-8)
	color := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent)).Background(lipgloss.Color(m.theme.SurfaceAlt))

	lines := make([]string, 0, len(columns))
	for _, c := range columns {
		lines = append(lines, fit(c.Label, labelWidth)+" "+
			color.Render(fit(bar(c.Value, top, barWidth), barWidth))+" "+
			styles.Text.Render(fitRight(fmt.Sprintf("%.0f", c.Value), 5)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMovieList(title string, movies []catalog.Movie, width, height int, metric func(catalog.Movie) string) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	inner := max(10, width-2)
	if len(movies) == 0 {
		return m.renderTitledBox(title, styles.FaintText.Render("No movies"), width, height, false)
	}
	var lines []string
	for i, mv := range movies {
		value := metric(mv)
		name := fmt.Sprintf("%d. %s", i+1, mv.Title)
		lines = append(lines, fit(name, inner-lipgloss.Width(value)-1)+" "+styles.AccentText.Render(value))
		poster := m.images.Display(mv.PosterPath, imageurl.SizeThumb, 200, 300)
		lines = append(lines, styles.FaintText.Render("   "+truncateMiddle(poster, inner-3)))
	}
	return m.renderTitledBox(title, strings.Join(lines, "\n"), width, height, false)
}
