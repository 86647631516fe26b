package ui

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marquee/internal/logtail"
)

const logRefreshInterval = 2 * time.Second

// logState holds all log-related state.
type logState struct {
	rawLines    []string
	follow      bool
	lastRefresh time.Time
	loadErr     error

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int
	searchMatchIdx int

	// Content caching - skip re-render when unchanged
	contentVersion uint64
	lastRendered   uint64
}

type logsLoadedMsg struct {
	lines []string
	err   error
}

func newLogState() logState {
	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = 100
	return logState{follow: true, searchInput: ti}
}

// initLogViewport initializes the log viewport.
func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(max(1, m.width-4), max(1, m.logViewportHeight()))
	m.logViewport.Style = lipgloss.NewStyle()
}

// logViewportHeight leaves room for header, command bar, footer, the box
// borders and the status line.
func (m Model) logViewportHeight() int {
	return m.height - 6
}

// updateLogViewport resizes the viewport and re-renders changed content.
func (m *Model) updateLogViewport() {
	if !m.ready {
		return
	}
	m.logViewport.Width = max(1, m.width-4)
	m.logViewport.Height = max(1, m.logViewportHeight())
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	if m.logState.lastRendered == 0 || m.logState.contentVersion != m.logState.lastRendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.lastRendered = max(1, m.logState.contentVersion)
	}
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogs renders the log box and its status line.
func (m Model) renderLogs(height int) string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	title := "Log"
	if m.logFile != "" {
		title = "Log  " + truncateMiddle(m.logFile, max(10, m.width/2))
	}
	box := m.renderTitledBox(title, m.logViewport.View(), m.width, max(3, height-1), true)
	return box + "\n" + m.renderLogStatus(styles, bg)
}

func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	switch {
	case m.logState.searchActive:
		return m.logState.searchInput.View()
	case m.logState.searchRegex != nil && len(m.logState.searchMatches) > 0:
		return bg.Render("/"+m.logState.searchQuery, styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", m.logState.searchMatchIdx+1, len(m.logState.searchMatches)), styles.WarningText) +
			bg.Render(" - n next, N previous, Esc clear", styles.FaintText)
	case m.logState.searchRegex != nil:
		return bg.Render("Pattern not found: "+m.logState.searchQuery, styles.DangerText)
	case m.logState.loadErr != nil:
		return bg.Render("Log unavailable: "+m.logState.loadErr.Error(), styles.DangerText)
	}
	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	return bg.Render(fmt.Sprintf("%d lines auto-tail %s", len(m.logState.rawLines), autoTail), styles.FaintText)
}

// renderLogContent renders the colorized log lines.
func (m *Model) renderLogContent() string {
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	if len(m.logState.rawLines) == 0 {
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	matchSet := make(map[int]bool, len(m.logState.searchMatches))
	for _, idx := range m.logState.searchMatches {
		matchSet[idx] = true
	}
	activeMatch := -1
	if m.logState.searchMatchIdx < len(m.logState.searchMatches) {
		activeMatch = m.logState.searchMatches[m.logState.searchMatchIdx]
	}

	lines := make([]string, 0, len(m.logState.rawLines))
	for i, line := range m.logState.rawLines {
		gutter := fmt.Sprintf("%4d │ ", i+1)
		var content string
		switch {
		case i == activeMatch:
			hl := lipgloss.NewStyle().Background(lipgloss.Color(m.theme.Warning)).Foreground(lipgloss.Color(m.theme.Background))
			content = hl.Render(gutter + line)
		case matchSet[i]:
			content = bg.Render(gutter, styles.AccentText) + bg.Render(line, styles.AccentText)
		default:
			content = bg.Render(gutter, styles.FaintText) + m.colorizeLine(line, styles, bg)
		}
		lines = append(lines, bg.FillLine(content, width))
	}
	return strings.Join(lines, "\n")
}

// colorizeLine styles a structured log line: time, level, message, then the
// attributes. Unstructured lines are shown as they are.
func (m *Model) colorizeLine(line string, styles Styles, bg BgStyle) string {
	entry, ok := logtail.Parse(line)
	if !ok {
		return bg.Render(line, styles.Text)
	}
	var b strings.Builder
	if entry.Time != "" {
		ts := entry.Time
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ts = t.Local().Format("2006-01-02 15:04:05")
		}
		b.WriteString(bg.Render(ts, styles.FaintText))
		b.WriteString(bg.Space())
	}
	b.WriteString(bg.Render(fit(entry.Level, 5), levelStyle(entry.Level, styles).Bold(true)))
	b.WriteString(bg.Space())
	b.WriteString(bg.Render(entry.Msg, styles.Text))
	for _, a := range entry.Attrs {
		b.WriteString(bg.Space())
		b.WriteString(bg.Render(a.Key+"=", styles.FaintText))
		b.WriteString(bg.Render(a.Value, styles.MutedText))
	}
	return b.String()
}

func levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "INFO":
		return styles.SuccessText
	case "WARN":
		return styles.WarningText
	case "ERROR":
		return styles.DangerText
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.Text
	}
}

// handleLogsKey processes keyboard input for the logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		m.updateLogViewport()
		if m.logState.follow {
			cmd := m.forceRefreshLogs()
			return m, cmd
		}
	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.SetValue("")
		cmd := m.logState.searchInput.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.NextMatch):
		m.stepSearchMatch(1)
	case key.Matches(msg, m.keys.PrevMatch):
		m.stepSearchMatch(-1)
	case key.Matches(msg, m.keys.Escape):
		if m.logState.searchRegex != nil {
			m.clearLogSearch()
			m.updateLogViewport()
		}
	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false
	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true
	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false
	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfPageDown()
		m.logState.follow = false
	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfPageUp()
		m.logState.follow = false
	case key.Matches(msg, m.keys.Refresh):
		cmd := m.forceRefreshLogs()
		return m, cmd
	}
	return m, nil
}

// handleLogSearchInput handles keyboard input during log search.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		pattern := m.logState.searchInput.Value()
		if pattern == "" {
			m.logState.searchActive = false
			m.logState.searchInput.Blur()
			return m, nil
		}
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return m, nil
		}
		m.logState.searchRegex = re
		m.logState.searchQuery = pattern
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.findSearchMatches()
		if len(m.logState.searchMatches) > 0 {
			m.logState.searchMatchIdx = 0
			m.scrollToSearchMatch()
		}
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) clearLogSearch() {
	m.logState.searchRegex = nil
	m.logState.searchQuery = ""
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
	m.logState.contentVersion++
}

func (m *Model) findSearchMatches() {
	m.logState.searchMatches = nil
	if m.logState.searchRegex == nil {
		return
	}
	for i, line := range m.logState.rawLines {
		if m.logState.searchRegex.MatchString(line) {
			m.logState.searchMatches = append(m.logState.searchMatches, i)
		}
	}
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		m.logState.searchMatchIdx = 0
	}
	m.logState.contentVersion++
}

func (m *Model) stepSearchMatch(delta int) {
	n := len(m.logState.searchMatches)
	if n == 0 {
		return
	}
	m.logState.searchMatchIdx = ((m.logState.searchMatchIdx+delta)%n + n) % n
	m.logState.contentVersion++
	m.scrollToSearchMatch()
	m.updateLogViewport()
}

// scrollToSearchMatch centers the current match when possible.
func (m *Model) scrollToSearchMatch() {
	if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		return
	}
	target := m.logState.searchMatches[m.logState.searchMatchIdx]
	m.logState.follow = false
	m.logViewport.SetYOffset(max(target-m.logViewport.Height/2, 0))
}

// refreshLogs re-reads the log file, at most every logRefreshInterval.
func (m *Model) refreshLogs() tea.Cmd {
	if m.logFile == "" || m.now().Sub(m.logState.lastRefresh) < logRefreshInterval {
		return nil
	}
	return m.forceRefreshLogs()
}

func (m *Model) forceRefreshLogs() tea.Cmd {
	if m.logFile == "" {
		return nil
	}
	m.logState.lastRefresh = m.now()
	path := m.logFile
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogBufferLimit)
		return logsLoadedMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogsLoaded(msg logsLoadedMsg) {
	m.logState.loadErr = msg.err
	if msg.err != nil || slices.Equal(msg.lines, m.logState.rawLines) {
		return
	}
	m.logState.rawLines = msg.lines
	m.findSearchMatches()
	m.logState.contentVersion++
	m.updateLogViewport()
}
