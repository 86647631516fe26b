package ui

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/notify"
)

// renderMain renders the header, command bar, active view and footer.
func (m Model) renderMain() string {
	header := m.renderHeader()
	cmdBar := m.renderCommandBar()
	footer := m.renderFooter()
	contentHeight := max(3, m.height-lipgloss.Height(header)-lipgloss.Height(cmdBar)-lipgloss.Height(footer))

	var content string
	switch m.currentView {
	case ViewMovies:
		content = m.renderMovies(contentHeight)
	case ViewSync:
		content = m.renderSync(contentHeight)
	case ViewLogs:
		content = m.renderLogs(contentHeight)
	default:
		content = m.renderDashboard(contentHeight)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, cmdBar, content, footer)
}

// renderHeader renders the connectivity bar.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("marquee", styles.Logo)}

	switch {
	case m.snapshot.IsOffline():
		parts = append(parts,
			bg.Render("● "+classifyConnectionError(m.snapshot.LastError), styles.DangerText.Bold(true)),
			bg.Render(m.retryText(), styles.WarningText))
	case !m.snapshot.HasStats && m.snapshot.LastError == nil:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText.Bold(true)))
	default:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	}

	if m.snapshot.HasStats {
		parts = append(parts, bg.Pair("Movies:", formatCount(m.snapshot.Stats.TotalMovies), styles.MutedText, styles.Text))
		if m.width >= LayoutCompactWidth {
			parts = append(parts, bg.Pair("Avg:", formatRating(m.snapshot.Stats.AverageRating), styles.MutedText, styles.Text))
		}
	}

	lastSync := "Never"
	if m.snapshot.LastSync != nil {
		lastSync = formatRelative(m.snapshot.LastSync.ParsedSyncedAt(), m.now())
	}
	parts = append(parts, bg.Pair("Synced:", lastSync, styles.MutedText, styles.Text))

	if !m.snapshot.LastUpdated.IsZero() && m.width >= LayoutWideWidth {
		parts = append(parts, bg.Render(m.snapshot.LastUpdated.Local().Format("15:04:05"), styles.FaintText))
	}
	parts = append(parts, bg.Render("["+m.currentView.String()+"]", styles.AccentText))

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

func (m Model) retryText() string {
	if m.pollTick <= 0 {
		return "Retrying..."
	}
	return "Retrying every " + m.pollTick.String() + "..."
}

// classifyConnectionError shortens a poll error for the header.
func classifyConnectionError(err error) string {
	if err == nil {
		return "OFFLINE"
	}
	var statusErr *catalog.HTTPStatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("HTTP %d", statusErr.StatusCode)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "TIMEOUT"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

type command struct{ key, desc string }

// renderCommandBar renders the key hints for the active view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	var commands []command
	switch m.currentView {
	case ViewMovies:
		if m.searching {
			commands = []command{{"Enter", "Apply"}, {"Esc", "Done"}}
			break
		}
		commands = []command{
			{"/", "Search"},
			{"s", "Sort"},
			{"o", "Order"},
			{"f", "Dates"},
			{"x", "Clear"},
			{"←/→", "Page"},
			{"n", "New"},
			{"e", "Edit"},
			{"d", "Delete"},
			{"Enter", "Details"},
		}
	case ViewSync:
		commands = []command{
			{"+/-", "Pages"},
			{"Enter", "Sync"},
		}
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []command{
			{"Space", followLabel},
			{"/", "Search"},
			{"n/N", "Next/Prev"},
		}
	default:
		commands = []command{
			{"[/]", "Range"},
			{"0", "Reset"},
			{"r", "Refresh"},
		}
	}
	commands = append(commands, command{"Tab", "View"}, command{"?", "More"})

	segments := make([]string, 0, len(commands)+2)
	for _, c := range commands {
		segments = append(segments, bg.Render(c.key, styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(c.desc, styles.MutedText))
	}
	if m.currentView == ViewLogs && m.logState.searchQuery != "" {
		segments = append(segments, bg.Render("/"+truncate(m.logState.searchQuery, 18), styles.AccentText))
	}
	segments = append(segments, bg.Render("T", styles.AccentText)+bg.Render(":", styles.FaintText)+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(bg.Join(segments, "  "))
}

// renderFooter shows the newest notification, or the last poll error.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	note, ok := m.notes.Latest(m.now())
	if !ok {
		if m.snapshot.LastError != nil {
			return styles.Footer.Width(m.width).Render(
				bg.Render(truncate(m.snapshot.LastError.Error(), max(10, m.width-2)), styles.FaintText))
		}
		return styles.Footer.Width(m.width).Render("")
	}

	style := styles.InfoText
	icon := "i"
	switch note.Level {
	case notify.LevelSuccess:
		style, icon = styles.SuccessText, "✓"
	case notify.LevelError:
		style, icon = styles.DangerText, "✗"
	}
	text := truncate(note.Text, max(10, m.width-4))
	return styles.Footer.Width(m.width).Render(bg.Render(icon, style.Bold(true)) + bg.Space() + bg.Render(text, style))
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐. A focused box uses the focus colors.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColor, bgColor := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColor, bgColor = m.theme.BorderFocus, m.theme.FocusBg
	}
	bg := NewBgStyle(bgColor)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColor))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(2, width-2)
	title = truncate(title, max(1, innerWidth-4))
	titleLen := lipgloss.Width(title)
	leftPad := max(0, (innerWidth-titleLen-2)/2)
	rightPad := max(0, innerWidth-titleLen-2-leftPad)

	top := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Spaces(1) + bg.Render(title, titleStyle) + bg.Spaces(1) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)
	bottom := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColor))
	lines := strings.Split(content, "\n")
	boxHeight := max(0, height-2)

	rows := make([]string, 0, boxHeight)
	for i := range boxHeight {
		var line string
		if i < len(lines) {
			line = lines[i]
		}
		rows = append(rows, bg.Render("│", borderStyle)+contentStyle.Render(line)+bg.Render("│", borderStyle))
	}
	return top + "\n" + strings.Join(rows, "\n") + "\n" + bottom
}
