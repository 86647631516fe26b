package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sections := []helpSection{
		{
			title: "Views",
			items: []helpItem{
				{"tab", "Cycle views"},
				{"D/M/S/L", "Dashboard/Movies/Sync/Logs"},
				{"j/k", "Move up/down"},
				{"g/G", "Go to top/bottom"},
				{"ctrl+d/u", "Half page down/up"},
			},
		},
		{
			title: "Dashboard",
			items: []helpItem{
				{"[ ]", "Shift chart range"},
				{"0", "Last 12 months"},
				{"r", "Refresh"},
			},
		},
		{
			title: "Movies",
			items: []helpItem{
				{"/", "Search title"},
				{"s/o", "Sort field/order"},
				{"f/x", "Date filter/clear"},
				{"←/→ < >", "Pages"},
				{"n/e/d", "New/edit/delete"},
				{"enter", "Details"},
			},
		},
		{
			title: "Sync & Logs",
			items: []helpItem{
				{"+/-", "Sync pages"},
				{"enter", "Run sync"},
				{"Space", "Toggle follow mode"},
				{"n/N", "Next/prev match"},
			},
		},
		{
			title: "General",
			items: []helpItem{
				{"T", "Cycle theme"},
				{"?", "Toggle help"},
				{"q/ctrl+c", "Quit"},
			},
		},
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Warning)).Width(12)
	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	return placeModal(m.theme, b.String(), 44, m.width, m.height)
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
