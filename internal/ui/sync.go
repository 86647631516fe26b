package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/dashboard"
	"github.com/five82/marquee/internal/mutation"
	"github.com/five82/marquee/internal/query"
)

// moviesPerSyncPage is the provider's page size.
const moviesPerSyncPage = 20

func (m Model) handleSyncKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.MorePages):
		m.setSyncPages(m.syncPages + 1)
	case key.Matches(msg, m.keys.LessPages):
		m.setSyncPages(m.syncPages - 1)
	case key.Matches(msg, m.keys.RunSync):
		if m.mutations == nil || m.mutations.Pending(mutation.KindSync) {
			return m, nil
		}
		return m, m.runSync()
	}
	return m, nil
}

func (m *Model) setSyncPages(n int) {
	n = max(mutation.MinSyncPages, min(n, mutation.MaxSyncPages))
	if n == m.syncPages {
		return
	}
	m.syncPages = n
	m.savePrefs()
}

// renderSync renders the page selector, the run result and the last run.
func (m Model) renderSync(height int) string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	leftWidth := m.width / 2
	rightWidth := m.width - leftWidth

	var left []string
	left = append(left,
		styles.Text.Bold(true).Render("Import movies from TMDB"),
		"",
		styles.MutedText.Render("Pages: ")+styles.AccentText.Bold(true).Render(fmt.Sprintf("%d", m.syncPages))+
			styles.FaintText.Render(fmt.Sprintf("  (about %d movies)", m.syncPages*moviesPerSyncPage)),
		styles.FaintText.Render(fmt.Sprintf("+/- to change, %d-%d", mutation.MinSyncPages, mutation.MaxSyncPages)),
		"",
	)

	status := mutation.Idle
	if m.mutations != nil {
		status = m.mutations.Status(mutation.KindSync)
	}
	switch status {
	case mutation.Pending:
		left = append(left, styles.StatusStyle("pending").Render("SYNCING"), styles.WarningText.Render("Syncing..."))
	case mutation.Succeeded, mutation.Failed:
		label := "success"
		if status == mutation.Failed {
			label = "failure"
		}
		left = append(left, styles.StatusStyle(label).Render(strings.ToUpper(label)))
		if summary := syncSummary(m.lastRun); summary != "" {
			left = append(left, styles.Text.Render(summary))
		} else if err := m.mutations.Err(mutation.KindSync); err != nil {
			left = append(left, styles.DangerText.Render(truncate(err.Error(), leftWidth-4)))
		}
	default:
		left = append(left, styles.FaintText.Render("Press enter to sync"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderTitledBox("Sync", strings.Join(left, "\n"), leftWidth, height, true),
		m.renderTitledBox("Last Sync", m.renderLastSync(rightWidth-2), rightWidth, height, false),
	)
}

func (m Model) renderLastSync(width int) string {
	styles := m.theme.Styles().WithBackground(m.theme.SurfaceAlt)
	key := dashboard.LastSyncKey()
	st := m.entryState(key)
	run, ok := query.Cached[*catalog.SyncLog](m.cache, key)
	switch {
	case !ok:
		return styles.MutedText.Render(loadingText(st))
	case run == nil:
		return styles.FaintText.Render("Never synced")
	}

	at := run.ParsedSyncedAt()
	row := func(label, value string) string {
		return styles.MutedText.Render(fit(label, 10)) + styles.Text.Render(truncate(value, width-10))
	}
	lines := []string{
		styles.StatusStyle(run.Status).Render(strings.ToUpper(run.Status)),
		"",
		row("When", formatTimestamp(at)),
		row("", formatRelative(at, m.now())),
		row("Type", run.SyncType),
		row("Added", fmt.Sprintf("%d", run.MoviesAdded)),
		row("Updated", fmt.Sprintf("%d", run.MoviesUpdated)),
	}
	if run.ErrorMessage != "" {
		lines = append(lines, "", styles.DangerText.Render(truncate(run.ErrorMessage, width)))
	}
	return strings.Join(lines, "\n")
}
