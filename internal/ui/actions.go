package ui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/mutation"
)

// submitForm saves a movie off the update loop.
func (m Model) submitForm(msg formSubmitMsg) tea.Cmd {
	if m.mutations == nil {
		return nil
	}
	mutations, parent := m.mutations, m.ctx
	if msg.id == 0 {
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(parent, MutationTimeout)
			defer cancel()
			_, err := mutations.Create(ctx, msg.form)
			return mutationDoneMsg{kind: mutation.KindCreate, err: err}
		}
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, MutationTimeout)
		defer cancel()
		_, err := mutations.Update(ctx, msg.id, msg.form)
		return mutationDoneMsg{kind: mutation.KindUpdate, err: err}
	}
}

func (m Model) deleteMovie(id int64) tea.Cmd {
	if m.mutations == nil {
		return nil
	}
	mutations, parent := m.mutations, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, MutationTimeout)
		defer cancel()
		return mutationDoneMsg{kind: mutation.KindDelete, err: mutations.Delete(ctx, id)}
	}
}

func (m Model) runSync() tea.Cmd {
	if m.mutations == nil {
		return nil
	}
	mutations, parent, pages := m.mutations, m.ctx, m.syncPages
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, MutationTimeout)
		defer cancel()
		run, err := mutations.Sync(ctx, pages)
		return mutationDoneMsg{kind: mutation.KindSync, err: err, run: run}
	}
}

// handleMutationDone closes the dialog of a successful write and reloads
// what the view shows. Failed writes keep the dialog open.
func (m Model) handleMutationDone(msg mutationDoneMsg) (tea.Model, tea.Cmd) {
	if errors.Is(msg.err, mutation.ErrBusy) {
		return m, nil
	}
	if msg.kind == mutation.KindSync {
		m.lastRun = msg.run
	}
	if msg.err == nil && m.modalFor(msg.kind) {
		m.modal = nil
		m.mutations.Reset(msg.kind)
	}
	switch m.currentView {
	case ViewMovies:
		cmd := m.reloadCmd()
		return m, cmd
	case ViewDashboard:
		return m, tea.Batch(m.loadDashboard()...)
	case ViewSync:
		return m, m.loadLastSync()
	}
	return m, nil
}

// modalFor reports whether the open dialog belongs to kind.
func (m Model) modalFor(kind mutation.Kind) bool {
	switch d := m.modal.(type) {
	case *formModal:
		return d.kind == kind
	case *confirmModal:
		return kind == mutation.KindDelete
	}
	return false
}

// syncSummary describes a finished run for the sync view.
func syncSummary(run *catalog.SyncLog) string {
	if run == nil {
		return ""
	}
	if run.Succeeded() {
		return plural(run.MoviesAdded, "movie") + " added, " + plural(run.MoviesUpdated, "movie") + " updated"
	}
	if run.ErrorMessage != "" {
		return run.ErrorMessage
	}
	return "Sync failed"
}
