// Package ui is the Bubble Tea console for the movie catalog.
//
// # Views
//
//   - Dashboard: stat cards, language share, movies per month for a
//     shiftable twelve-month range, and the top rated, most popular and
//     recently added lists
//   - Movies: the paged, searchable, sortable table with create, edit and
//     delete dialogs
//   - Sync: import pages from TMDB and the last sync run
//   - Logs: the console's own log file with follow mode and regex search
//
// # Data Flow
//
// Views never call the catalog directly for reads. Each view mounts the
// query cache entries it renders and loads them through a command; the
// cache publishes changed keys on a channel that the Model drains with
// waitFor, so an invalidation after a write refreshes the screen without
// any view-specific plumbing. Writes go through mutation.Controller, which
// reports outcomes through notify.Center; the footer shows the newest
// note.
//
// Dialogs implement Modal and only emit messages. The Model turns those
// messages into commands, so nothing inside a dialog blocks the update loop.
package ui
