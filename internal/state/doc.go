// Package state holds the connectivity snapshot shared by the poller and the
// UI.
//
// The poller is the single writer: after every refresh of the dashboard
// statistics and the last sync log it calls Update. The UI reads with
// Snapshot on its own tick. Both sides copy, so neither can mutate what the
// other is looking at.
//
// A failed poll keeps the previous data and records the error:
//
//	store.Update(stats, lastSync, nil) // replaces data, clears the error
//	store.Update(nil, nil, err)        // keeps data, counts the failure
//
// Two consecutive failures flip IsOffline, which the header shows as an
// offline badge until the next successful poll.
//
// The zero Store is ready to use.
package state
