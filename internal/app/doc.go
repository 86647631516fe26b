// Package app is the composition root of the marquee console.
//
// Run wires the pieces together in this order:
//
//  1. config.Load reads ~/.config/marquee/config.toml and the environment
//  2. newLogger opens the rotated log file; the terminal belongs to the UI
//  3. catalog.NewClient, query.New and the notification center
//  4. the listing and mutation controllers, whose change callbacks feed
//     channels the UI waits on
//  5. prefetch warms stats, chart data and the last sync run concurrently
//  6. StartPoller keeps state.Store current for the connectivity header
//  7. ui.Run blocks until the user quits
//
// # Polling
//
// The poller reads dashboard stats and the last sync run through the query
// cache every interval (30 seconds by default). Fresh entries cost nothing;
// stale ones return at once and revalidate in the background, and a failed
// background refresh is picked up on the next tick. Consecutive failures
// stretch the interval exponentially up to five minutes and, from the second
// failure on, mark the catalog offline.
//
// # Errors
//
// Only startup failures are returned from Run: an invalid config, an
// unusable log path or an API URL that does not parse. Everything after that
// is logged and shown as a notification.
package app
