// Package logtail reads the tail of the console's own log file and parses the
// records slog's text handler writes there.
//
// Read keeps a ring buffer of maxLines entries, so memory stays bounded by
// the requested tail rather than the file size, and lines come back oldest
// first. Parse turns
//
//	time=2026-03-01T10:00:00.000Z level=INFO msg="movie saved" op=create id=12
//
// into an Entry with Time, Level, Msg and the remaining attributes in order.
// Lines that do not look like that are kept verbatim so the log view can
// still show them.
package logtail
