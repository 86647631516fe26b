package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which optional columns hide.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width for side-by-side dashboard panels.
	LayoutWideWidth = 120
)

// Log display limits.
const (
	// LogBufferLimit is the maximum number of log lines read from the file.
	LogBufferLimit = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is how often the UI prunes notifications and
	// re-reads the connectivity snapshot.
	DefaultUIInterval = time.Second

	// LoadTimeout bounds a single view read.
	LoadTimeout = 20 * time.Second

	// MutationTimeout bounds a write, uploads included.
	MutationTimeout = 3 * time.Minute
)
