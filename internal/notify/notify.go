// Package notify keeps the short-lived messages shown in the footer after
// user actions.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a note.
type Level string

// Note levels.
const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultLifetime is how long a note stays visible.
const DefaultLifetime = 3 * time.Second

const defaultCapacity = 5

// Note is one notification.
type Note struct {
	ID    string
	Level Level
	Text  string
	At    time.Time
}

// Center collects notes. It is safe for concurrent use.
type Center struct {
	mu       sync.Mutex
	notes    []Note
	lifetime time.Duration
	capacity int
	now      func() time.Time
}

// Option configures a Center.
type Option func(*Center)

// WithLifetime overrides DefaultLifetime.
func WithLifetime(d time.Duration) Option {
	return func(c *Center) {
		if d > 0 {
			c.lifetime = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCapacity bounds the number of retained notes; the oldest go first.
func WithCapacity(n int) Option {
	return func(c *Center) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// NewCenter returns an empty Center.
func NewCenter(opts ...Option) *Center {
	c := &Center{
		lifetime: DefaultLifetime,
		capacity: defaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lifetime returns how long notes stay active.
func (c *Center) Lifetime() time.Duration {
	return c.lifetime
}

// Push records a note and returns it.
func (c *Center) Push(level Level, text string) Note {
	n := Note{ID: uuid.NewString(), Level: level, Text: text, At: c.now()}
	c.mu.Lock()
	c.notes = append(c.notes, n)
	if over := len(c.notes) - c.capacity; over > 0 {
		c.notes = append([]Note(nil), c.notes[over:]...)
	}
	c.mu.Unlock()
	return n
}

// Success records a success note.
func (c *Center) Success(text string) { c.Push(LevelSuccess, text) }

// Error records an error note.
func (c *Center) Error(text string) { c.Push(LevelError, text) }

// Info records an informational note.
func (c *Center) Info(text string) { c.Push(LevelInfo, text) }

// Active returns notes younger than the lifetime, oldest first.
func (c *Center) Active(now time.Time) []Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Note
	for _, n := range c.notes {
		if now.Sub(n.At) < c.lifetime {
			out = append(out, n)
		}
	}
	return out
}

// Latest returns the newest active note.
func (c *Center) Latest(now time.Time) (Note, bool) {
	active := c.Active(now)
	if len(active) == 0 {
		return Note{}, false
	}
	return active[len(active)-1], true
}

// Dismiss removes a note by id.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.notes {
		if n.ID == id {
			c.notes = append(c.notes[:i], c.notes[i+1:]...)
			return true
		}
	}
	return false
}

// Prune drops expired notes and reports how many were removed.
func (c *Center) Prune(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.notes[:0]
	for _, n := range c.notes {
		if now.Sub(n.At) < c.lifetime {
			kept = append(kept, n)
		}
	}
	removed := len(c.notes) - len(kept)
	c.notes = kept
	return removed
}
