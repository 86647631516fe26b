// Package listing owns the page, sort and filter state of the movie list.
//
// The state tuple is the list's query key: any change yields a new key and
// so a new (or cached) read, never an in-place edit of the previous result.
package listing

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/query"
)

// SortField is a column the catalog can order by.
type SortField string

// Sortable columns.
const (
	SortID          SortField = "id"
	SortTitle       SortField = "title"
	SortReleaseDate SortField = "release_date"
	SortVoteAverage SortField = "vote_average"
	SortPopularity  SortField = "popularity"
	SortUpdatedAt   SortField = "updated_at"
)

// SortFields lists every sortable column in display order.
var SortFields = []SortField{SortID, SortTitle, SortReleaseDate, SortVoteAverage, SortPopularity, SortUpdatedAt}

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "ASC"
	Desc Order = "DESC"
)

// Defaults for a fresh list.
const (
	DefaultLimit   = 10
	DefaultSort    = SortUpdatedAt
	DefaultOrder   = Desc
	SearchDebounce = 500 * time.Millisecond

	dateLayout = "2006-01-02"
)

// ParseSortField validates a sort column name.
func ParseSortField(s string) (SortField, error) {
	for _, f := range SortFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown sort field %q", s)
}

// ParseOrder validates a sort direction, ignoring case.
func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Asc):
		return Asc, nil
	case string(Desc):
		return Desc, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is a snapshot of the list controls.
type State struct {
	Page            int
	Limit           int
	Search          string
	DebouncedSearch string
	SortBy          SortField
	Order           Order
	StartDate       string
	EndDate         string
	TotalPages      int
}

// SearchPending reports whether typed text has not been committed yet.
func (s State) SearchPending() bool {
	return s.Search != s.DebouncedSearch
}

// Filtered reports whether a search or date filter is active.
func (s State) Filtered() bool {
	return s.DebouncedSearch != "" || s.StartDate != "" || s.EndDate != ""
}

// Controller mutates list state. It is safe for concurrent use; the debounce
// timer fires on its own goroutine.
type Controller struct {
	mu        sync.Mutex
	st        State
	afterFunc AfterFunc
	pending   Timer
	seq       uint64
	onChange  func(State)
}

// Option configures a Controller.
type Option func(*Controller)

// WithAfterFunc replaces the debounce scheduler.
func WithAfterFunc(fn AfterFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.afterFunc = fn
		}
	}
}

// WithOnChange registers a listener called after every query-relevant change,
// including debounced search commits.
func WithOnChange(fn func(State)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// WithLimit overrides the page size.
func WithLimit(limit int) Option {
	return func(c *Controller) {
		if limit > 0 {
			c.st.Limit = limit
		}
	}
}

// New returns a controller on page 1 sorted by most recently updated.
func New(opts ...Option) *Controller {
	c := &Controller{
		st: State{
			Page:       1,
			Limit:      DefaultLimit,
			SortBy:     DefaultSort,
			Order:      DefaultOrder,
			TotalPages: 1,
		},
		afterFunc: stdAfterFunc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Key is the query key of the current list read.
func (c *Controller) Key() query.Key {
	return KeyFor(c.State())
}

// Params is the list request for the current state.
func (c *Controller) Params() catalog.ListParams {
	return ParamsFor(c.State())
}

// KeyFor derives the movies query key from a snapshot.
func KeyFor(s State) query.Key {
	return query.NewKey(query.FamilyMovies,
		s.Page, s.Limit, s.DebouncedSearch, string(s.SortBy), string(s.Order), s.StartDate, s.EndDate)
}

// ParamsFor derives list request parameters from a snapshot.
func ParamsFor(s State) catalog.ListParams {
	return catalog.ListParams{
		Page:      s.Page,
		Limit:     s.Limit,
		Search:    s.DebouncedSearch,
		SortBy:    string(s.SortBy),
		Order:     string(s.Order),
		StartDate: s.StartDate,
		EndDate:   s.EndDate,
	}
}

// SetSearch records typed text immediately and commits it after the debounce
// delay. Each call cancels the previously scheduled commit.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.st.Search = text
	c.cancelPendingLocked()
	seq := c.seq
	c.pending = c.afterFunc(SearchDebounce, func() { c.commitSearch(seq) })
	c.mu.Unlock()
}

// CommitSearch commits the typed text now, skipping the debounce.
func (c *Controller) CommitSearch() {
	c.mu.Lock()
	c.cancelPendingLocked()
	seq := c.seq
	c.mu.Unlock()
	c.commitSearch(seq)
}

func (c *Controller) commitSearch(seq uint64) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	c.st.DebouncedSearch = c.st.Search
	c.st.Page = 1
	c.changedLocked()
}

// ClearSearch drops typed and committed text and returns to page 1.
func (c *Controller) ClearSearch() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.st.Search = ""
	c.st.DebouncedSearch = ""
	c.st.Page = 1
	c.changedLocked()
}

// SortBy orders by field. Choosing the current field flips the direction; a
// new field starts descending.
func (c *Controller) SortBy(field SortField) {
	c.mu.Lock()
	if c.st.SortBy == field {
		if c.st.Order == Asc {
			c.st.Order = Desc
		} else {
			c.st.Order = Asc
		}
	} else {
		c.st.SortBy = field
		c.st.Order = Desc
	}
	c.changedLocked()
}

// SetStartDate sets the lower release date bound (yyyy-MM-dd, empty clears).
func (c *Controller) SetStartDate(date string) error {
	return c.setDate(&c.st.StartDate, date)
}

// SetEndDate sets the upper release date bound (yyyy-MM-dd, empty clears).
func (c *Controller) SetEndDate(date string) error {
	return c.setDate(&c.st.EndDate, date)
}

func (c *Controller) setDate(field *string, date string) error {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return fmt.Errorf("date %q is not yyyy-mm-dd", date)
		}
	}
	c.mu.Lock()
	*field = date
	c.st.Page = 1
	c.changedLocked()
	return nil
}

// ClearDates removes both date bounds.
func (c *Controller) ClearDates() {
	c.mu.Lock()
	c.st.StartDate = ""
	c.st.EndDate = ""
	c.st.Page = 1
	c.changedLocked()
}

// SetPage moves to page, clamped to the known page range.
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	c.st.Page = clamp(page, c.st.TotalPages)
	c.changedLocked()
}

// NextPage advances one page.
func (c *Controller) NextPage() {
	c.mu.Lock()
	c.st.Page = clamp(c.st.Page+1, c.st.TotalPages)
	c.changedLocked()
}

// PrevPage goes back one page.
func (c *Controller) PrevPage() {
	c.mu.Lock()
	c.st.Page = clamp(c.st.Page-1, c.st.TotalPages)
	c.changedLocked()
}

// FirstPage jumps to page 1.
func (c *Controller) FirstPage() {
	c.SetPage(1)
}

// LastPage jumps to the last known page.
func (c *Controller) LastPage() {
	c.mu.Lock()
	c.st.Page = c.st.TotalPages
	c.changedLocked()
}

// ApplyMeta records the server's page count, which is authoritative, and
// pulls the current page back into range.
func (c *Controller) ApplyMeta(meta catalog.PaginationMeta) {
	c.mu.Lock()
	total := meta.TotalPages
	if total < 1 {
		total = 1
	}
	page := clamp(c.st.Page, total)
	if total == c.st.TotalPages && page == c.st.Page {
		c.mu.Unlock()
		return
	}
	c.st.TotalPages = total
	c.st.Page = page
	c.changedLocked()
}

// Close cancels a pending search commit.
func (c *Controller) Close() {
	c.mu.Lock()
	c.cancelPendingLocked()
	c.mu.Unlock()
}

func (c *Controller) cancelPendingLocked() {
	c.seq++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

// changedLocked releases the lock and notifies the listener.
func (c *Controller) changedLocked() {
	st := c.st
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}

func clamp(page, total int) int {
	if total < 1 {
		total = 1
	}
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}
