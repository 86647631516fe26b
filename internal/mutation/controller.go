// Package mutation runs catalog writes.
//
// Every write is request-then-invalidate: nothing is applied locally, the
// affected query families are invalidated once the server confirms, and the
// outcome is reported as a notification. Writes are never retried.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/afero"

	"github.com/five82/marquee/internal/catalog"
	"github.com/five82/marquee/internal/query"
)

// Kind names a write operation.
type Kind string

// Write operations.
const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindSync   Kind = "sync"
)

// Status is the settle state of the latest call of one Kind.
type Status int

// Statuses.
const (
	Idle Status = iota
	Pending
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Sync page bounds. Each page imports about 20 movies.
const (
	MinSyncPages = 1
	MaxSyncPages = 10
)

// ErrBusy is returned when the same kind of write is already pending.
var ErrBusy = errors.New("mutation already in progress")

// Backend is the subset of the catalog API that writes need.
type Backend interface {
	CreateMovie(ctx context.Context, input catalog.MovieInput) (*catalog.Movie, error)
	UpdateMovie(ctx context.Context, id int64, input catalog.MovieInput) (*catalog.Movie, error)
	DeleteMovie(ctx context.Context, id int64) error
	SyncMovies(ctx context.Context, pages int) (*catalog.SyncLog, error)
	Presign(ctx context.Context, filename, contentType string) (*catalog.UploadTarget, error)
	PutObject(ctx context.Context, presignedURL string, body []byte, contentType string) error
}

// Invalidator marks cached reads stale.
type Invalidator interface {
	Invalidate(families ...query.Family)
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(text string)
	Error(text string)
}

// Controller serialises writes per Kind and tracks their status.
type Controller struct {
	api    Backend
	cache  Invalidator
	notes  Notifier
	fs     afero.Fs
	logger *slog.Logger

	mu       sync.Mutex
	status   map[Kind]Status
	errs     map[Kind]error
	onChange func(Kind, Status)
}

// Option configures a Controller.
type Option func(*Controller)

// WithFs sets the filesystem uploads are read from.
func WithFs(fsys afero.Fs) Option {
	return func(c *Controller) {
		if fsys != nil {
			c.fs = fsys
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithOnChange registers a listener for status transitions.
func WithOnChange(fn func(Kind, Status)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// New returns a controller writing through api.
func New(api Backend, cache Invalidator, notes Notifier, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		cache:  cache,
		notes:  notes,
		fs:     afero.NewOsFs(),
		logger: slog.New(slog.DiscardHandler),
		status: make(map[Kind]Status),
		errs:   make(map[Kind]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status returns the state of the latest call of kind.
func (c *Controller) Status(kind Kind) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[kind]
}

// Pending reports whether a call of kind is in flight.
func (c *Controller) Pending(kind Kind) bool {
	return c.Status(kind) == Pending
}

// Err returns the error of the latest failed call of kind.
func (c *Controller) Err(kind Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errs[kind]
}

// Reset returns a settled kind to Idle, e.g. when its dialog closes.
func (c *Controller) Reset(kind Kind) {
	c.mu.Lock()
	if c.status[kind] == Pending {
		c.mu.Unlock()
		return
	}
	c.status[kind] = Idle
	delete(c.errs, kind)
	c.mu.Unlock()
	c.changed(kind, Idle)
}

// Create saves a new movie.
func (c *Controller) Create(ctx context.Context, form Form) (*catalog.Movie, error) {
	return c.save(ctx, KindCreate, form, func(ctx context.Context, in catalog.MovieInput) (*catalog.Movie, error) {
		return c.api.CreateMovie(ctx, in)
	})
}

// Update saves changes to movie id.
func (c *Controller) Update(ctx context.Context, id int64, form Form) (*catalog.Movie, error) {
	return c.save(ctx, KindUpdate, form, func(ctx context.Context, in catalog.MovieInput) (*catalog.Movie, error) {
		return c.api.UpdateMovie(ctx, id, in)
	})
}

// Delete removes movie id.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.begin(KindDelete); err != nil {
		return err
	}
	if err := c.api.DeleteMovie(ctx, id); err != nil {
		c.fail(KindDelete, err, failureText("Failed to delete movie", err))
		return fmt.Errorf("delete movie %d: %w", id, err)
	}
	c.cache.Invalidate(query.FamilyMovies, query.FamilyDashboardStats)
	c.succeed(KindDelete, "Movie deleted successfully!")
	c.logger.Info("movie deleted", "id", id)
	return nil
}

// Sync imports pages of provider movies, clamped to [MinSyncPages, MaxSyncPages].
// A run the backend reports as failed is returned together with an error.
func (c *Controller) Sync(ctx context.Context, pages int) (*catalog.SyncLog, error) {
	pages = max(MinSyncPages, min(pages, MaxSyncPages))
	if err := c.begin(KindSync); err != nil {
		return nil, err
	}
	run, err := c.api.SyncMovies(ctx, pages)
	if err != nil {
		c.fail(KindSync, err, failureText("Failed to sync movies from TMDB", err))
		return nil, fmt.Errorf("sync %d pages: %w", pages, err)
	}
	c.cache.Invalidate(query.FamilyMovies, query.FamilyDashboardStats, query.FamilyChartData, query.FamilyLastSyncLog)
	if run != nil && run.Status == catalog.SyncStatusFailure {
		err := fmt.Errorf("sync run failed: %s", run.ErrorMessage)
		text := "Failed to sync movies from TMDB"
		if run.ErrorMessage != "" {
			text += ": " + run.ErrorMessage
		}
		c.fail(KindSync, err, text)
		return run, err
	}
	added := 0
	if run != nil {
		added = run.MoviesAdded
	}
	c.succeed(KindSync, fmt.Sprintf("Successfully synced %d movies!", added))
	c.logger.Info("sync finished", "pages", pages, "added", added)
	return run, nil
}

type writeFunc func(ctx context.Context, in catalog.MovieInput) (*catalog.Movie, error)

func (c *Controller) save(ctx context.Context, kind Kind, form Form, write writeFunc) (*catalog.Movie, error) {
	if err := form.Validate(); err != nil {
		c.notes.Error(err.Error())
		return nil, err
	}
	if err := c.begin(kind); err != nil {
		return nil, err
	}

	input := form.Input()
	if err := c.uploadImages(ctx, form, &input); err != nil {
		c.fail(kind, err, uploadMessage(err))
		return nil, err
	}

	movie, err := write(ctx, input)
	if err != nil {
		verb := string(kind)
		c.fail(kind, err, failureText("Failed to "+verb+" movie", err))
		return nil, fmt.Errorf("%s movie: %w", verb, err)
	}
	c.cache.Invalidate(query.FamilyMovies, query.FamilyDashboardStats)
	if kind == KindCreate {
		c.succeed(kind, "Movie created successfully!")
	} else {
		c.succeed(kind, "Movie updated successfully!")
	}
	if movie != nil {
		c.logger.Info("movie saved", "op", kind, "id", movie.ID, "title", movie.Title)
	}
	return movie, nil
}

func (c *Controller) begin(kind Kind) error {
	c.mu.Lock()
	if c.status[kind] == Pending {
		c.mu.Unlock()
		return ErrBusy
	}
	c.status[kind] = Pending
	delete(c.errs, kind)
	c.mu.Unlock()
	c.changed(kind, Pending)
	return nil
}

func (c *Controller) succeed(kind Kind, text string) {
	c.settle(kind, Succeeded, nil)
	c.notes.Success(text)
}

func (c *Controller) fail(kind Kind, err error, text string) {
	c.logger.Warn("mutation failed", "op", kind, "error", err)
	c.settle(kind, Failed, err)
	c.notes.Error(text)
}

func (c *Controller) settle(kind Kind, st Status, err error) {
	c.mu.Lock()
	c.status[kind] = st
	if err != nil {
		c.errs[kind] = err
	}
	c.mu.Unlock()
	c.changed(kind, st)
}

func (c *Controller) changed(kind Kind, st Status) {
	if c.onChange != nil {
		c.onChange(kind, st)
	}
}

// failureText appends the server's reason when it sent one.
func failureText(prefix string, err error) string {
	var statusErr *catalog.HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return prefix + ": " + statusErr.Message
	}
	return prefix
}
