// Package query is the process-wide cache of server reads.
//
// Entries are created lazily on first read and served while fresh. Stale
// entries keep serving their last value while one background refresh runs.
// Fetches for the same key are coalesced, failed fetches are retried once, and
// writes invalidate whole key families.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc"
	"golang.org/x/sync/singleflight"
)

// Defaults applied by New.
const (
	DefaultStaleTime  = 5 * time.Minute
	DefaultRetry      = 1
	DefaultRetryDelay = time.Second

	subscriberBuffer = 64
)

// Options configures a Cache.
type Options struct {
	// StaleTime is how long a value is served without a network call.
	// Zero selects DefaultStaleTime; negative makes every value stale.
	StaleTime time.Duration
	// Retry is the number of retries after a failed fetch. Zero selects
	// DefaultRetry; negative disables retries.
	Retry int
	// RetryDelay is the pause before a retry. Zero selects DefaultRetryDelay.
	RetryDelay time.Duration
	// Now is the clock. Nil selects time.Now.
	Now func() time.Time
	// Logger receives background refresh failures. Nil discards.
	Logger *slog.Logger
}

// Fetcher loads the value for one key.
type Fetcher func(ctx context.Context) (any, error)

// State is a point-in-time view of one entry.
type State struct {
	Value     any
	HasValue  bool
	Err       error
	UpdatedAt time.Time
	Stale     bool
	Fetching  bool
	Mounted   bool
}

type entry struct {
	value     any
	hasValue  bool
	err       error
	updatedAt time.Time

	invalidated bool
	gen         uint64
	fetching    bool
	mounts      int
	fetch       Fetcher
}

// Cache holds entries by Key. Construct it once with New and share the pointer.
type Cache struct {
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[Key]*entry
	flights singleflight.Group
	bg      conc.WaitGroup

	subMu  sync.Mutex
	subs   map[int]chan Key
	nextID int
}

// New returns an empty cache.
func New(opts Options) *Cache {
	if opts.StaleTime == 0 {
		opts.StaleTime = DefaultStaleTime
	}
	if opts.Retry == 0 {
		opts.Retry = DefaultRetry
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		opts:    opts,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[Key]*entry),
		subs:    make(map[int]chan Key),
	}
}

// Get returns the value for key, fetching it when the cache has none.
//
// A fresh value is returned without calling fetch. A stale value is returned
// immediately and refreshed in the background. Without a value the fetch runs
// now; concurrent callers for the same key share one call.
func Get[T any](ctx context.Context, c *Cache, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.get(ctx, key, erase(fetch))
	if err != nil {
		return zero, err
	}
	return cast[T](key, v)
}

// Cached returns the value held for key without fetching.
func Cached[T any](c *Cache, key Key) (T, bool) {
	var zero T
	st, ok := c.Peek(key)
	if !ok || !st.HasValue {
		return zero, false
	}
	v, err := cast[T](key, st.Value)
	if err != nil {
		return zero, false
	}
	return v, true
}

// Mount marks key as rendered until the returned func is called. Mounted
// entries survive invalidation and are refetched with fetch.
func Mount[T any](c *Cache, key Key, fetch func(context.Context) (T, error)) (unmount func()) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.mounts++
	if fetch != nil {
		e.fetch = erase(fetch)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			if e, ok := c.entries[key]; ok && e.mounts > 0 {
				e.mounts--
			}
			c.mu.Unlock()
		})
	}
}

// Peek reports the state of key without fetching.
func (c *Cache) Peek(key Key) (State, bool) {
	now := c.opts.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return State{}, false
	}
	return State{
		Value:     e.value,
		HasValue:  e.hasValue,
		Err:       e.err,
		UpdatedAt: e.updatedAt,
		Stale:     c.staleLocked(e, now),
		Fetching:  e.fetching,
		Mounted:   e.mounts > 0,
	}, true
}

// Invalidate marks every entry of the given families stale. Mounted entries
// are refetched in the background; the rest are dropped.
func (c *Cache) Invalidate(families ...Family) {
	match := make(map[Family]bool, len(families))
	for _, f := range families {
		match[f] = true
	}

	var refetch []Key
	c.mu.Lock()
	for key, e := range c.entries {
		if !match[key.Family] {
			continue
		}
		e.gen++
		if e.mounts == 0 {
			delete(c.entries, key)
			continue
		}
		e.invalidated = true
		if !e.fetching && e.fetch != nil {
			refetch = append(refetch, key)
		}
	}
	c.mu.Unlock()

	c.logger.Debug("query invalidate", "families", families, "refetch", len(refetch))
	for _, key := range refetch {
		c.refresh(key)
	}
}

// Subscribe returns a channel receiving keys whose entry changed. Slow
// readers miss updates rather than blocking the cache.
func (c *Cache) Subscribe() (<-chan Key, func()) {
	ch := make(chan Key, subscriberBuffer)
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
}

// Wait blocks until background refreshes finish.
func (c *Cache) Wait() {
	c.bg.Wait()
}

// Close stops background work and waits for it.
func (c *Cache) Close() {
	c.cancel()
	c.bg.Wait()
}

func (c *Cache) get(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	now := c.opts.Now()
	c.mu.Lock()
	e := c.entryLocked(key)
	e.fetch = fetch
	if e.hasValue {
		v := e.value
		stale := c.staleLocked(e, now)
		c.mu.Unlock()
		if stale {
			c.refresh(key)
		}
		return v, nil
	}
	c.mu.Unlock()
	return c.load(ctx, key, fetch)
}

// load runs fetch through the key's single flight. The shared call ignores
// the caller's cancellation; a caller that gives up only stops waiting.
func (c *Cache) load(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(key.String(), func() (any, error) {
		return c.fetchAndStore(flightCtx, key, fetch)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) fetchAndStore(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	c.mu.Lock()
	e := c.entryLocked(key)
	e.fetching = true
	gen := e.gen
	c.mu.Unlock()

	v, err := retry.DoWithData(
		func() (any, error) { return fetch(ctx) },
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.Retry)+1),
		retry.Delay(c.opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("query retry", "key", key.String(), "attempt", n+1, "error", err)
		}),
	)

	now := c.opts.Now()
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		// Dropped by an invalidation while in flight.
		e = &entry{gen: gen + 1}
		c.entries[key] = e
	}
	e.fetching = false
	if err != nil {
		e.err = err
	} else {
		e.value = v
		e.hasValue = true
		e.err = nil
		e.updatedAt = now
	}
	again := false
	if e.gen == gen {
		if err == nil {
			e.invalidated = false
		}
	} else {
		e.invalidated = true
		again = e.mounts > 0 && e.fetch != nil
	}
	c.mu.Unlock()

	c.publish(key)
	if again {
		// This flight is done with the network; let the refetch start its own.
		c.flights.Forget(key.String())
		c.refresh(key)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", key, err)
	}
	return v, nil
}

// refresh revalidates key in the background with its remembered fetcher.
func (c *Cache) refresh(key Key) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.fetch == nil {
		c.mu.Unlock()
		return
	}
	fetch := e.fetch
	c.mu.Unlock()

	c.bg.Go(func() {
		if c.ctx.Err() != nil {
			return
		}
		if _, err := c.load(c.ctx, key, fetch); err != nil {
			c.logger.Warn("query refresh failed", "key", key.String(), "error", err)
		}
	})
}

func (c *Cache) publish(key Key) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- key:
		default:
		}
	}
}

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	return e
}

func (c *Cache) staleLocked(e *entry, now time.Time) bool {
	if !e.hasValue || e.invalidated || c.opts.StaleTime < 0 {
		return true
	}
	return now.Sub(e.updatedAt) >= c.opts.StaleTime
}

func erase[T any](fetch func(context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}
}

func cast[T any](key Key, v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("query %s: cached %T is not %T", key, v, zero)
	}
	return t, nil
}
