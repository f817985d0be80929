// Package cache implements a keyed request cache with stale-while-revalidate
// semantics. Concurrent reads of the same key share a single fetch, failed
// fetches keep the last good value visible, and entries can be revalidated
// when the consuming view regains focus.
package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vadimbarashkov/shorty/internal/metrics"
)

const (
	defaultDedupingInterval = 2 * time.Second
	defaultFocusThrottle    = 5 * time.Second
)

// Fetcher loads the value for key.
type Fetcher[T any] func(ctx context.Context, key Key) (T, error)

type fetchFunc func(ctx context.Context, key Key) (any, error)

// State is a snapshot of a cache entry.
type State[T any] struct {
	Data      T
	HasData   bool
	Err       error
	Loading   bool
	UpdatedAt time.Time
}

type entry struct {
	data      any
	hasData   bool
	err       error
	loading   bool
	stale     bool
	settledAt time.Time
	fetch     fetchFunc

	// marks counts invalidations. A fetch only clears stale when no mark
	// landed while it was in flight.
	marks uint64
}

func (e *entry) markStale() {
	e.stale = true
	e.marks++
}

// Option configures a Cache.
type Option func(*Cache)

// WithDedupingInterval sets how long a settled entry is served without a new fetch.
func WithDedupingInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.dedupingInterval = d
	}
}

// WithFocusThrottle sets the minimum time between two focus revalidations.
func WithFocusThrottle(d time.Duration) Option {
	return func(c *Cache) {
		c.focusThrottle = d
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache stores fetch results by Key.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	group   singleflight.Group
	wg      sync.WaitGroup

	dedupingInterval time.Duration
	focusThrottle    time.Duration
	lastFocus        time.Time
	now              func() time.Time
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:          make(map[Key]*entry),
		dedupingInterval: defaultDedupingInterval,
		focusThrottle:    defaultFocusThrottle,
		now:              time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Read returns the value cached for key, fetching it when needed.
//
// A null key returns an empty state without calling fetch. A fresh entry is
// returned as is. An entry holding stale data is returned immediately with
// Loading set while it is revalidated in the background. Otherwise Read
// blocks until the fetch settles or ctx is done.
func Read[T any](ctx context.Context, c *Cache, key Key, fetch Fetcher[T]) State[T] {
	return typed[T](c.read(ctx, key, func(ctx context.Context, key Key) (any, error) {
		return fetch(ctx, key)
	}))
}

// Peek returns the current state of key without fetching.
func Peek[T any](c *Cache, key Key) State[T] {
	if key.IsZero() {
		return State[T]{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return State[T]{}
	}
	return typed[T](snapshot(e))
}

func (c *Cache) read(ctx context.Context, key Key, fetch fetchFunc) State[any] {
	if key.IsZero() {
		metrics.CacheReads.WithLabelValues(metrics.ReadNull).Inc()
		return State[any]{}
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.fetch = fetch

	switch {
	case c.isFresh(e):
		state := snapshot(e)
		c.mu.Unlock()

		metrics.CacheReads.WithLabelValues(metrics.ReadHit).Inc()
		return state
	case e.hasData:
		state := snapshot(e)
		state.Loading = true
		c.mu.Unlock()

		metrics.CacheReads.WithLabelValues(metrics.ReadStale).Inc()
		c.revalidate(ctx, key, e)
		return state
	}
	c.mu.Unlock()

	metrics.CacheReads.WithLabelValues(metrics.ReadMiss).Inc()
	return c.fetchAndWait(ctx, key, e)
}

func (c *Cache) isFresh(e *entry) bool {
	if e.loading || e.stale || e.settledAt.IsZero() {
		return false
	}
	return c.now().Sub(e.settledAt) < c.dedupingInterval
}

// fetchAndWait returns the state the shared fetch settled with, even when the
// entry was cleared from the map in the meantime.
func (c *Cache) fetchAndWait(ctx context.Context, key Key, e *entry) State[any] {
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(key.id(), func() (any, error) {
		return c.run(detached, key, e), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.CacheDeduplicated.Inc()
		}
		state, _ := res.Val.(State[any])
		return state
	case <-ctx.Done():
		c.mu.Lock()
		state := snapshot(c.entries[key])
		c.mu.Unlock()

		state.Err = ctx.Err()
		return state
	}
}

// revalidate refetches key in the background. The caller's cancellation is
// not propagated: a late response is still stored.
func (c *Cache) revalidate(ctx context.Context, key Key, e *entry) {
	detached := context.WithoutCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		<-c.group.DoChan(key.id(), func() (any, error) {
			return c.run(detached, key, e), nil
		})
	}()
}

// run fetches key into e and returns the settled state of e.
func (c *Cache) run(ctx context.Context, key Key, e *entry) State[any] {
	c.mu.Lock()
	fetch := e.fetch
	if fetch == nil {
		state := snapshot(e)
		c.mu.Unlock()
		return state
	}
	e.loading = true
	marks := e.marks
	c.mu.Unlock()

	v, err := fetch(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()

	e.loading = false
	if e.marks == marks {
		e.stale = false
	}
	e.settledAt = c.now()

	if err != nil {
		e.err = err
	} else {
		e.data = v
		e.hasData = true
		e.err = nil
	}

	return snapshot(e)
}

// Focus revalidates every entry with a known fetcher, as a view does when it
// regains focus. Calls within the focus throttle interval of the previous
// one are ignored. It returns the number of revalidated entries.
func (c *Cache) Focus(ctx context.Context) int {
	c.mu.Lock()
	now := c.now()
	if !c.lastFocus.IsZero() && now.Sub(c.lastFocus) < c.focusThrottle {
		c.mu.Unlock()
		return 0
	}
	c.lastFocus = now

	marked := make(map[Key]*entry, len(c.entries))
	for k, e := range c.entries {
		if e.fetch != nil {
			e.markStale()
			marked[k] = e
		}
	}
	c.mu.Unlock()

	for k, e := range marked {
		c.revalidate(ctx, k, e)
	}

	return len(marked)
}

// Invalidate marks key stale so the next Read refetches it.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.markStale()
	}
}

// InvalidatePrefix marks stale every entry of credential whose path starts
// with prefix. It returns the number of affected entries.
func (c *Cache) InvalidatePrefix(credential, prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if k.hasPrefix(credential, prefix) {
			e.markStale()
			n++
		}
	}

	return n
}

// Clear drops every entry. Fetches still in flight settle into orphaned
// entries; their waiting readers still receive the settled state.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*entry)
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Wait blocks until background revalidations have settled.
func (c *Cache) Wait() {
	c.wg.Wait()
}

func snapshot(e *entry) State[any] {
	if e == nil {
		return State[any]{}
	}

	return State[any]{
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		Loading:   e.loading,
		UpdatedAt: e.settledAt,
	}
}

func typed[T any](s State[any]) State[T] {
	out := State[T]{
		HasData:   s.HasData,
		Err:       s.Err,
		Loading:   s.Loading,
		UpdatedAt: s.UpdatedAt,
	}

	if v, ok := s.Data.(T); ok {
		out.Data = v
	}

	return out
}
