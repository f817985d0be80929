// Package paginate accumulates pages of a cursor-paginated list on top of
// the request cache.
package paginate

import (
	"context"
	"sync"

	"github.com/vadimbarashkov/shorty/internal/cache"
)

// KeyFunc returns the cache key of page index. previous is nil for the
// first page. A null key means the page cannot be requested yet.
type KeyFunc[P any] func(index int, previous *P) cache.Key

// Pager holds an ordered sequence of pages. Each page key is derived from
// the previous page, so at most one page is requested at a time.
type Pager[P any] struct {
	mu      sync.Mutex
	cache   *cache.Cache
	key     KeyFunc[P]
	fetch   cache.Fetcher[P]
	isLast  func(P) bool

	keys    []cache.Key
	pages   []P
	loading bool
	err     error
	gen     uint64
}

// New returns an empty Pager reading pages through c. isLast reports
// whether a resolved page ends the list.
func New[P any](c *cache.Cache, key KeyFunc[P], fetch cache.Fetcher[P], isLast func(P) bool) *Pager[P] {
	return &Pager[P]{
		cache:  c,
		key:    key,
		fetch:  fetch,
		isLast: isLast,
	}
}

// Load resolves the first page when nothing is loaded yet. Otherwise it
// reads the known pages again, which serves them from the cache and
// revalidates those that went stale.
func (p *Pager[P]) Load(ctx context.Context) error {
	p.mu.Lock()
	if len(p.keys) == 0 {
		p.mu.Unlock()
		_, err := p.LoadMore(ctx)
		return err
	}
	keys := append([]cache.Key(nil), p.keys...)
	gen := p.gen
	p.mu.Unlock()

	var firstErr error
	for i, k := range keys {
		state := cache.Read(ctx, p.cache, k, p.fetch)
		if state.Err != nil && firstErr == nil {
			firstErr = state.Err
		}
		if !state.HasData {
			continue
		}

		p.mu.Lock()
		if gen == p.gen && i < len(p.pages) {
			p.pages[i] = state.Data
		}
		p.mu.Unlock()
	}

	return firstErr
}

// LoadMore requests the page after the last resolved one. It does nothing
// and reports false when the end is reached, a page is in flight or the
// next key is null. A failed page is not appended; the next call retries it.
func (p *Pager[P]) LoadMore(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.loading || p.endReached() {
		p.mu.Unlock()
		return false, nil
	}

	index := len(p.pages)
	var previous *P
	if index > 0 {
		prev := p.pages[index-1]
		previous = &prev
	}

	key := p.key(index, previous)
	if key.IsZero() {
		p.mu.Unlock()
		return false, nil
	}

	p.loading = true
	gen := p.gen
	p.mu.Unlock()

	state := cache.Read(ctx, p.cache, key, p.fetch)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		return true, state.Err
	}

	p.loading = false
	p.err = state.Err

	if !state.HasData {
		p.cache.Invalidate(key)
		return true, state.Err
	}

	p.keys = append(p.keys, key)
	p.pages = append(p.pages, state.Data)

	return true, state.Err
}

// EndReached reports whether the last resolved page ends the list.
func (p *Pager[P]) EndReached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.endReached()
}

func (p *Pager[P]) endReached() bool {
	if len(p.pages) == 0 {
		return false
	}
	return p.isLast(p.pages[len(p.pages)-1])
}

// Pages returns the resolved pages in order.
func (p *Pager[P]) Pages() []P {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]P(nil), p.pages...)
}

// Loading reports whether a page is in flight.
func (p *Pager[P]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.loading
}

// Err returns the error of the last LoadMore.
func (p *Pager[P]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.err
}

// Reset drops every page. A page still in flight is discarded when it
// settles.
func (p *Pager[P]) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keys = nil
	p.pages = nil
	p.loading = false
	p.err = nil
	p.gen++
}
