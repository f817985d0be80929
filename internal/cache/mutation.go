package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/vadimbarashkov/shorty/internal/entity"
)

// MutationFetcher performs a write for key with arg.
type MutationFetcher[T, A any] func(ctx context.Context, key Key, arg A) (T, error)

// MutationState is a snapshot of a Mutation.
type MutationState[T any] struct {
	Data     T
	HasData  bool
	Err      error
	Mutating bool
}

// Mutation is an explicitly triggered write. It never reads the cache and
// does not invalidate related entries: callers decide what to refresh.
type Mutation[T, A any] struct {
	mu       sync.Mutex
	fetch    MutationFetcher[T, A]
	data     T
	hasData  bool
	err      error
	mutating int
	gen      uint64
}

// NewMutation returns a Mutation that writes with fetch.
func NewMutation[T, A any](fetch MutationFetcher[T, A]) *Mutation[T, A] {
	return &Mutation[T, A]{fetch: fetch}
}

// Trigger runs the mutation and returns its result. The result is also kept
// as the mutation's data unless Reset is called while it is in flight.
func (m *Mutation[T, A]) Trigger(ctx context.Context, key Key, arg A) (T, error) {
	const op = "cache.Mutation.Trigger"

	var zero T

	if key.IsZero() {
		return zero, fmt.Errorf("%s: %w", op, entity.ErrNoKey)
	}

	m.mu.Lock()
	m.mutating++
	gen := m.gen
	m.mu.Unlock()

	v, err := m.fetch(ctx, key, arg)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.mutating--
	if gen != m.gen {
		return v, err
	}

	if err != nil {
		m.err = err
		return zero, err
	}

	m.data = v
	m.hasData = true
	m.err = nil

	return v, nil
}

// State returns the current mutation state.
func (m *Mutation[T, A]) State() MutationState[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MutationState[T]{
		Data:     m.data,
		HasData:  m.hasData,
		Err:      m.err,
		Mutating: m.mutating > 0,
	}
}

// Reset clears data and error. Results of triggers still in flight are
// discarded.
func (m *Mutation[T, A]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	m.data = zero
	m.hasData = false
	m.err = nil
	m.gen++
}
