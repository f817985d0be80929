// Package settings implements the per-session settings store.
//
// Values are kept JSON-encoded, one per name, and persisted through a
// Repository. Subscribers of a name are notified synchronously after each
// successful Set.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/vadimbarashkov/shorty/internal/entity"
)

// ErrClosed is returned by Set after Close.
var ErrClosed = errors.New("settings store closed")

// Repository persists the settings of a device.
type Repository interface {
	Load(ctx context.Context, deviceID string) (map[string]string, error)
	Save(ctx context.Context, deviceID, name, value string) error
	Delete(ctx context.Context, deviceID, name string) error
}

// Store holds the settings of one device.
type Store struct {
	mu       sync.RWMutex
	repo     Repository
	deviceID string
	values   map[string]json.RawMessage
	subs     map[string]map[uint64]func(json.RawMessage)
	nextID   uint64
	closed   bool
}

// Open loads the persisted settings of deviceID.
func Open(ctx context.Context, repo Repository, deviceID string) (*Store, error) {
	const op = "settings.Open"

	rows, err := repo.Load(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	values := make(map[string]json.RawMessage, len(rows))
	for name, v := range rows {
		if !json.Valid([]byte(v)) {
			continue
		}
		values[name] = json.RawMessage(v)
	}

	return &Store{
		repo:     repo,
		deviceID: deviceID,
		values:   values,
		subs:     make(map[string]map[uint64]func(json.RawMessage)),
	}, nil
}

// DeviceID returns the device the store belongs to.
func (s *Store) DeviceID() string {
	return s.deviceID
}

// Lookup returns the encoded value of name.
func (s *Store) Lookup(name string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[name]
	return v, ok
}

// Set encodes value, persists it and notifies the subscribers of name.
func (s *Store) Set(ctx context.Context, name string, value any) error {
	const op = "settings.Store.Set"

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: marshal %q: %w", op, name, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	if err := s.repo.Save(ctx, s.deviceID, name, string(raw)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: save %q: %w", op, name, err)
	}
	s.values[name] = raw

	fns := s.subscribers(name)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(raw)
	}

	return nil
}

// Remove deletes name so readers fall back to their default. Subscribers
// receive a nil value.
func (s *Store) Remove(ctx context.Context, name string) error {
	const op = "settings.Store.Remove"

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrClosed)
	}

	if err := s.repo.Delete(ctx, s.deviceID, name); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%s: delete %q: %w", op, name, err)
	}
	delete(s.values, name)

	fns := s.subscribers(name)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(nil)
	}

	return nil
}

func (s *Store) subscribers(name string) []func(json.RawMessage) {
	fns := make([]func(json.RawMessage), 0, len(s.subs[name]))
	for _, fn := range s.subs[name] {
		fns = append(fns, fn)
	}
	return fns
}

// Subscribe registers fn for changes of name. The returned func removes it.
func (s *Store) Subscribe(name string, fn func(json.RawMessage)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	id := s.nextID
	s.nextID++

	if s.subs[name] == nil {
		s.subs[name] = make(map[uint64]func(json.RawMessage))
	}
	s.subs[name][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.subs[name], id)
	}
}

// Close drops every subscriber. Later calls to Set fail.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.subs = make(map[string]map[uint64]func(json.RawMessage))
}

// Get returns the value of name decoded as T, or def when it is unset or
// holds another type.
func Get[T any](s *Store, name string, def T) T {
	raw, ok := s.Lookup(name)
	if !ok {
		return def
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def
	}

	return v
}

// Watch calls fn with every new value of name decoded as T. A removed
// value or one of another type is reported as def.
func Watch[T any](s *Store, name string, def T, fn func(T)) func() {
	return s.Subscribe(name, func(raw json.RawMessage) {
		var v T
		if raw == nil || json.Unmarshal(raw, &v) != nil {
			fn(def)
			return
		}
		fn(v)
	})
}

// APIKey returns the stored credential, empty when unset.
func APIKey(s *Store) string {
	return Get(s, entity.SettingAPIKey, "")
}

// DevMode reports whether developer mode is on.
func DevMode(s *Store) bool {
	return Get(s, entity.SettingDevMode, false)
}
