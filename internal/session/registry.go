package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/singleflight"

	"github.com/vadimbarashkov/shorty/internal/cache"
	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/metrics"
	"github.com/vadimbarashkov/shorty/internal/settings"
)

const (
	idLength = 21

	defaultIdleTTL      = 30 * time.Minute
	defaultReapInterval = time.Minute
)

// ErrInvalidID is returned for a device id that was not issued by NewID.
var ErrInvalidID = errors.New("invalid session id")

// NewID returns a new device id.
func NewID() (string, error) {
	const op = "session.NewID"

	id, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// ValidID reports whether id has the shape of a device id.
func ValidID(id string) bool {
	if len(id) != idLength {
		return false
	}

	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}

	return true
}

// Option configures a Registry.
type Option func(*Registry)

func WithIdleTTL(d time.Duration) Option {
	return func(r *Registry) {
		r.idleTTL = d
	}
}

func WithReapInterval(d time.Duration) Option {
	return func(r *Registry) {
		r.reapInterval = d
	}
}

// WithCacheOptions sets the options of every session cache.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(r *Registry) {
		r.cacheOpts = opts
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func withClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// Registry holds the open sessions by device id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opening  singleflight.Group

	repo       settings.Repository
	createLink cache.MutationFetcher[entity.Link, entity.LinkCreateOptions]

	idleTTL      time.Duration
	reapInterval time.Duration
	cacheOpts    []cache.Option
	logger       *slog.Logger
	now          func() time.Time
}

// NewRegistry returns an empty Registry. Sessions load their settings from
// repo and create links with createLink.
func NewRegistry(repo settings.Repository, createLink cache.MutationFetcher[entity.Link, entity.LinkCreateOptions], opts ...Option) *Registry {
	r := &Registry{
		sessions:     make(map[string]*Session),
		repo:         repo,
		createLink:   createLink,
		idleTTL:      defaultIdleTTL,
		reapInterval: defaultReapInterval,
		logger:       slog.Default(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Get returns the session of id, opening it when needed.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	const op = "session.Registry.Get"

	if !ValidID(id) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidID)
	}

	// Touching under the registry lock keeps Reap from closing a session
	// that a request has just picked up.
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		s.touch(r.now())
	}
	r.mu.Unlock()

	if ok {
		return s, nil
	}

	v, err, _ := r.opening.Do(id, func() (any, error) {
		return r.open(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s = v.(*Session)
	s.touch(r.now())

	return s, nil
}

func (r *Registry) open(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	store, err := settings.Open(ctx, r.repo, id)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:       id,
		Settings: store,
		Cache:    cache.New(r.cacheOpts...),
		Create:   cache.NewMutation(r.createLink),
		lastSeen: r.now(),
	}
	s.unwatch = settings.Watch(store, entity.SettingAPIKey, "", func(string) {
		s.resetCredentialState()
	})

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	metrics.ActiveSessions.Inc()

	return s, nil
}

// Close tears the session of id down. It reports whether it was open.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}

	s.close()
	metrics.ActiveSessions.Dec()

	return true
}

// Reap tears down the sessions idle for longer than the idle TTL and returns
// how many were closed.
func (r *Registry) Reap() int {
	deadline := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.idleSince().Before(deadline) {
			delete(r.sessions, id)
			idle = append(idle, s)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.close()
		metrics.ActiveSessions.Dec()
	}

	return len(idle)
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.sessions)
}

// Run reaps idle sessions every reap interval until ctx is done. Open
// sessions are left to CloseAll, which runs once the server has stopped
// serving requests.
func (r *Registry) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Reap(); n > 0 {
				r.logger.Info("idle sessions closed", slog.Int("count", n), slog.Int("open", r.Len()))
			}
		}
	}
}

// CloseAll tears every open session down.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Close(id)
	}
}
