// Package session keeps the server-side state of each browser session: its
// settings store, request cache, create-link mutation and link pages.
package session

import (
	"sync"
	"time"

	"github.com/vadimbarashkov/shorty/internal/cache"
	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/paginate"
	"github.com/vadimbarashkov/shorty/internal/settings"
)

// CreateMutation creates short links.
type CreateMutation = cache.Mutation[entity.Link, entity.LinkCreateOptions]

// LinksPager pages through the links of a domain.
type LinksPager = paginate.Pager[entity.LinkPage]

// LinksFilter identifies the list a LinksPager is built for.
type LinksFilter struct {
	DomainID   int64
	Credential string
}

// Session is the state of one browser session.
type Session struct {
	id string

	Settings *settings.Store
	Cache    *cache.Cache
	Create   *CreateMutation

	mu          sync.Mutex
	lastSeen    time.Time
	links       *LinksPager
	linksFilter LinksFilter
	lastCreate  entity.LinkCreateOptions
	unwatch     func()
}

// ID returns the device id of the session.
func (s *Session) ID() string {
	return s.id
}

// Links returns the pager for filter, replacing the current one when it was
// built for another filter.
func (s *Session) Links(filter LinksFilter, build func(LinksFilter) *LinksPager) *LinksPager {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.links == nil || s.linksFilter != filter {
		s.links = build(filter)
		s.linksFilter = filter
	}

	return s.links
}

// CurrentLinks returns the current pager, or nil before the first Links call.
func (s *Session) CurrentLinks() *LinksPager {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.links
}

// LinksFilter returns the filter of the current pager.
func (s *Session) LinksFilter() LinksFilter {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.linksFilter
}

// ResetLinks drops the pager.
func (s *Session) ResetLinks() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.links != nil {
		s.links.Reset()
	}
	s.links = nil
	s.linksFilter = LinksFilter{}
}

// RememberCreate records the options of the last create call.
func (s *Session) RememberCreate(opts entity.LinkCreateOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCreate = opts
}

// LastCreate returns the options recorded by RememberCreate.
func (s *Session) LastCreate() entity.LinkCreateOptions {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastCreate
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = now
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastSeen
}

// resetCredentialState drops everything keyed by the previous credential.
func (s *Session) resetCredentialState() {
	s.Create.Reset()
	s.ResetLinks()

	s.mu.Lock()
	s.lastCreate = entity.LinkCreateOptions{}
	s.mu.Unlock()
}

func (s *Session) close() {
	if s.unwatch != nil {
		s.unwatch()
	}
	s.Settings.Close()
	s.Create.Reset()
	s.ResetLinks()
	s.Cache.Clear()
}
