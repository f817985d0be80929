package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vadimbarashkov/shorty/internal/adapter/shortio"
	"github.com/vadimbarashkov/shorty/internal/cache"
	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/session"
	"github.com/vadimbarashkov/shorty/internal/settings"
)

const defaultPageSize = 30

type shortAPI interface {
	ListDomains(ctx context.Context, credential string) ([]entity.Domain, error)
	ListLinksAt(ctx context.Context, credential, path string) (entity.LinkPage, error)
	CreateLink(ctx context.Context, credential string, opts entity.LinkCreateOptions) (entity.Link, error)
	UpdateLink(ctx context.Context, credential, id string, opts entity.LinkUpdateOptions) (entity.Link, error)
	DeleteLink(ctx context.Context, credential, id string) error
	QRCodeAt(ctx context.Context, credential, path string, opts entity.QROptions) (entity.QRCode, error)
}

type LinkUseCase struct {
	api      shortAPI
	pageSize int
	qr       entity.QROptions
}

type Option func(*LinkUseCase)

// WithPageSize sets the number of links requested per page.
func WithPageSize(n int) Option {
	return func(uc *LinkUseCase) {
		if n > 0 {
			uc.pageSize = n
		}
	}
}

// WithQROptions sets how QR codes are rendered.
func WithQROptions(opts entity.QROptions) Option {
	return func(uc *LinkUseCase) {
		uc.qr = opts
	}
}

func New(api shortAPI, opts ...Option) *LinkUseCase {
	uc := &LinkUseCase{
		api:      api,
		pageSize: defaultPageSize,
		qr:       entity.DefaultQROptions,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// CreateLink is the fetcher of the create-link mutation of every session.
func (uc *LinkUseCase) CreateLink(ctx context.Context, key cache.Key, opts entity.LinkCreateOptions) (entity.Link, error) {
	return uc.api.CreateLink(ctx, key.Credential, opts)
}

func (uc *LinkUseCase) fetchDomains(ctx context.Context, key cache.Key) ([]entity.Domain, error) {
	return uc.api.ListDomains(ctx, key.Credential)
}

func (uc *LinkUseCase) fetchLinks(ctx context.Context, key cache.Key) (entity.LinkPage, error) {
	return uc.api.ListLinksAt(ctx, key.Credential, key.Path)
}

func (uc *LinkUseCase) fetchQRCode(ctx context.Context, key cache.Key) (entity.QRCode, error) {
	return uc.api.QRCodeAt(ctx, key.Credential, key.Path, uc.qr)
}

func credential(s *session.Session) (string, error) {
	cred := settings.APIKey(s.Settings)
	if cred == "" {
		return "", entity.ErrNoCredential
	}
	return cred, nil
}

// domains reads the domain list of the session credential. Any failure is
// reported as an auth error.
func (uc *LinkUseCase) domains(ctx context.Context, s *session.Session) (string, []entity.Domain, error) {
	cred, err := credential(s)
	if err != nil {
		return "", nil, err
	}

	state := cache.Read(ctx, s.Cache, cache.NewKey(shortio.DomainsPath, cred), uc.fetchDomains)
	if state.Err != nil {
		return cred, state.Data, fmt.Errorf("%w: %w", entity.ErrDomainsUnavailable, state.Err)
	}

	return cred, state.Data, nil
}

func (uc *LinkUseCase) invalidateLinks(s *session.Session, cred string) {
	s.Cache.InvalidatePrefix(cred, shortio.LinksPrefix)
}

// ErrorPayload returns what a view shows for err: the remote payload when
// there is one, the error text otherwise.
func ErrorPayload(err error) json.RawMessage {
	if err == nil {
		return nil
	}

	if payload, ok := entity.RemotePayload(err); ok {
		return payload
	}

	b, _ := json.Marshal(err.Error())
	return b
}
