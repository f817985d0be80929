package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/vadimbarashkov/shorty/internal/adapter/shortio"
	"github.com/vadimbarashkov/shorty/internal/cache"
	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/session"
	"github.com/vadimbarashkov/shorty/internal/sharetarget"
)

type HomeInput struct {
	Domain    string
	Query     url.Values
	Clipboard string
}

type HomeView struct {
	Domains  []entity.Domain
	Domain   entity.Domain
	URL      string
	Link     *entity.Link
	Mutating bool
	Error    json.RawMessage
}

type ShortenInput struct {
	OriginalURL string
	Domain      string
}

type SaveInput struct {
	ID          string
	Path        string
	OriginalURL string
	Title       string
	AndroidURL  string
	IPhoneURL   string
}

// Home returns the shorten view of the session.
func (uc *LinkUseCase) Home(ctx context.Context, s *session.Session, in HomeInput) (HomeView, error) {
	const op = "usecase.LinkUseCase.Home"

	_, domains, err := uc.domains(ctx, s)
	if err != nil {
		return HomeView{}, fmt.Errorf("%s: %w", op, err)
	}

	view := HomeView{
		Domains: domains,
		URL:     sharetarget.Prefill(in.Query, in.Clipboard),
	}
	view.Domain, _ = entity.FindDomain(domains, in.Domain)

	state := s.Create.State()
	if state.HasData {
		link := state.Data
		view.Link = &link
	}
	view.Mutating = state.Mutating
	view.Error = ErrorPayload(state.Err)

	return view, nil
}

// Shorten creates a short link for originalURL on the domain with the given
// hostname, or on the first domain.
func (uc *LinkUseCase) Shorten(ctx context.Context, s *session.Session, in ShortenInput) (entity.Link, error) {
	const op = "usecase.LinkUseCase.Shorten"

	cred, domains, err := uc.domains(ctx, s)
	if err != nil {
		return entity.Link{}, fmt.Errorf("%s: %w", op, err)
	}

	domain, ok := entity.FindDomain(domains, in.Domain)
	if !ok {
		return entity.Link{}, fmt.Errorf("%s: %w", op, entity.ErrNoDomain)
	}

	link, err := uc.create(ctx, s, cred, entity.LinkCreateOptions{
		OriginalURL: in.OriginalURL,
		Domain:      domain.Hostname,
	})
	if err != nil {
		return entity.Link{}, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (uc *LinkUseCase) create(ctx context.Context, s *session.Session, cred string, opts entity.LinkCreateOptions) (entity.Link, error) {
	s.RememberCreate(opts)

	link, err := s.Create.Trigger(ctx, cache.NewKey(shortio.CreatePath, cred), opts)
	if err != nil {
		return entity.Link{}, err
	}

	uc.invalidateLinks(s, cred)

	return link, nil
}

// current returns the link created in the session, checking it is id when
// id is set.
func current(s *session.Session, id string) (entity.Link, error) {
	state := s.Create.State()
	if !state.HasData {
		return entity.Link{}, entity.ErrNoLink
	}
	if id != "" && state.Data.IDString != id {
		return entity.Link{}, entity.ErrNoLink
	}
	return state.Data, nil
}

// Save customizes the link created in the session. The update is sent
// directly, then the create mutation is reset and triggered again so the
// session shows the link as the API now returns it.
func (uc *LinkUseCase) Save(ctx context.Context, s *session.Session, in SaveInput) (entity.Link, error) {
	const op = "usecase.LinkUseCase.Save"

	cred, err := credential(s)
	if err != nil {
		return entity.Link{}, fmt.Errorf("%s: %w", op, err)
	}

	link, err := current(s, in.ID)
	if err != nil {
		return entity.Link{}, fmt.Errorf("%s: %w", op, err)
	}

	last := s.LastCreate()
	originalURL := in.OriginalURL
	if originalURL == "" {
		originalURL = last.OriginalURL
	}

	if _, err := uc.api.UpdateLink(ctx, cred, link.IDString, entity.LinkUpdateOptions{
		Path:        in.Path,
		OriginalURL: originalURL,
		Title:       in.Title,
		AndroidURL:  in.AndroidURL,
		IPhoneURL:   in.IPhoneURL,
	}); err != nil {
		return entity.Link{}, fmt.Errorf("%s: failed to update link: %w", op, err)
	}

	s.Create.Reset()

	refreshed, err := uc.create(ctx, s, cred, entity.LinkCreateOptions{
		OriginalURL: originalURL,
		Domain:      last.Domain,
	})
	if err != nil {
		return entity.Link{}, fmt.Errorf("%s: failed to refresh link: %w", op, err)
	}

	return refreshed, nil
}

// Delete removes the link created in the session.
func (uc *LinkUseCase) Delete(ctx context.Context, s *session.Session, id string) error {
	const op = "usecase.LinkUseCase.Delete"

	cred, err := credential(s)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	link, err := current(s, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := uc.api.DeleteLink(ctx, cred, link.IDString); err != nil {
		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	s.Create.Reset()
	uc.invalidateLinks(s, cred)

	return nil
}

// QRCode returns the QR code image of a link.
func (uc *LinkUseCase) QRCode(ctx context.Context, s *session.Session, id string) (entity.QRCode, error) {
	const op = "usecase.LinkUseCase.QRCode"

	cred, err := credential(s)
	if err != nil {
		return entity.QRCode{}, fmt.Errorf("%s: %w", op, err)
	}

	state := cache.Read(ctx, s.Cache, cache.NewKey(shortio.QRPath(id), cred), uc.fetchQRCode)
	if !state.HasData {
		if state.Err == nil {
			return entity.QRCode{}, fmt.Errorf("%s: %w", op, entity.ErrNoLink)
		}
		return entity.QRCode{}, fmt.Errorf("%s: %w", op, state.Err)
	}

	return state.Data, nil
}
