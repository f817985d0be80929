package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vadimbarashkov/shorty/internal/adapter/shortio"
	"github.com/vadimbarashkov/shorty/internal/cache"
	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/paginate"
	"github.com/vadimbarashkov/shorty/internal/session"
)

type LinksInput struct {
	Domain string
}

type LinksView struct {
	Domains    []entity.Domain
	Domain     entity.Domain
	Links      []entity.Link
	Pages      int
	EndReached bool
	Loading    bool
	Error      json.RawMessage
}

// Links returns the first pages of links of the selected domain. Selecting
// another domain starts a new page sequence.
func (uc *LinkUseCase) Links(ctx context.Context, s *session.Session, in LinksInput) (LinksView, error) {
	const op = "usecase.LinkUseCase.Links"

	cred, domains, err := uc.domains(ctx, s)
	if err != nil {
		return LinksView{}, fmt.Errorf("%s: %w", op, err)
	}

	domain, ok := entity.FindDomain(domains, in.Domain)
	if !ok {
		return LinksView{Domains: domains, EndReached: true}, nil
	}

	filter := session.LinksFilter{DomainID: domain.ID, Credential: cred}
	pager := s.Links(filter, func(f session.LinksFilter) *session.LinksPager {
		return uc.newPager(s.Cache, f)
	})
	loadErr := pager.Load(ctx)

	return linksView(domains, domain, pager, loadErr), nil
}

// LoadMore appends the next page of links to the session page sequence.
func (uc *LinkUseCase) LoadMore(ctx context.Context, s *session.Session) (LinksView, error) {
	const op = "usecase.LinkUseCase.LoadMore"

	cred, domains, err := uc.domains(ctx, s)
	if err != nil {
		return LinksView{}, fmt.Errorf("%s: %w", op, err)
	}

	pager := s.CurrentLinks()
	if pager == nil {
		return uc.Links(ctx, s, LinksInput{})
	}

	filter := s.LinksFilter()
	if filter.Credential != cred {
		return uc.Links(ctx, s, LinksInput{})
	}

	var domain entity.Domain
	for _, d := range domains {
		if d.ID == filter.DomainID {
			domain = d
			break
		}
	}

	_, loadErr := pager.LoadMore(ctx)

	return linksView(domains, domain, pager, loadErr), nil
}

func (uc *LinkUseCase) newPager(c *cache.Cache, filter session.LinksFilter) *session.LinksPager {
	key := func(index int, previous *entity.LinkPage) cache.Key {
		if index == 0 {
			return cache.NewKey(shortio.LinksPath(filter.DomainID, uc.pageSize, ""), filter.Credential)
		}
		if previous == nil || previous.NextPageToken == "" {
			return cache.Key{}
		}
		return cache.NewKey(shortio.LinksPath(filter.DomainID, uc.pageSize, previous.NextPageToken), filter.Credential)
	}

	// A page without a next token ends the list even when it has links.
	return paginate.New(c, key, uc.fetchLinks, func(p entity.LinkPage) bool {
		return len(p.Links) == 0 || p.NextPageToken == ""
	})
}

func linksView(domains []entity.Domain, domain entity.Domain, pager *session.LinksPager, err error) LinksView {
	pages := pager.Pages()

	view := LinksView{
		Domains:    domains,
		Domain:     domain,
		Pages:      len(pages),
		EndReached: pager.EndReached(),
		Loading:    pager.Loading(),
		Error:      ErrorPayload(err),
	}

	for _, p := range pages {
		view.Links = append(view.Links, p.Links...)
	}

	return view
}
