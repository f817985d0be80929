package shortio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vadimbarashkov/shorty/internal/entity"
)

// Paths of the API endpoints.
const (
	DomainsPath = "/api/domains"
	CreatePath  = "/links"
	// LinksPrefix is shared by every link list page.
	LinksPrefix = "/api/links"
)

// LinksPath returns the list path for one page of links of a domain.
// The page token is left out when empty.
func LinksPath(domainID int64, limit int, pageToken string) string {
	q := url.Values{}
	q.Set("domain_id", strconv.FormatInt(domainID, 10))
	q.Set("limit", strconv.Itoa(limit))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	return LinksPrefix + "?" + q.Encode()
}

// LinkPath returns the path of a single link.
func LinkPath(id string) string {
	return "/links/" + url.PathEscape(id)
}

// QRPath returns the QR code path of a link.
func QRPath(id string) string {
	return "/links/qr/" + url.PathEscape(id)
}

// ListDomains returns the domains available to credential.
func (c *Client) ListDomains(ctx context.Context, credential string) ([]entity.Domain, error) {
	const op = "shortio.Client.ListDomains"

	domains, err := Fetch[[]entity.Domain](ctx, c, credential, Request{
		Method:   http.MethodGet,
		Path:     DomainsPath,
		Endpoint: "domains.list",
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return domains, nil
}

// ListLinks returns one page of links of a domain.
func (c *Client) ListLinks(ctx context.Context, credential string, domainID int64, limit int, pageToken string) (entity.LinkPage, error) {
	return c.ListLinksAt(ctx, credential, LinksPath(domainID, limit, pageToken))
}

// ListLinksAt returns the page of links at path, as built by LinksPath.
func (c *Client) ListLinksAt(ctx context.Context, credential, path string) (entity.LinkPage, error) {
	const op = "shortio.Client.ListLinks"

	page, err := Fetch[entity.LinkPage](ctx, c, credential, Request{
		Method:   http.MethodGet,
		Path:     path,
		Endpoint: "links.list",
	})
	if err != nil {
		return entity.LinkPage{}, fmt.Errorf("%s: %w", op, err)
	}

	return page, nil
}

// CreateLink shortens a URL.
func (c *Client) CreateLink(ctx context.Context, credential string, opts entity.LinkCreateOptions) (entity.Link, error) {
	const op = "shortio.Client.CreateLink"

	link, err := Fetch[entity.Link](ctx, c, credential, Request{
		Method:   http.MethodPost,
		Path:     CreatePath,
		Body:     opts,
		Endpoint: "links.create",
	})
	if err != nil {
		return entity.Link{}, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

// UpdateLink changes an existing link. The API accepts POST on the link
// path for updates.
func (c *Client) UpdateLink(ctx context.Context, credential, id string, opts entity.LinkUpdateOptions) (entity.Link, error) {
	const op = "shortio.Client.UpdateLink"

	link, err := Fetch[entity.Link](ctx, c, credential, Request{
		Method:   http.MethodPost,
		Path:     LinkPath(id),
		Body:     opts,
		Endpoint: "links.update",
	})
	if err != nil {
		return entity.Link{}, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

// DeleteLink removes a link.
func (c *Client) DeleteLink(ctx context.Context, credential, id string) error {
	const op = "shortio.Client.DeleteLink"

	_, err := Fetch[json.RawMessage](ctx, c, credential, Request{
		Method:   http.MethodDelete,
		Path:     LinkPath(id),
		Endpoint: "links.delete",
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// QRCode renders the QR code of a link.
func (c *Client) QRCode(ctx context.Context, credential, id string, opts entity.QROptions) (entity.QRCode, error) {
	return c.QRCodeAt(ctx, credential, QRPath(id), opts)
}

// QRCodeAt renders the QR code at path, as built by QRPath.
func (c *Client) QRCodeAt(ctx context.Context, credential, path string, opts entity.QROptions) (entity.QRCode, error) {
	const op = "shortio.Client.QRCode"

	qr, err := Custom(ctx, c, credential, Request{
		Method:   http.MethodPost,
		Path:     path,
		Body:     opts,
		Endpoint: "links.qr",
	}, readImage)
	if err != nil {
		return entity.QRCode{}, fmt.Errorf("%s: %w", op, err)
	}

	return qr, nil
}

func readImage(resp *http.Response) (entity.QRCode, error) {
	const op = "shortio.readImage"

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return entity.QRCode{}, &entity.TransportError{Op: op, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/json" || resp.StatusCode >= http.StatusMultipleChoices {
		if err := checkEnvelope(resp.StatusCode, body); err != nil {
			return entity.QRCode{}, err
		}
	}

	return entity.QRCode{
		ContentType: contentType,
		Data:        body,
	}, nil
}
