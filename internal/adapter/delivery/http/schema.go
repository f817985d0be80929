package http

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/sharetarget"
	"github.com/vadimbarashkov/shorty/internal/usecase"
)

const statusError = "error"

// Prefs statuses shown next to the API key.
const (
	prefsAuthorized    = "Authorized"
	prefsInvalidAPIKey = "Invalid API Key"
)

// shortenRequest represents a request to shorten a URL.
type shortenRequest struct {
	OriginalURL string `json:"originalURL" validate:"required,url"`
	Domain      string `json:"domain" validate:"omitempty,hostname"`
}

// saveRequest represents the customization of a created link.
type saveRequest struct {
	Path        string `json:"path" validate:"required"`
	OriginalURL string `json:"originalURL" validate:"omitempty,url"`
	Title       string `json:"title"`
	AndroidURL  string `json:"androidURL" validate:"omitempty,url"`
	IPhoneURL   string `json:"iphoneURL" validate:"omitempty,url"`
}

// prefsRequest represents a partial settings update.
type prefsRequest struct {
	APIKey  *string `json:"apiKey"`
	DevMode *bool   `json:"devMode"`
}

type domainResponse struct {
	ID       int64  `json:"id"`
	Hostname string `json:"hostname"`
}

func toDomainResponse(d entity.Domain) domainResponse {
	return domainResponse{
		ID:       d.ID,
		Hostname: d.Hostname,
	}
}

func toDomainsResponse(domains []entity.Domain) []domainResponse {
	resp := make([]domainResponse, 0, len(domains))
	for _, d := range domains {
		resp = append(resp, toDomainResponse(d))
	}
	return resp
}

type linkResponse struct {
	IDString       string    `json:"idString"`
	Path           string    `json:"path"`
	Title          string    `json:"title"`
	OriginalURL    string    `json:"originalURL"`
	AndroidURL     string    `json:"androidURL"`
	IPhoneURL      string    `json:"iphoneURL"`
	ShortURL       string    `json:"shortURL"`
	SecureShortURL string    `json:"secureShortURL"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toLinkResponse(l entity.Link) linkResponse {
	return linkResponse{
		IDString:       l.IDString,
		Path:           l.Path,
		Title:          l.Title,
		OriginalURL:    l.OriginalURL,
		AndroidURL:     l.AndroidURL,
		IPhoneURL:      l.IPhoneURL,
		ShortURL:       l.ShortURL,
		SecureShortURL: l.SecureShortURL,
		CreatedAt:      l.CreatedAt,
	}
}

// homeResponse is the shorten view. Slug and shareURL are set once a link
// has been created.
type homeResponse struct {
	Domains  []domainResponse `json:"domains"`
	Domain   *domainResponse  `json:"domain,omitempty"`
	URL      string           `json:"url"`
	Link     *linkResponse    `json:"link,omitempty"`
	Slug     string           `json:"slug,omitempty"`
	ShareURL string           `json:"shareURL,omitempty"`
	Mutating bool             `json:"mutating"`
	Error    json.RawMessage  `json:"error,omitempty"`
}

func toHomeResponse(v usecase.HomeView) homeResponse {
	resp := homeResponse{
		Domains:  toDomainsResponse(v.Domains),
		URL:      v.URL,
		Mutating: v.Mutating,
		Error:    v.Error,
	}

	if v.Domain.Hostname != "" {
		d := toDomainResponse(v.Domain)
		resp.Domain = &d
	}

	if v.Link != nil {
		l := toLinkResponse(*v.Link)
		resp.Link = &l
		resp.Slug = v.Link.Path
		resp.ShareURL = v.Link.ShortURL
	}

	return resp
}

type linksResponse struct {
	Domains    []domainResponse `json:"domains"`
	Domain     *domainResponse  `json:"domain,omitempty"`
	Links      []linkResponse   `json:"links"`
	Pages      int              `json:"pages"`
	EndReached bool             `json:"endReached"`
	Loading    bool             `json:"loading"`
	Error      json.RawMessage  `json:"error,omitempty"`
}

func toLinksResponse(v usecase.LinksView) linksResponse {
	resp := linksResponse{
		Domains:    toDomainsResponse(v.Domains),
		Links:      make([]linkResponse, 0, len(v.Links)),
		Pages:      v.Pages,
		EndReached: v.EndReached,
		Loading:    v.Loading,
		Error:      v.Error,
	}

	if v.Domain.Hostname != "" {
		d := toDomainResponse(v.Domain)
		resp.Domain = &d
	}

	for _, l := range v.Links {
		resp.Links = append(resp.Links, toLinkResponse(l))
	}

	return resp
}

type prefsResponse struct {
	APIKey     string              `json:"apiKey"`
	Authorized bool                `json:"authorized"`
	Status     string              `json:"status,omitempty"`
	Domains    []domainResponse    `json:"domains"`
	Error      json.RawMessage     `json:"error,omitempty"`
	DevMode    bool                `json:"devMode"`
	Params     []sharetarget.Param `json:"params,omitempty"`
}

func toPrefsResponse(v usecase.PrefsView) prefsResponse {
	resp := prefsResponse{
		APIKey:     v.APIKey,
		Authorized: v.Authorized,
		Domains:    toDomainsResponse(v.Domains),
		Error:      v.Error,
		DevMode:    v.DevMode,
		Params:     v.Params,
	}

	switch {
	case v.APIKey == "":
	case v.Authorized:
		resp.Status = prefsAuthorized
	default:
		resp.Status = prefsInvalidAPIKey
	}

	return resp
}

type focusResponse struct {
	Revalidated int `json:"revalidated"`
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Details json.RawMessage   `json:"details,omitempty"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	unauthorizedResponse = errorResponse{
		Status:  statusError,
		Message: "missing or invalid api key",
	}

	linkNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "link not found",
	}

	noDomainResponse = errorResponse{
		Status:  statusError,
		Message: "no domain available",
	}

	transportErrorResponse = errorResponse{
		Status:  statusError,
		Message: "link service unavailable",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

func remoteErrorResponse(payload json.RawMessage) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "link service error",
		Details: payload,
	}
}

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "url":
		return "invalid url"
	case "hostname":
		return "invalid hostname"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
func getValidationErrors(err error) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			validationErrs = append(validationErrs, validationError{
				Field:   e.Field(),
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err),
	}
}
