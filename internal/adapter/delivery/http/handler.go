package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/vadimbarashkov/shorty/internal/entity"
	"github.com/vadimbarashkov/shorty/internal/session"
	"github.com/vadimbarashkov/shorty/internal/usecase"
)

// clipboardHeader carries the clipboard text read by the client, used to
// prefill the shorten form.
const clipboardHeader = "X-Clipboard"

const prefsPath = "/prefs"

func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "pong")
}

type linkUseCase interface {
	Home(ctx context.Context, s *session.Session, in usecase.HomeInput) (usecase.HomeView, error)
	Shorten(ctx context.Context, s *session.Session, in usecase.ShortenInput) (entity.Link, error)
	Save(ctx context.Context, s *session.Session, in usecase.SaveInput) (entity.Link, error)
	Delete(ctx context.Context, s *session.Session, id string) error
	QRCode(ctx context.Context, s *session.Session, id string) (entity.QRCode, error)
	Links(ctx context.Context, s *session.Session, in usecase.LinksInput) (usecase.LinksView, error)
	LoadMore(ctx context.Context, s *session.Session) (usecase.LinksView, error)
	Prefs(ctx context.Context, s *session.Session, query url.Values) usecase.PrefsView
	UpdatePrefs(ctx context.Context, s *session.Session, in usecase.PrefsInput) error
	Focus(ctx context.Context, s *session.Session) int
}

type linkHandler struct {
	useCase  linkUseCase
	validate *validator.Validate
}

func newLinkHandler(useCase linkUseCase, validate *validator.Validate) *linkHandler {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &linkHandler{
		useCase:  useCase,
		validate: validate,
	}
}

// decode reads and validates a JSON request body, writing the error
// response itself when it fails.
func (h *linkHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if errors.Is(err, io.EOF) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, emptyRequestBodyResponse)
			return false
		}

		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, invalidRequestBodyResponse)
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, validationErrorResponse(err))
		return false
	}

	return true
}

// renderError maps use case errors to responses. Views without a usable
// credential redirect to the prefs view, API routes answer 401.
func renderError(w http.ResponseWriter, r *http.Request, err error, view bool) {
	if entity.IsAuthError(err) {
		if view {
			http.Redirect(w, r, prefsPath, http.StatusSeeOther)
			return
		}

		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, unauthorizedResponse)
		return
	}

	if errors.Is(err, entity.ErrNoLink) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, linkNotFoundResponse)
		return
	}

	if errors.Is(err, entity.ErrNoDomain) {
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, noDomainResponse)
		return
	}

	httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

	if payload, ok := entity.RemotePayload(err); ok {
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, remoteErrorResponse(payload))
		return
	}

	var transportErr *entity.TransportError
	if errors.As(err, &transportErr) {
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, transportErrorResponse)
		return
	}

	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, serverErrorResponse)
}

func (h *linkHandler) home(w http.ResponseWriter, r *http.Request) {
	view, err := h.useCase.Home(r.Context(), sessionFrom(r.Context()), usecase.HomeInput{
		Domain:    r.URL.Query().Get("domain"),
		Query:     r.URL.Query(),
		Clipboard: r.Header.Get(clipboardHeader),
	})
	if err != nil {
		renderError(w, r, err, true)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toHomeResponse(view))
}

func (h *linkHandler) links(w http.ResponseWriter, r *http.Request) {
	view, err := h.useCase.Links(r.Context(), sessionFrom(r.Context()), usecase.LinksInput{
		Domain: r.URL.Query().Get("domain"),
	})
	if err != nil {
		renderError(w, r, err, true)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinksResponse(view))
}

func (h *linkHandler) loadMore(w http.ResponseWriter, r *http.Request) {
	view, err := h.useCase.LoadMore(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		renderError(w, r, err, true)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinksResponse(view))
}

func (h *linkHandler) prefs(w http.ResponseWriter, r *http.Request) {
	view := h.useCase.Prefs(r.Context(), sessionFrom(r.Context()), r.URL.Query())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toPrefsResponse(view))
}

func (h *linkHandler) updatePrefs(w http.ResponseWriter, r *http.Request) {
	var req prefsRequest
	if !h.decode(w, r, &req) {
		return
	}

	s := sessionFrom(r.Context())

	if err := h.useCase.UpdatePrefs(r.Context(), s, usecase.PrefsInput{
		APIKey:  req.APIKey,
		DevMode: req.DevMode,
	}); err != nil {
		renderError(w, r, err, false)
		return
	}

	view := h.useCase.Prefs(r.Context(), s, r.URL.Query())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toPrefsResponse(view))
}

func (h *linkHandler) shorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if !h.decode(w, r, &req) {
		return
	}

	link, err := h.useCase.Shorten(r.Context(), sessionFrom(r.Context()), usecase.ShortenInput{
		OriginalURL: req.OriginalURL,
		Domain:      req.Domain,
	})
	if err != nil {
		renderError(w, r, err, false)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toLinkResponse(link))
}

func (h *linkHandler) save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !h.decode(w, r, &req) {
		return
	}

	link, err := h.useCase.Save(r.Context(), sessionFrom(r.Context()), usecase.SaveInput{
		ID:          chi.URLParam(r, "id"),
		Path:        req.Path,
		OriginalURL: req.OriginalURL,
		Title:       req.Title,
		AndroidURL:  req.AndroidURL,
		IPhoneURL:   req.IPhoneURL,
	})
	if err != nil {
		renderError(w, r, err, false)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, toLinkResponse(link))
}

func (h *linkHandler) delete(w http.ResponseWriter, r *http.Request) {
	err := h.useCase.Delete(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err, false)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *linkHandler) qrCode(w http.ResponseWriter, r *http.Request) {
	qr, err := h.useCase.QRCode(r.Context(), sessionFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		renderError(w, r, err, false)
		return
	}

	w.Header().Set("Content-Type", qr.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(qr.Data)
}

func (h *linkHandler) focus(w http.ResponseWriter, r *http.Request) {
	n := h.useCase.Focus(r.Context(), sessionFrom(r.Context()))

	render.Status(r, http.StatusOK)
	render.JSON(w, r, focusResponse{Revalidated: n})
}
