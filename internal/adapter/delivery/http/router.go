// Package http provides the HTTP delivery layer of the service.
// It exposes the shorten, links and prefs views as JSON, the link actions
// under /api/v1, API docs and Prometheus metrics.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

const defaultCookieName = "shorty_device"

// CookieOptions configures the device cookie that identifies a session.
type CookieOptions struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes.
// Cross-origin requests carrying the device cookie are accepted only from
// allowedOrigins. With none configured the router serves same-origin callers only.
func NewRouter(logger *httplog.Logger, sessions sessionRegistry, useCase linkUseCase, cookie CookieOptions, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"POST", "GET", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Accept", clipboardHeader},
			AllowCredentials: true,
			MaxAge:           84600,
		}))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./docs/swagger.yml")
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if cookie.Name == "" {
		cookie.Name = defaultCookieName
	}

	validate := validator.New()
	h := newLinkHandler(useCase, validate)
	sm := newSessionMiddleware(sessions, cookie)

	r.Group(func(r chi.Router) {
		r.Use(sm.handle)

		r.Get("/", h.home)
		r.Get("/links", h.links)
		r.Post("/links/more", h.loadMore)
		r.Get("/prefs", h.prefs)
		r.Put("/prefs", h.updatePrefs)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Group(func(r chi.Router) {
			r.Use(sm.handle)

			r.Post("/links", h.shorten)

			r.Route("/links/{id}", func(r chi.Router) {
				r.Post("/", h.save)
				r.Patch("/", h.save)
				r.Delete("/", h.delete)
				r.Get("/qr", h.qrCode)
			})

			r.Post("/focus", h.focus)
		})

		r.Delete("/session", sm.closeSession)
	})

	return r
}
