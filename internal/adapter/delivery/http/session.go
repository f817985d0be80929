package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"

	"github.com/vadimbarashkov/shorty/internal/session"
)

type sessionRegistry interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	Close(id string) bool
}

type sessionCtxKey struct{}

type sessionMiddleware struct {
	sessions sessionRegistry
	cookie   CookieOptions
}

func newSessionMiddleware(sessions sessionRegistry, cookie CookieOptions) *sessionMiddleware {
	return &sessionMiddleware{
		sessions: sessions,
		cookie:   cookie,
	}
}

// handle attaches the session of the device cookie to the request context,
// issuing a new device id when the cookie is missing or malformed.
func (m *sessionMiddleware) handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(m.cookie.Name); err == nil && session.ValidID(c.Value) {
			id = c.Value
		}

		if id == "" {
			newID, err := session.NewID()
			if err != nil {
				httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, serverErrorResponse)
				return
			}
			id = newID
		}

		s, err := m.sessions.Get(r.Context(), id)
		if err != nil {
			httplog.LogEntrySetField(r.Context(), "err", slog.AnyValue(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, serverErrorResponse)
			return
		}

		http.SetCookie(w, m.newCookie(id, int(m.cookie.MaxAge.Seconds())))

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *sessionMiddleware) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookie.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// closeSession tears the session of the device cookie down and expires the
// cookie. It runs outside of handle so no session is opened for it.
func (m *sessionMiddleware) closeSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(m.cookie.Name); err == nil && session.ValidID(c.Value) {
		m.sessions.Close(c.Value)
	}

	http.SetCookie(w, m.newCookie("", -1))

	w.WriteHeader(http.StatusNoContent)
}

func sessionFrom(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return s
}
