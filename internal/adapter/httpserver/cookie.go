package httpserver

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/jobtracker/internal/platform/config"
	apperrors "github.com/pscheid92/jobtracker/internal/platform/errors"
)

// The cookie carries only the browser session id; the identity lives in
// session storage.
const (
	cookieName   = "jobtracker-session"
	cookieKeySID = "sid"
)

func newCookieStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// sessionID returns the browser session id from the cookie, if any.
func (s *Server) sessionID(c echo.Context) (string, bool) {
	cookie, err := s.cookieStore.Get(c.Request(), cookieName)
	if err != nil {
		return "", false
	}
	sid, ok := cookie.Values[cookieKeySID].(string)
	return sid, ok && sid != ""
}

// bindSessionID replaces the cookie with one carrying sid. A fresh id is
// issued on every login so a pre-login id is never promoted.
func (s *Server) bindSessionID(c echo.Context, sid string) error {
	cookie, err := s.cookieStore.New(c.Request(), cookieName)
	if err != nil && cookie == nil {
		return apperrors.InternalError("failed to create session cookie", err)
	}
	cookie.Values[cookieKeySID] = sid
	if err := cookie.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session cookie", err)
	}
	return nil
}

func (s *Server) clearSessionID(c echo.Context) error {
	cookie, err := s.cookieStore.New(c.Request(), cookieName)
	if err != nil && cookie == nil {
		return apperrors.InternalError("failed to create session cookie", err)
	}
	cookie.Options.MaxAge = -1
	if err := cookie.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to clear session cookie", err)
	}
	return nil
}
