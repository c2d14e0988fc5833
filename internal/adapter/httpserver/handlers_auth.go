package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/jobtracker/internal/domain"
	apperrors "github.com/pscheid92/jobtracker/internal/platform/errors"
	"github.com/pscheid92/jobtracker/internal/session"
)

const (
	msgInvalidCredentials = "Invalid username or password"
	msgUsernameTaken      = "Username already exists"
	msgAuthUnavailable    = "Something went wrong. Please try again."
)

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/login", s.handleLoginPage, csrfMiddleware)
	s.echo.POST("/login", s.handleLogin, rateLimiter, csrfMiddleware)
	s.echo.GET("/register", s.handleRegisterPage, csrfMiddleware)
	s.echo.POST("/register", s.handleRegister, rateLimiter, csrfMiddleware)
	s.echo.POST("/logout", s.handleLogout, s.requireAuth, csrfMiddleware)
}

func (s *Server) handleLanding(c echo.Context) error {
	if _, err := s.currentSession(c); err == nil {
		return redirect(c, http.StatusFound, "/home")
	}
	return s.renderTemplate(c, http.StatusOK, "landing.html", s.basePage(c, "Job Tracker"))
}

func (s *Server) handleLoginPage(c echo.Context) error {
	if _, err := s.currentSession(c); err == nil {
		return redirect(c, http.StatusFound, "/home")
	}
	return s.renderTemplate(c, http.StatusOK, "login.html", authPage{page: s.basePage(c, "Log in")})
}

func (s *Server) handleLogin(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	previous, hadPrevious := s.sessionID(c)
	sid := session.NewID()
	sess, err := s.sessions.Login(c.Request().Context(), sid, username, password)
	if err != nil {
		data := authPage{page: s.basePage(c, "Log in"), Username: username}
		status := http.StatusUnauthorized
		data.Error = msgInvalidCredentials
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			status = authFailureStatus(err)
			data.Error = msgAuthUnavailable
			slog.ErrorContext(c.Request().Context(), "Login failed", "error", err)
		}
		return s.renderTemplate(c, status, "login.html", data)
	}

	return s.completeLogin(c, sess, previous, hadPrevious)
}

func (s *Server) handleRegisterPage(c echo.Context) error {
	if _, err := s.currentSession(c); err == nil {
		return redirect(c, http.StatusFound, "/home")
	}
	return s.renderTemplate(c, http.StatusOK, "register.html", authPage{page: s.basePage(c, "Register")})
}

func (s *Server) handleRegister(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	previous, hadPrevious := s.sessionID(c)
	sid := session.NewID()
	sess, err := s.sessions.Register(c.Request().Context(), sid, username, password)
	if err != nil {
		data := authPage{page: s.basePage(c, "Register"), Username: username}
		var fe domain.FieldErrors
		var status int
		switch {
		case errors.As(err, &fe):
			status = http.StatusBadRequest
			data.Fields = fe
		case errors.Is(err, domain.ErrUsernameTaken):
			status = http.StatusConflict
			data.Error = msgUsernameTaken
		default:
			status = authFailureStatus(err)
			data.Error = msgAuthUnavailable
			slog.ErrorContext(c.Request().Context(), "Registration failed", "error", err)
		}
		return s.renderTemplate(c, status, "register.html", data)
	}

	return s.completeLogin(c, sess, previous, hadPrevious)
}

// completeLogin binds the new session id to the cookie and drops whatever
// session the browser carried before.
func (s *Server) completeLogin(c echo.Context, sess *session.Session, previous string, hadPrevious bool) error {
	if err := s.bindSessionID(c, sess.ID); err != nil {
		return err
	}
	if hadPrevious && previous != sess.ID {
		if err := s.sessions.Logout(c.Request().Context(), previous); err != nil {
			slog.WarnContext(c.Request().Context(), "Failed to drop previous session", "error", err)
		}
	}
	return redirect(c, http.StatusSeeOther, "/home")
}

func (s *Server) handleLogout(c echo.Context) error {
	sess := sessionFrom(c)
	if err := s.sessions.Logout(c.Request().Context(), sess.ID); err != nil {
		slog.ErrorContext(c.Request().Context(), "Failed to clear session", "user_id", sess.UserID(), "error", err)
	}
	if err := s.clearSessionID(c); err != nil {
		return err
	}
	slog.InfoContext(c.Request().Context(), "User logged out", "user_id", sess.UserID())
	return redirect(c, http.StatusSeeOther, "/login")
}

// authFailureStatus is the status for a login or registration that failed
// for a reason other than the credentials themselves.
func authFailureStatus(err error) int {
	return apperrors.AsStructuredError(mapDomainError(err)).HTTPStatus()
}
