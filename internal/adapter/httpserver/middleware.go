package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/jobtracker/internal/adapter/metrics"
	"github.com/pscheid92/jobtracker/internal/domain"
	"github.com/pscheid92/jobtracker/internal/platform/correlation"
	apperrors "github.com/pscheid92/jobtracker/internal/platform/errors"
	"github.com/pscheid92/jobtracker/internal/session"
)

// Context keys set by requireAuth.
const (
	ctxKeySession = "session"
	ctxKeyUserID  = "userID"
)

// correlationMiddleware tags the request context with a correlation id, reusing
// a well-formed id from the X-Correlation-ID header, and echoes it back.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := correlation.Ensure(c.Request().Context(), c.Request().Header.Get(correlation.Header))
		c.SetRequest(c.Request().WithContext(ctx))
		if id, ok := correlation.ID(ctx); ok {
			c.Response().Header().Set(correlation.Header, id)
		}
		return next(c)
	}
}

// ErrorHandlingMiddleware turns handler errors into responses: JSON for the
// API and probes, plain text for everything else. Page handlers render their
// expected failures themselves. appMetrics may be nil.
func ErrorHandlingMiddleware(appMetrics *metrics.AppMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := apperrors.AsStructuredError(mapDomainError(err))
			logError(c, structuredErr)
			if appMetrics != nil {
				appMetrics.ErrorsTotal.WithLabelValues(string(structuredErr.Type)).Inc()
			}

			if wantsJSON(c) {
				if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
					return fmt.Errorf("failed to write error response: %w", err)
				}
				return nil
			}
			if err := c.String(structuredErr.HTTPStatus(), structuredErr.Message); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// mapDomainError gives the domain sentinels their error type so they map to
// the right status code.
func mapDomainError(err error) error {
	var structuredErr *apperrors.Error
	if errors.As(err, &structuredErr) {
		return err
	}

	var fe domain.FieldErrors
	switch {
	case errors.As(err, &fe):
		e := apperrors.ValidationError("invalid job")
		for field, msg := range fe {
			e.WithField(field, msg)
		}
		return e
	case errors.Is(err, domain.ErrJobNotFound):
		return apperrors.NotFoundError("Job not found")
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrNoSession):
		return apperrors.AuthError(err.Error())
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrConfirmationRequired),
		errors.Is(err, domain.ErrUsernameTaken):
		return apperrors.ValidationError(err.Error())
	default:
		return err
	}
}

func wantsJSON(c echo.Context) bool {
	path := c.Request().URL.Path
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/health/") ||
		strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(ctxKeyUserID); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeAuth:
		slog.InfoContext(ctx, "Authentication failed", attrs...)
	case apperrors.TypeTransport:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Record store error", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// requireAuth restores the session bound to the cookie. Pages redirect to the
// login form without one; the API answers 401.
func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := s.currentSession(c)
		if err != nil {
			if !errors.Is(err, domain.ErrNoSession) {
				slog.ErrorContext(c.Request().Context(), "Failed to restore session", "error", err)
			}
			if wantsJSON(c) {
				return apperrors.AuthError("authentication required")
			}
			return redirect(c, http.StatusFound, "/login")
		}

		c.Set(ctxKeySession, sess)
		c.Set(ctxKeyUserID, sess.UserID())
		return next(c)
	}
}

func (s *Server) currentSession(c echo.Context) (*session.Session, error) {
	sid, ok := s.sessionID(c)
	if !ok {
		return nil, domain.ErrNoSession
	}
	sess, err := s.sessions.Restore(c.Request().Context(), sid)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return sess, nil
}

func sessionFrom(c echo.Context) *session.Session {
	sess, _ := c.Get(ctxKeySession).(*session.Session)
	return sess
}
