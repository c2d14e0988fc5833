package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/jobtracker/internal/adapter/metrics"
	"github.com/pscheid92/jobtracker/internal/domain"
	"github.com/pscheid92/jobtracker/internal/platform/config"
	"github.com/pscheid92/jobtracker/internal/session"
	"github.com/pscheid92/jobtracker/internal/tracker"
	"github.com/pscheid92/jobtracker/web"
)

type sessionService interface {
	Login(ctx context.Context, sid, username, password string) (*session.Session, error)
	Register(ctx context.Context, sid, username, password string) (*session.Session, error)
	Restore(ctx context.Context, sid string) (*session.Session, error)
	Logout(ctx context.Context, sid string) error
}

type controllerSource interface {
	Controller(sid string, owner domain.Identity) *tracker.Controller
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	sessions    sessionService
	controllers controllerSource

	templates    *template.Template
	cookieStore  *sessions.CookieStore
	healthChecks []HealthCheck
	startTime    time.Time

	registry    *prometheus.Registry
	httpMetrics *metrics.HTTPMetrics
	appMetrics  *metrics.AppMetrics
}

type Option func(*Server)

// WithMetrics exposes reg on /metrics and records HTTP and error metrics.
func WithMetrics(reg *prometheus.Registry, httpMetrics *metrics.HTTPMetrics, appMetrics *metrics.AppMetrics) Option {
	return func(s *Server) {
		s.registry = reg
		s.httpMetrics = httpMetrics
		s.appMetrics = appMetrics
	}
}

func NewServer(cfg *config.Config, sessionSvc sessionService, controllers controllerSource, healthChecks []HealthCheck, opts ...Option) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		sessions:     sessionSvc,
		controllers:  controllers,
		templates:    templates,
		cookieStore:  newCookieStore(cfg),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv, nil
}

func parseTemplates() (*template.Template, error) {
	templates, err := template.New("").Funcs(templateFuncs).ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return templates, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets the server be mounted or driven by httptest directly.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) renderTemplate(c echo.Context, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "template", name, "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(status, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}

func redirect(c echo.Context, status int, to string) error {
	if err := c.Redirect(status, to); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}
