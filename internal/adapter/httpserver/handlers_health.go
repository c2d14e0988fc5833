package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/jobtracker/internal/platform/version"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second
)

// HealthCheck is a named dependency check. ReadyOnly checks describe runtime
// state such as an open circuit breaker and are skipped at startup.
type HealthCheck struct {
	Name      string
	Check     func(ctx context.Context) error
	ReadyOnly bool
}

type healthReport struct {
	Status      string            `json:"status"`
	FailedCheck string            `json:"failed_check,omitempty"`
	Error       string            `json:"error,omitempty"`
	Checks      map[string]string `json:"checks"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupCheckTimeout)
	defer cancel()

	return s.writeHealth(c, s.evaluateHealth(ctx, false))
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessCheckTimeout)
	defer cancel()

	return s.writeHealth(c, s.evaluateHealth(ctx, true))
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

// evaluateHealth runs every applicable check so the report names each
// dependency; the first failure decides failed_check.
func (s *Server) evaluateHealth(ctx context.Context, ready bool) healthReport {
	report := healthReport{Status: "ready", Checks: make(map[string]string, len(s.healthChecks))}
	for _, hc := range s.healthChecks {
		if hc.ReadyOnly && !ready {
			continue
		}
		err := hc.Check(ctx)
		if err == nil {
			report.Checks[hc.Name] = "ok"
			continue
		}
		report.Checks[hc.Name] = err.Error()
		if report.FailedCheck == "" {
			report.Status = "unhealthy"
			report.FailedCheck = hc.Name
			report.Error = err.Error()
		}
	}
	return report
}

func (s *Server) writeHealth(c echo.Context, report healthReport) error {
	code := http.StatusOK
	if report.FailedCheck != "" {
		code = http.StatusServiceUnavailable
		slog.WarnContext(c.Request().Context(), "Health check failed",
			"path", c.Path(), "check", report.FailedCheck, "error", report.Error)
	}
	if err := c.JSON(code, report); err != nil {
		return fmt.Errorf("failed to write health response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
