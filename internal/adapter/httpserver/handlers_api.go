package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/jobtracker/internal/domain"
	apperrors "github.com/pscheid92/jobtracker/internal/platform/errors"
	"github.com/pscheid92/jobtracker/internal/tracker"
)

type queryResponse struct {
	Search string              `json:"search"`
	Filter domain.StatusFilter `json:"filter"`
	Sort   domain.SortKey      `json:"sort"`
}

type jobsResponse struct {
	Query queryResponse `json:"query"`
	Jobs  []domain.Job  `json:"jobs"`
	Count int           `json:"count"`
}

func (s *Server) registerAPIRoutes() {
	s.echo.GET("/api/jobs", s.handleAPIJobs, s.requireAuth)
}

// handleAPIJobs returns the derived list view for the query in the address.
func (s *Server) handleAPIJobs(c echo.Context) error {
	q := domain.ParseQuery(c.QueryParams())

	ctrl := s.controller(c)
	ctrl.SetQuery(q)
	if err := ctrl.Load(c.Request().Context()); err != nil {
		ctrl.TakeNotice()
		return apperrors.TransportError(tracker.MsgFetchFailed, err)
	}

	snap := ctrl.Snapshot()
	view := snap.View
	if view == nil {
		view = []domain.Job{}
	}
	resp := jobsResponse{
		Query: queryResponse{Search: snap.Query.Search, Filter: snap.Query.Filter, Sort: snap.Query.Sort},
		Jobs:  view,
		Count: len(view),
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write jobs response: %w", err)
	}
	return nil
}
