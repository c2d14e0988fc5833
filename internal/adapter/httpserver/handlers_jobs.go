package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/jobtracker/internal/domain"
	apperrors "github.com/pscheid92/jobtracker/internal/platform/errors"
	"github.com/pscheid92/jobtracker/internal/tracker"
)

const (
	msgEmptyList      = "No jobs found. Add your first job application!"
	msgDetailFailed   = "Failed to fetch job details"
	msgConfirmDelete  = "Are you sure you want to delete this job?"
	msgCreateInFlight = "Your job is still being saved, please wait."
)

func (s *Server) registerJobRoutes(csrfMiddleware echo.MiddlewareFunc) {
	s.echo.GET("/home", s.handleHome, s.requireAuth, csrfMiddleware)
	s.echo.GET("/home/new", s.handleNewJob, s.requireAuth, csrfMiddleware)
	s.echo.POST("/jobs", s.handleCreateJob, s.requireAuth, csrfMiddleware)
	s.echo.GET("/jobs/:id", s.handleJobDetail, s.requireAuth, csrfMiddleware)
	s.echo.GET("/jobs/:id/edit", s.handleEditJob, s.requireAuth, csrfMiddleware)
	s.echo.POST("/jobs/:id", s.handleUpdateJob, s.requireAuth, csrfMiddleware)
	s.echo.GET("/jobs/:id/delete", s.handleConfirmDelete, s.requireAuth, csrfMiddleware)
	s.echo.POST("/jobs/:id/delete", s.handleDeleteJob, s.requireAuth, csrfMiddleware)
}

func (s *Server) controller(c echo.Context) *tracker.Controller {
	sess := sessionFrom(c)
	return s.controllers.Controller(sess.ID, sess.Identity)
}

func homeURL(q domain.Query) string {
	if encoded := q.Encode(); encoded != "" {
		return "/home?" + encoded
	}
	return "/home"
}

func (s *Server) handleHome(c echo.Context) error {
	params := c.QueryParams()
	q := domain.ParseQuery(params)
	if q.Encode() != params.Encode() {
		return redirect(c, http.StatusFound, homeURL(q))
	}

	ctrl := s.controller(c)
	ctrl.SetQuery(q)
	_ = ctrl.Load(c.Request().Context())
	snap := ctrl.Snapshot()

	data := homePage{
		page:          s.basePage(c, "My Jobs"),
		Search:        snap.Query.Search,
		Filters:       filterOptions(snap.Query.Filter),
		Sorts:         sortOptions(snap.Query.Sort),
		Loading:       snap.Phase == tracker.PhaseLoading,
		PendingCreate: snap.PendingCreate,
	}
	if len(snap.View) == 0 {
		data.EmptyText = msgEmptyList
	}
	pending := make(map[int64]bool, len(snap.PendingDelete))
	for _, id := range snap.PendingDelete {
		pending[id] = true
	}
	for _, job := range snap.View {
		data.Jobs = append(data.Jobs, jobRow{Job: job, DeletePending: pending[job.ID]})
	}
	if n, ok := ctrl.TakeNotice(); ok {
		data.Notice = &n
	}
	return s.renderTemplate(c, http.StatusOK, "home.html", data)
}

func (s *Server) handleNewJob(c echo.Context) error {
	return s.renderForm(c, http.StatusOK, newJobPage(s.basePage(c, "Add Job"), s.controller(c).NewForm()))
}

func newJobPage(p page, f tracker.Form) formPage {
	return formPage{
		page:     p,
		Heading:  "Add Job",
		Action:   "/jobs",
		Cancel:   "/home",
		Form:     f,
		Statuses: statusOptions(f.Status),
	}
}

func editJobPage(p page, id int64, f tracker.Form) formPage {
	url := fmt.Sprintf("/jobs/%d", id)
	return formPage{
		page:     p,
		Heading:  "Edit Job",
		Action:   url,
		Cancel:   url,
		Form:     f,
		Statuses: statusOptions(f.Status),
	}
}

func (s *Server) renderForm(c echo.Context, status int, data formPage) error {
	return s.renderTemplate(c, status, "job_form.html", data)
}

func (s *Server) handleCreateJob(c echo.Context) error {
	var f tracker.Form
	if err := c.Bind(&f); err != nil {
		return err
	}

	ctrl := s.controller(c)
	if _, err := ctrl.Create(c.Request().Context(), f); err != nil {
		data := newJobPage(s.basePage(c, "Add Job"), f)
		return s.renderFormFailure(c, ctrl, data, err)
	}
	return redirect(c, http.StatusSeeOther, "/home")
}

func (s *Server) handleJobDetail(c echo.Context) error {
	id, ok := jobID(c)
	if !ok {
		return s.handleNotFound(c)
	}

	ctrl := s.controller(c)
	data := detailPage{page: s.basePage(c, "Job Details")}
	if n, ok := ctrl.TakeNotice(); ok {
		data.Notice = &n
	}

	job, err := ctrl.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return s.handleNotFound(c)
		}
		data.Notice = &tracker.Notice{Kind: tracker.NoticeError, Text: msgDetailFailed}
		return s.renderTemplate(c, authFailureStatus(err), "job_detail.html", data)
	}
	data.Job = job
	data.DeletePending = ctrl.IsDeletePending(id)
	return s.renderTemplate(c, http.StatusOK, "job_detail.html", data)
}

func (s *Server) handleEditJob(c echo.Context) error {
	id, ok := jobID(c)
	if !ok {
		return s.handleNotFound(c)
	}

	ctrl := s.controller(c)
	job, err := ctrl.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return s.handleNotFound(c)
		}
		data := detailPage{page: s.basePage(c, "Job Details")}
		data.Notice = &tracker.Notice{Kind: tracker.NoticeError, Text: msgDetailFailed}
		return s.renderTemplate(c, authFailureStatus(err), "job_detail.html", data)
	}

	f, hasDraft := ctrl.Draft(id)
	if !hasDraft {
		f = tracker.FormFromJob(*job)
	}
	return s.renderForm(c, http.StatusOK, editJobPage(s.basePage(c, "Edit Job"), id, f))
}

func (s *Server) handleUpdateJob(c echo.Context) error {
	id, ok := jobID(c)
	if !ok {
		return s.handleNotFound(c)
	}

	var f tracker.Form
	if err := c.Bind(&f); err != nil {
		return err
	}

	ctrl := s.controller(c)
	if _, err := ctrl.Update(c.Request().Context(), id, f); err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			ctrl.DiscardDraft(id)
			ctrl.TakeNotice()
			return s.handleNotFound(c)
		}
		data := editJobPage(s.basePage(c, "Edit Job"), id, f)
		return s.renderFormFailure(c, ctrl, data, err)
	}
	return redirect(c, http.StatusSeeOther, fmt.Sprintf("/jobs/%d", id))
}

// renderFormFailure re-renders a submitted form: inline messages for invalid
// fields, the controller's banner for a failed store call.
func (s *Server) renderFormFailure(c echo.Context, ctrl *tracker.Controller, data formPage, err error) error {
	var fe domain.FieldErrors
	switch {
	case errors.As(err, &fe):
		data.Errors = fe
		return s.renderForm(c, http.StatusBadRequest, data)
	case errors.Is(err, domain.ErrBusy):
		data.Notice = &tracker.Notice{Kind: tracker.NoticeError, Text: msgCreateInFlight}
		return s.renderForm(c, http.StatusConflict, data)
	default:
		if n, ok := ctrl.TakeNotice(); ok {
			data.Notice = &n
		}
		return s.renderForm(c, authFailureStatus(err), data)
	}
}

func (s *Server) handleConfirmDelete(c echo.Context) error {
	id, ok := jobID(c)
	if !ok {
		return s.handleNotFound(c)
	}

	ctrl := s.controller(c)
	job, err := ctrl.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			return s.handleNotFound(c)
		}
		data := detailPage{page: s.basePage(c, "Job Details")}
		data.Notice = &tracker.Notice{Kind: tracker.NoticeError, Text: msgDetailFailed}
		return s.renderTemplate(c, authFailureStatus(err), "job_detail.html", data)
	}

	return s.renderTemplate(c, http.StatusOK, "job_delete.html", confirmPage{
		page:    s.basePage(c, "Delete Job"),
		Job:     *job,
		Message: msgConfirmDelete,
	})
}

func (s *Server) handleDeleteJob(c echo.Context) error {
	id, ok := jobID(c)
	if !ok {
		return s.handleNotFound(c)
	}

	detail := fmt.Sprintf("/jobs/%d", id)
	confirmed := c.FormValue("confirm") == "yes"
	err := s.controller(c).Delete(c.Request().Context(), id, confirmed)
	switch {
	case err == nil:
		return redirect(c, http.StatusSeeOther, "/home")
	case errors.Is(err, domain.ErrConfirmationRequired):
		return redirect(c, http.StatusSeeOther, detail+"/delete")
	case errors.Is(err, domain.ErrJobNotFound):
		s.controller(c).TakeNotice()
		return s.handleNotFound(c)
	default:
		// The failure banner is shown on the detail page, where the record remains.
		return redirect(c, http.StatusSeeOther, detail)
	}
}

func (s *Server) handleNotFound(c echo.Context) error {
	if wantsJSON(c) {
		return apperrors.NotFoundError("Not found")
	}
	return s.renderTemplate(c, http.StatusNotFound, "not_found.html", s.basePage(c, "Not Found"))
}

func jobID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
