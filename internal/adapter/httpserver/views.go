package httpserver

import (
	"html/template"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/jobtracker/internal/domain"
	"github.com/pscheid92/jobtracker/internal/tracker"
)

var templateFuncs = template.FuncMap{
	"statusLabel": func(s domain.Status) string { return s.Label() },
	"jobURL":      func(id int64) string { return "/jobs/" + strconv.FormatInt(id, 10) },
}

// page is the data every template receives.
type page struct {
	Title  string
	User   *domain.Identity
	CSRF   string
	Notice *tracker.Notice
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type authPage struct {
	page
	Username string
	Error    string
	Fields   domain.FieldErrors
}

type homePage struct {
	page
	Search        string
	Filters       []option
	Sorts         []option
	Jobs          []jobRow
	Loading       bool
	EmptyText     string
	PendingCreate bool
}

type jobRow struct {
	domain.Job
	DeletePending bool
}

type formPage struct {
	page
	Heading  string
	Action   string
	Cancel   string
	Form     tracker.Form
	Errors   domain.FieldErrors
	Statuses []option
}

type detailPage struct {
	page
	Job           *domain.Job
	DeletePending bool
}

type confirmPage struct {
	page
	Job     domain.Job
	Message string
}

func (s *Server) basePage(c echo.Context, title string) page {
	p := page{Title: title}
	if token, ok := c.Get("csrf").(string); ok {
		p.CSRF = token
	}
	if sess := sessionFrom(c); sess != nil {
		identity := sess.Identity
		p.User = &identity
	}
	return p
}

func filterOptions(selected domain.StatusFilter) []option {
	opts := []option{{Value: string(domain.FilterAll), Label: "All"}}
	for _, st := range domain.Statuses {
		opts = append(opts, option{Value: string(st), Label: st.Label()})
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == string(selected)
	}
	return opts
}

func sortOptions(selected domain.SortKey) []option {
	opts := []option{
		{Value: string(domain.SortDateDesc), Label: "Newest first"},
		{Value: string(domain.SortDateAsc), Label: "Oldest first"},
		{Value: string(domain.SortCompanyAsc), Label: "Company (A-Z)"},
	}
	for i := range opts {
		opts[i].Selected = opts[i].Value == string(selected)
	}
	return opts
}

func statusOptions(selected string) []option {
	status, ok := domain.ParseStatus(selected)
	if !ok {
		status = domain.StatusApplied
	}
	opts := make([]option, 0, len(domain.Statuses))
	for _, st := range domain.Statuses {
		opts = append(opts, option{Value: string(st), Label: st.Label(), Selected: st == status})
	}
	return opts
}
