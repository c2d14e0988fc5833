package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/jobtracker/internal/domain"
	"github.com/pscheid92/jobtracker/internal/platform/config"
	"github.com/pscheid92/jobtracker/internal/session"
	"github.com/pscheid92/jobtracker/internal/tracker"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockUserRepo struct {
	findFn   func(ctx context.Context, username string) ([]domain.User, error)
	createFn func(ctx context.Context, username, password string) (*domain.User, error)
}

func (m *mockUserRepo) FindUsersByUsername(ctx context.Context, username string) ([]domain.User, error) {
	if m.findFn != nil {
		return m.findFn(ctx, username)
	}
	if username == "alice" {
		return []domain.User{{ID: 1, Username: "alice", Password: "secret"}}, nil
	}
	if username == "bob" {
		return []domain.User{{ID: 2, Username: "bob", Password: "hunter2"}}, nil
	}
	return nil, nil
}

func (m *mockUserRepo) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, password)
	}
	return &domain.User{ID: 42, Username: username, Password: password}, nil
}

// fakeJobRepo is an in-memory record store. The fail* fields inject errors.
type fakeJobRepo struct {
	mu     sync.Mutex
	jobs   []domain.Job
	nextID int64
	calls  map[string]int

	failList   error
	failGet    error
	failCreate error
	failUpdate error
	failDelete error
}

func newFakeJobRepo(jobs ...domain.Job) *fakeJobRepo {
	return &fakeJobRepo{jobs: jobs, nextID: 100, calls: map[string]int{}}
}

func (r *fakeJobRepo) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeJobRepo) find(id int64) (domain.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.ID == id {
			return j, true
		}
	}
	return domain.Job{}, false
}

func (r *fakeJobRepo) ListJobs(_ context.Context, userID int64) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["list"]++
	if r.failList != nil {
		return nil, r.failList
	}
	var out []domain.Job
	for _, j := range r.jobs {
		if j.UserID == userID {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *fakeJobRepo) GetJob(_ context.Context, id int64) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["get"]++
	if r.failGet != nil {
		return nil, r.failGet
	}
	for _, j := range r.jobs {
		if j.ID == id {
			return &j, nil
		}
	}
	return nil, domain.ErrJobNotFound
}

func (r *fakeJobRepo) CreateJob(_ context.Context, userID int64, fields domain.JobFields) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["create"]++
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	r.nextID++
	job := domain.Job{
		ID:          r.nextID,
		UserID:      userID,
		Company:     fields.Company,
		Role:        fields.Role,
		Status:      fields.Status,
		DateApplied: fields.DateApplied,
		Details:     fields.Details,
	}
	r.jobs = append(r.jobs, job)
	return &job, nil
}

func (r *fakeJobRepo) UpdateJob(_ context.Context, id int64, fields domain.JobFields) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["update"]++
	if r.failUpdate != nil {
		return nil, r.failUpdate
	}
	for i, j := range r.jobs {
		if j.ID == id {
			j.Company, j.Role, j.Status = fields.Company, fields.Role, fields.Status
			j.DateApplied, j.Details = fields.DateApplied, fields.Details
			r.jobs[i] = j
			return &j, nil
		}
	}
	return nil, domain.ErrJobNotFound
}

func (r *fakeJobRepo) DeleteJob(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls["delete"]++
	if r.failDelete != nil {
		return r.failDelete
	}
	for i, j := range r.jobs {
		if j.ID == id {
			r.jobs = append(r.jobs[:i], r.jobs[i+1:]...)
			return nil
		}
	}
	return domain.ErrJobNotFound
}

// --- Test helpers ---

var testNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	srv      *Server
	users    *mockUserRepo
	jobs     *fakeJobRepo
	sessions *session.Manager
	registry *tracker.Registry
	clock    *clockwork.FakeClock
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:        "test",
		Port:          "0",
		SessionSecret: "test-secret-key-32-bytes-long!!!",
		SessionMaxAge: time.Hour,
		AuthRateLimit: 1000,
		AuthRateBurst: 1000,
	}
}

func newTestServer(t *testing.T, jobs *fakeJobRepo, opts ...Option) *testEnv {
	t.Helper()

	if jobs == nil {
		jobs = newFakeJobRepo()
	}
	clock := clockwork.NewFakeClockAt(testNow)
	users := &mockUserRepo{}
	manager := session.NewManager(users, session.NewMemoryStorage(clock),
		session.WithTTL(time.Hour),
		session.WithPlaintextPasswords(true),
		session.WithBcryptCost(4),
	)
	registry := tracker.NewRegistry(jobs, clock, time.Hour, nil)
	manager.OnLogout(registry.Remove)

	srv, err := NewServer(testConfig(), manager, registry, nil, opts...)
	require.NoError(t, err)

	return &testEnv{
		srv:      srv,
		users:    users,
		jobs:     jobs,
		sessions: manager,
		registry: registry,
		clock:    clock,
	}
}

func withHealthChecks(checks ...HealthCheck) Option {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware(nil)(handler)(c)
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// mergeCookies returns jar updated with the cookies a response set.
func mergeCookies(jar []*http.Cookie, set []*http.Cookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(jar)+len(set))
	for _, c := range jar {
		if cookieNamed(set, c.Name) == nil {
			out = append(out, c)
		}
	}
	for _, c := range set {
		if c.MaxAge >= 0 {
			out = append(out, c)
		}
	}
	return out
}

// request sends a request through the full middleware stack. A non-nil form
// is posted with the CSRF token taken from the jar.
func (env *testEnv) request(t *testing.T, method, target string, form url.Values, jar []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if form != nil {
		if csrf := cookieNamed(jar, csrfTokenCookieName); csrf != nil && !form.Has(csrfTokenCookieName) {
			form.Set(csrfTokenCookieName, csrf.Value)
		}
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range jar {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	env.srv.ServeHTTP(rec, req)
	return rec
}

// csrfJar fetches a page that issues a CSRF cookie and returns it.
func (env *testEnv) csrfJar(t *testing.T, jar []*http.Cookie) []*http.Cookie {
	t.Helper()
	rec := env.request(t, http.MethodGet, "/login", nil, jar)
	csrf := cookieNamed(rec.Result().Cookies(), csrfTokenCookieName)
	if csrf == nil {
		csrf = cookieNamed(jar, csrfTokenCookieName)
	}
	require.NotNil(t, csrf, "CSRF cookie should be set")
	return mergeCookies(jar, []*http.Cookie{csrf})
}

// login signs in through the login form and returns the resulting cookie jar.
func (env *testEnv) login(t *testing.T, username, password string) []*http.Cookie {
	t.Helper()
	jar := env.csrfJar(t, nil)
	rec := env.request(t, http.MethodPost, "/login", url.Values{
		"username": {username},
		"password": {password},
	}, jar)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	return mergeCookies(jar, rec.Result().Cookies())
}

// sessionIDOf decodes the session id carried by the cookie jar.
func (env *testEnv) sessionIDOf(t *testing.T, jar []*http.Cookie) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range jar {
		req.AddCookie(c)
	}
	c := env.srv.echo.NewContext(req, httptest.NewRecorder())
	sid, ok := env.srv.sessionID(c)
	require.True(t, ok, "session cookie should carry an id")
	return sid
}

func aliceJobs() []domain.Job {
	return []domain.Job{
		{ID: 1, UserID: 1, Company: "Acme", Role: "Engineer", Status: domain.StatusApplied, DateApplied: domain.MustParseDate("2024-01-10")},
		{ID: 2, UserID: 1, Company: "Zeta", Role: "Designer", Status: domain.StatusInterviewed, DateApplied: domain.MustParseDate("2024-02-01"), Details: "Second round on Friday"},
		{ID: 3, UserID: 2, Company: "Bobcorp", Role: "Manager", Status: domain.StatusRejected, DateApplied: domain.MustParseDate("2024-01-20")},
	}
}
