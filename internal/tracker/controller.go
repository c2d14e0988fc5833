// Package tracker holds the per-session list controller: the owner's job
// records, the query that derives the visible list, and the create, update and
// delete orchestration around the record store.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/jobtracker/internal/adapter/metrics"
	"github.com/pscheid92/jobtracker/internal/domain"
	"github.com/pscheid92/jobtracker/internal/platform/logging"
)

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

type NoticeKind string

const (
	NoticeError   NoticeKind = "error"
	NoticeSuccess NoticeKind = "success"
)

// Banner texts shown after loads and mutations.
const (
	MsgFetchFailed  = "Failed to fetch jobs"
	MsgCreated      = "Job added successfully!"
	MsgCreateFailed = "Failed to add job"
	MsgUpdated      = "Job updated successfully!"
	MsgUpdateFailed = "Failed to update job"
	MsgDeleted      = "Job deleted successfully!"
	MsgDeleteFailed = "Failed to delete job"
)

type Notice struct {
	Kind NoticeKind `json:"kind"`
	Text string     `json:"text"`
}

// Snapshot is a consistent copy of the controller state for rendering.
type Snapshot struct {
	Owner         domain.Identity
	Records       []domain.Job
	View          []domain.Job
	Query         domain.Query
	Phase         Phase
	Notice        *Notice
	PendingCreate bool
	PendingDelete []int64
}

// Controller owns one user's job records. Its mutex is never held across a
// record store call: concurrent loads both run and the last to finish wins.
type Controller struct {
	repo    domain.JobRepository
	owner   domain.Identity
	clock   clockwork.Clock
	metrics *metrics.AppMetrics
	logger  *slog.Logger

	mu            sync.Mutex
	records       []domain.Job
	query         domain.Query
	phase         Phase
	notice        *Notice
	pendingCreate bool
	pendingDelete map[int64]struct{}
	drafts        map[int64]Form
	lastUsed      time.Time
	inFlight      int
}

type Option func(*Controller)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithMetrics(m *metrics.AppMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates a controller for owner. It starts in the loading
// phase with no records until the first Load.
func NewController(repo domain.JobRepository, owner domain.Identity, opts ...Option) *Controller {
	c := &Controller{
		repo:          repo,
		owner:         owner,
		clock:         clockwork.NewRealClock(),
		query:         domain.DefaultQuery(),
		phase:         PhaseLoading,
		pendingDelete: make(map[int64]struct{}),
		drafts:        make(map[int64]Form),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithOwner(owner.ID)
	c.lastUsed = c.clock.Now()
	return c
}

func (c *Controller) Owner() domain.Identity { return c.owner }

// Load replaces the record set with the owner's records from the store.
// Records owned by anyone else are dropped. A failed load keeps the previous
// records and sets the fetch error notice.
func (c *Controller) Load(ctx context.Context) error {
	c.begin()
	defer c.end()

	c.mu.Lock()
	c.phase = PhaseLoading
	c.mu.Unlock()

	jobs, err := c.repo.ListJobs(ctx, c.owner.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseReady
	if err != nil {
		c.setNotice(NoticeError, MsgFetchFailed)
		c.logger.ErrorContext(ctx, "Failed to load jobs", "error", err)
		return fmt.Errorf("load jobs: %w", err)
	}

	owned := make([]domain.Job, 0, len(jobs))
	for _, job := range jobs {
		if job.UserID == c.owner.ID {
			owned = append(owned, job)
		}
	}
	if dropped := len(jobs) - len(owned); dropped > 0 {
		c.logger.WarnContext(ctx, "Record store returned foreign jobs", "dropped", dropped)
	}
	c.records = owned
	return nil
}

// View derives the visible list from the current records and query.
func (c *Controller) View() []domain.Job {
	c.mu.Lock()
	records, q := c.records, c.query
	c.mu.Unlock()
	return DeriveView(records, q)
}

func (c *Controller) SetQuery(q domain.Query) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = q.Normalized()
}

func (c *Controller) Query() domain.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Notice returns the current banner, if any.
func (c *Controller) Notice() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return Notice{}, false
	}
	return *c.notice, true
}

// TakeNotice returns the current banner and clears it, so it is shown once.
func (c *Controller) TakeNotice() (Notice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return Notice{}, false
	}
	n := *c.notice
	c.notice = nil
	return n, true
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Owner:         c.owner,
		Records:       slices.Clone(c.records),
		View:          DeriveView(c.records, c.query),
		Query:         c.query,
		Phase:         c.phase,
		PendingCreate: c.pendingCreate,
	}
	if c.notice != nil {
		n := *c.notice
		s.Notice = &n
	}
	for id := range c.pendingDelete {
		s.PendingDelete = append(s.PendingDelete, id)
	}
	slices.Sort(s.PendingDelete)
	return s
}

// NewForm returns a blank form with dateApplied set to today.
func (c *Controller) NewForm() Form {
	return Form{
		Status:      string(domain.StatusApplied),
		DateApplied: domain.DateOf(c.clock.Now()).String(),
	}
}

// Create validates f and posts it as a new job owned by the controller's user.
// Validation failures return domain.FieldErrors without calling the store.
// Only one create may be in flight; a second returns domain.ErrBusy.
func (c *Controller) Create(ctx context.Context, f Form) (*domain.Job, error) {
	c.begin()
	defer c.end()

	fields, fe := Validate(f)
	if fe != nil {
		return nil, fe
	}

	c.mu.Lock()
	if c.pendingCreate {
		c.mu.Unlock()
		return nil, domain.ErrBusy
	}
	c.pendingCreate = true
	c.mu.Unlock()

	job, err := c.repo.CreateJob(ctx, c.owner.ID, fields)

	c.mu.Lock()
	c.pendingCreate = false
	if err != nil {
		c.setNotice(NoticeError, MsgCreateFailed)
		c.mu.Unlock()
		c.count("create", err)
		c.logger.ErrorContext(ctx, "Failed to create job", "error", err)
		return nil, fmt.Errorf("create job: %w", err)
	}
	c.setNotice(NoticeSuccess, MsgCreated)
	c.mu.Unlock()

	c.count("create", nil)
	c.logger.InfoContext(ctx, "Job created", "job_id", job.ID)
	_ = c.Load(ctx)
	return job, nil
}

// Update validates f and patches the editable fields of job id. On a store
// failure the submitted form is kept as a draft for the next edit.
func (c *Controller) Update(ctx context.Context, id int64, f Form) (*domain.Job, error) {
	c.begin()
	defer c.end()

	fields, fe := Validate(f)
	if fe != nil {
		return nil, fe
	}

	var job *domain.Job
	err := c.checkOwned(ctx, id)
	if err == nil {
		job, err = c.repo.UpdateJob(ctx, id, fields)
	}

	c.mu.Lock()
	if err != nil {
		c.drafts[id] = f
		c.setNotice(NoticeError, MsgUpdateFailed)
		c.mu.Unlock()
		c.count("update", err)
		c.logger.ErrorContext(ctx, "Failed to update job", "job_id", id, "error", err)
		return nil, fmt.Errorf("update job %d: %w", id, err)
	}
	delete(c.drafts, id)
	c.setNotice(NoticeSuccess, MsgUpdated)
	c.mu.Unlock()

	c.count("update", nil)
	c.logger.InfoContext(ctx, "Job updated", "job_id", id)
	_ = c.Load(ctx)
	return job, nil
}

// Draft returns the form kept after a failed update of job id.
func (c *Controller) Draft(id int64) (Form, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.drafts[id]
	return f, ok
}

func (c *Controller) DiscardDraft(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.drafts, id)
}

// Delete removes job id. Nothing is sent unless confirmed is true; a second
// delete of the same id while one is in flight returns domain.ErrBusy.
func (c *Controller) Delete(ctx context.Context, id int64, confirmed bool) error {
	c.begin()
	defer c.end()

	if !confirmed {
		return domain.ErrConfirmationRequired
	}

	c.mu.Lock()
	if _, busy := c.pendingDelete[id]; busy {
		c.mu.Unlock()
		return domain.ErrBusy
	}
	c.pendingDelete[id] = struct{}{}
	c.mu.Unlock()

	err := c.checkOwned(ctx, id)
	if err == nil {
		err = c.repo.DeleteJob(ctx, id)
	}

	c.mu.Lock()
	delete(c.pendingDelete, id)
	if err != nil {
		c.setNotice(NoticeError, MsgDeleteFailed)
		c.mu.Unlock()
		c.count("delete", err)
		c.logger.ErrorContext(ctx, "Failed to delete job", "job_id", id, "error", err)
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	delete(c.drafts, id)
	c.setNotice(NoticeSuccess, MsgDeleted)
	c.mu.Unlock()

	c.count("delete", nil)
	c.logger.InfoContext(ctx, "Job deleted", "job_id", id)
	_ = c.Load(ctx)
	return nil
}

// IsDeletePending reports whether a delete of job id is in flight.
func (c *Controller) IsDeletePending(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pendingDelete[id]
	return ok
}

// Get fetches job id from the store. Jobs owned by another user are reported
// as domain.ErrJobNotFound.
func (c *Controller) Get(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := c.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.UserID != c.owner.ID {
		c.logger.WarnContext(ctx, "Refused access to foreign job", "job_id", id)
		return nil, fmt.Errorf("job %d: %w", id, domain.ErrJobNotFound)
	}
	return job, nil
}

// checkOwned makes sure id belongs to the owner before it is mutated. The
// loaded record set answers without a request when it knows the id.
func (c *Controller) checkOwned(ctx context.Context, id int64) error {
	c.mu.Lock()
	known := slices.ContainsFunc(c.records, func(j domain.Job) bool { return j.ID == id })
	c.mu.Unlock()
	if known {
		return nil
	}
	_, err := c.Get(ctx, id)
	return err
}

// setNotice replaces the banner. Callers hold c.mu.
func (c *Controller) setNotice(kind NoticeKind, text string) {
	c.notice = &Notice{Kind: kind, Text: text}
}

func (c *Controller) count(operation string, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	c.metrics.MutationsTotal.WithLabelValues(operation, outcome).Inc()
}

func (c *Controller) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUsed = c.clock.Now()
}

// begin and end bracket a store call. A controller with calls in flight is
// never idle.
func (c *Controller) begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
	c.lastUsed = c.clock.Now()
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--
	c.lastUsed = c.clock.Now()
}

// idleBefore reports whether the controller has no calls in flight and was
// last used before cutoff.
func (c *Controller) idleBefore(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight == 0 && c.lastUsed.Before(cutoff)
}
