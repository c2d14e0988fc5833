package tracker

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/pscheid92/jobtracker/internal/domain"
)

var errStoreDown = errors.New("record store unavailable")

// fakeRepo is an in-memory record store. The fail* fields inject errors and
// the before* hooks run before the call takes effect.
type fakeRepo struct {
	mu     sync.Mutex
	jobs   []domain.Job
	nextID int64
	calls  map[string]int

	failList   error
	failGet    error
	failCreate error
	failUpdate error
	failDelete error

	beforeCreate func()
	beforeDelete func(id int64)
}

func newFakeRepo(jobs ...domain.Job) *fakeRepo {
	r := &fakeRepo{nextID: 100, calls: map[string]int{}}
	r.jobs = append(r.jobs, jobs...)
	return r
}

func (r *fakeRepo) record(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
}

func (r *fakeRepo) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *fakeRepo) ListJobs(_ context.Context, userID int64) ([]domain.Job, error) {
	r.record("list")
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *fakeRepo) GetJob(_ context.Context, id int64) (*domain.Job, error) {
	r.record("get")
	r.mu.Lock()
	defer r.mu.Unlock()
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

func (r *fakeRepo) CreateJob(_ context.Context, userID int64, fields domain.JobFields) (*domain.Job, error) {
	r.record("create")
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	r.nextID++
	j := domain.Job{
		ID:          r.nextID,
		UserID:      userID,
		Company:     fields.Company,
		Role:        fields.Role,
		Status:      fields.Status,
		DateApplied: fields.DateApplied,
		Details:     fields.Details,
	}
	r.jobs = append(r.jobs, j)
	return &j, nil
}

func (r *fakeRepo) UpdateJob(_ context.Context, id int64, fields domain.JobFields) (*domain.Job, error) {
	r.record("update")
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate != nil {
		return nil, r.failUpdate
	}
	for i := range r.jobs {
		if r.jobs[i].ID == id {
			r.jobs[i].Company = fields.Company
			r.jobs[i].Role = fields.Role
			r.jobs[i].Status = fields.Status
			r.jobs[i].DateApplied = fields.DateApplied
			r.jobs[i].Details = fields.Details
			j := r.jobs[i]
			return &j, nil
		}
	}
	return nil, domain.ErrJobNotFound
}

func (r *fakeRepo) DeleteJob(_ context.Context, id int64) error {
	r.record("delete")
	if r.beforeDelete != nil {
		r.beforeDelete(id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	idx := slices.IndexFunc(r.jobs, func(j domain.Job) bool { return j.ID == id })
	if idx < 0 {
		return domain.ErrJobNotFound
	}
	r.jobs = slices.Delete(r.jobs, idx, idx+1)
	return nil
}
