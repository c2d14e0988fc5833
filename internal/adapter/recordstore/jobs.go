package recordstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pscheid92/jobtracker/internal/domain"
)

type createJobRequest struct {
	UserID int64 `json:"userId"`
	domain.JobFields
}

// ListJobs returns the jobs the store filed under userID, in store order.
func (c *Client) ListJobs(ctx context.Context, userID int64) ([]domain.Job, error) {
	q := url.Values{"userId": {strconv.FormatInt(userID, 10)}}
	var jobs []domain.Job
	if err := c.get(ctx, "list_jobs", "/jobs?"+q.Encode(), &jobs); err != nil {
		return nil, fmt.Errorf("list jobs for user %d: %w", userID, err)
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	return jobs, nil
}

func (c *Client) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	var job domain.Job
	if err := c.get(ctx, "get_job", jobPath(id), &job); err != nil {
		return nil, notFoundAsDomain(id, err)
	}
	return &job, nil
}

// CreateJob posts a new job owned by userID; the store assigns the id.
func (c *Client) CreateJob(ctx context.Context, userID int64, fields domain.JobFields) (*domain.Job, error) {
	var job domain.Job
	body := createJobRequest{UserID: userID, JobFields: fields}
	if err := c.do(ctx, "create_job", http.MethodPost, "/jobs", body, &job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

// UpdateJob patches only the editable fields of job id.
func (c *Client) UpdateJob(ctx context.Context, id int64, fields domain.JobFields) (*domain.Job, error) {
	var job domain.Job
	if err := c.do(ctx, "update_job", http.MethodPatch, jobPath(id), fields, &job); err != nil {
		return nil, notFoundAsDomain(id, err)
	}
	return &job, nil
}

func (c *Client) DeleteJob(ctx context.Context, id int64) error {
	if err := c.do(ctx, "delete_job", http.MethodDelete, jobPath(id), nil, nil); err != nil {
		return notFoundAsDomain(id, err)
	}
	return nil
}

func jobPath(id int64) string {
	return "/jobs/" + strconv.FormatInt(id, 10)
}

func notFoundAsDomain(id int64, err error) error {
	if IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("job %d: %w", id, domain.ErrJobNotFound)
	}
	return fmt.Errorf("job %d: %w", id, err)
}
