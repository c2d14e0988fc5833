package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status is the stage a job application has reached.
type Status string

const (
	StatusApplied     Status = "applied"
	StatusInterviewed Status = "interviewed"
	StatusRejected    Status = "rejected"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusApplied, StatusInterviewed, StatusRejected}

// ParseStatus converts a string to a Status. The empty string maps to applied.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.TrimSpace(s)) {
	case "", StatusApplied:
		return StatusApplied, true
	case StatusInterviewed:
		return StatusInterviewed, true
	case StatusRejected:
		return StatusRejected, true
	default:
		return "", false
	}
}

// Label returns the capitalised status for display.
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

const dateLayout = "2006-01-02"

// Date is a calendar date without a time component, encoded as YYYY-MM-DD.
type Date struct {
	t time.Time
}

// NewDate returns the date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD. A full RFC 3339 timestamp is accepted and truncated.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Job is a single job application owned by one user.
type Job struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"userId"`
	Company     string `json:"company"`
	Role        string `json:"role"`
	Status      Status `json:"status"`
	DateApplied Date   `json:"dateApplied"`
	Details     string `json:"details"`
}

// JobFields are the editable fields of a Job. ID and UserID are never part of it.
type JobFields struct {
	Company     string `json:"company"`
	Role        string `json:"role"`
	Status      Status `json:"status"`
	DateApplied Date   `json:"dateApplied"`
	Details     string `json:"details"`
}

func (j Job) Fields() JobFields {
	return JobFields{
		Company:     j.Company,
		Role:        j.Role,
		Status:      j.Status,
		DateApplied: j.DateApplied,
		Details:     j.Details,
	}
}

// JobRepository abstracts job persistence in the record store.
type JobRepository interface {
	ListJobs(ctx context.Context, userID int64) ([]Job, error)
	GetJob(ctx context.Context, id int64) (*Job, error)
	CreateJob(ctx context.Context, userID int64, fields JobFields) (*Job, error)
	UpdateJob(ctx context.Context, id int64, fields JobFields) (*Job, error)
	DeleteJob(ctx context.Context, id int64) error
}
