package tracker

import (
	"strings"

	"github.com/pscheid92/jobtracker/internal/domain"
)

// Form is a job form as submitted by the browser, before validation.
type Form struct {
	Company     string `form:"company" json:"company"`
	Role        string `form:"role" json:"role"`
	Status      string `form:"status" json:"status"`
	DateApplied string `form:"dateApplied" json:"dateApplied"`
	Details     string `form:"details" json:"details"`
}

// FormFromJob fills a form with the editable fields of job.
func FormFromJob(job domain.Job) Form {
	return Form{
		Company:     job.Company,
		Role:        job.Role,
		Status:      string(job.Status),
		DateApplied: job.DateApplied.String(),
		Details:     job.Details,
	}
}

// Validate checks f and converts it to JobFields. Company and role are trimmed
// and required, status defaults to applied, dateApplied must be a valid date.
func Validate(f Form) (domain.JobFields, domain.FieldErrors) {
	fe := domain.FieldErrors{}
	fields := domain.JobFields{
		Company: strings.TrimSpace(f.Company),
		Role:    strings.TrimSpace(f.Role),
		Details: f.Details,
	}

	if fields.Company == "" {
		fe["company"] = "Company is required"
	}
	if fields.Role == "" {
		fe["role"] = "Role is required"
	}

	status, ok := domain.ParseStatus(f.Status)
	if !ok {
		fe["status"] = "Status must be applied, interviewed or rejected"
	}
	fields.Status = status

	if strings.TrimSpace(f.DateApplied) == "" {
		fe["dateApplied"] = "Date applied is required"
	} else if d, err := domain.ParseDate(f.DateApplied); err != nil {
		fe["dateApplied"] = "Date applied must be a valid date"
	} else {
		fields.DateApplied = d
	}

	if len(fe) > 0 {
		return domain.JobFields{}, fe
	}
	return fields, nil
}
