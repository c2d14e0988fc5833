package tracker

import (
	"slices"
	"strings"

	"github.com/pscheid92/jobtracker/internal/domain"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DeriveView filters records by search text and status, then sorts them
// stably by q.Sort. The input slice is never modified.
func DeriveView(records []domain.Job, q domain.Query) []domain.Job {
	q = q.Normalized()

	view := make([]domain.Job, 0, len(records))
	for _, job := range records {
		if matchesSearch(job, q.Search) && q.Filter.Matches(job.Status) {
			view = append(view, job)
		}
	}

	switch q.Sort {
	case domain.SortDateAsc:
		slices.SortStableFunc(view, func(a, b domain.Job) int {
			return compareDates(a.DateApplied, b.DateApplied)
		})
	case domain.SortCompanyAsc:
		// A Collator keeps per-call buffers and must not be shared across goroutines.
		collator := collate.New(language.English)
		slices.SortStableFunc(view, func(a, b domain.Job) int {
			return collator.CompareString(a.Company, b.Company)
		})
	default:
		slices.SortStableFunc(view, func(a, b domain.Job) int {
			return compareDates(b.DateApplied, a.DateApplied)
		})
	}
	return view
}

// matchesSearch is a case-insensitive substring match against company and role.
func matchesSearch(job domain.Job, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(job.Company), needle) ||
		strings.Contains(strings.ToLower(job.Role), needle)
}

func compareDates(a, b domain.Date) int {
	switch {
	case a.Equal(b):
		return 0
	case a.Before(b):
		return -1
	default:
		return 1
	}
}
