package domain

import (
	"net/url"
	"strings"
)

// StatusFilter restricts the list view to one status, or shows all.
type StatusFilter string

const (
	FilterAll         StatusFilter = "all"
	FilterApplied     StatusFilter = StatusFilter(StatusApplied)
	FilterInterviewed StatusFilter = StatusFilter(StatusInterviewed)
	FilterRejected    StatusFilter = StatusFilter(StatusRejected)
)

// ParseStatusFilter converts a string to a StatusFilter, defaulting to all.
func ParseStatusFilter(s string) StatusFilter {
	switch StatusFilter(s) {
	case FilterApplied, FilterInterviewed, FilterRejected:
		return StatusFilter(s)
	default:
		return FilterAll
	}
}

// Matches reports whether a job with the given status passes the filter.
func (f StatusFilter) Matches(s Status) bool {
	return f == FilterAll || f == "" || Status(f) == s
}

// SortKey orders the list view.
type SortKey string

const (
	SortDateDesc   SortKey = "date-desc"
	SortDateAsc    SortKey = "date-asc"
	SortCompanyAsc SortKey = "company"
)

// ParseSortKey converts a string to a SortKey, defaulting to date-desc.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortDateAsc, SortCompanyAsc:
		return SortKey(s)
	default:
		return SortDateDesc
	}
}

// Query parameter names in the list view address.
const (
	ParamSearch = "search"
	ParamFilter = "filter"
	ParamSort   = "sort"
)

// Query controls the derived list view.
type Query struct {
	Search string
	Filter StatusFilter
	Sort   SortKey
}

// DefaultQuery shows every job, newest first.
func DefaultQuery() Query {
	return Query{Filter: FilterAll, Sort: SortDateDesc}
}

// ParseQuery reads a Query from address parameters. Missing or unknown values fall
// back to the defaults.
func ParseQuery(v url.Values) Query {
	return Query{
		Search: v.Get(ParamSearch),
		Filter: ParseStatusFilter(v.Get(ParamFilter)),
		Sort:   ParseSortKey(v.Get(ParamSort)),
	}
}

// Values encodes q as address parameters. Defaults and empty values are omitted so
// the canonical address of the default view carries no parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set(ParamSearch, q.Search)
	}
	if f := ParseStatusFilter(string(q.Filter)); f != FilterAll {
		v.Set(ParamFilter, string(f))
	}
	if s := ParseSortKey(string(q.Sort)); s != SortDateDesc {
		v.Set(ParamSort, string(s))
	}
	return v
}

// With returns a copy of q with one parameter replaced, mirroring a single form
// control change in the browser.
func (q Query) With(param, value string) Query {
	switch param {
	case ParamSearch:
		q.Search = value
	case ParamFilter:
		q.Filter = ParseStatusFilter(value)
	case ParamSort:
		q.Sort = ParseSortKey(value)
	}
	return q
}

// Encode returns the query string for q, without a leading "?".
func (q Query) Encode() string {
	return q.Values().Encode()
}

// Normalized maps q onto its canonical form so equal views compare equal.
func (q Query) Normalized() Query {
	return ParseQuery(q.Values())
}

// IsDefault reports whether q selects the unfiltered default view.
func (q Query) IsDefault() bool {
	return strings.TrimSpace(q.Encode()) == ""
}
