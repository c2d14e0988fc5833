package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrJobNotFound           = errors.New("job not found")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrUsernameTaken         = errors.New("username already exists")
	ErrNoSession             = errors.New("no active session")
	ErrBusy                  = errors.New("operation already in progress")
	ErrConfirmationRequired  = errors.New("confirmation required")
	ErrRecordStoreBadRequest = errors.New("record store rejected request")
)

// FieldErrors maps a form field name to a human-readable message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for name := range fe {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, name := range fields {
		parts = append(parts, name+": "+fe[name])
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// Has reports whether the named field failed validation.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}
