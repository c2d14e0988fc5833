package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("")
	assert.True(t, ok)
	assert.Equal(t, StatusApplied, s)

	s, ok = ParseStatus("interviewed")
	assert.True(t, ok)
	assert.Equal(t, StatusInterviewed, s)

	_, ok = ParseStatus("offer")
	assert.False(t, ok)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Interviewed", StatusInterviewed.Label())
	assert.Equal(t, "", Status("").Label())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, NewDate(2025, time.January, 10), d)

	d, err = ParseDate("2025-01-10T15:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-10", d.String())

	_, err = ParseDate("10/01/2025")
	assert.Error(t, err)
}

func TestDateOrdering(t *testing.T) {
	a := MustParseDate("2025-01-01")
	b := MustParseDate("2025-02-01")

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, a.Equal(MustParseDate("2025-01-01")))
	assert.False(t, a.Equal(b))
}

func TestJobJSON_MatchesRecordStoreShape(t *testing.T) {
	raw := `{"id":7,"userId":3,"company":"Acme","role":"Engineer","status":"applied","dateApplied":"2025-01-10","details":""}`

	var job Job
	require.NoError(t, json.Unmarshal([]byte(raw), &job))
	assert.Equal(t, int64(7), job.ID)
	assert.Equal(t, int64(3), job.UserID)
	assert.Equal(t, "2025-01-10", job.DateApplied.String())

	out, err := json.Marshal(job)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestDateUnmarshal_RejectsGarbage(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`42`), &d))

	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())
}

func TestFieldErrors_Error(t *testing.T) {
	fe := FieldErrors{"role": "Role is required", "company": "Company is required"}

	assert.Equal(t, "invalid fields: company: Company is required, role: Role is required", fe.Error())
	assert.True(t, fe.Has("role"))
	assert.False(t, fe.Has("details"))
}
