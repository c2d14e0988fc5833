package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/pscheid92/jobtracker/internal/domain"
	apperrors "github.com/pscheid92/jobtracker/internal/platform/errors"
	"github.com/pscheid92/jobtracker/internal/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIJobs_ReturnsDerivedView(t *testing.T) {
	env := newTestServer(t, newFakeJobRepo(aliceJobs()...))
	jar := env.login(t, "alice", "secret")

	rec := env.request(t, http.MethodGet, "/api/jobs?sort=date-asc", nil, jar)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp jobsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, domain.SortDateAsc, resp.Query.Sort)
	assert.Equal(t, domain.FilterAll, resp.Query.Filter)
	require.Len(t, resp.Jobs, 2)
	assert.Equal(t, "Acme", resp.Jobs[0].Company)
	assert.Equal(t, "Zeta", resp.Jobs[1].Company)
}

func TestAPIJobs_EmptyViewIsAnArray(t *testing.T) {
	env := newTestServer(t, newFakeJobRepo(aliceJobs()...))
	jar := env.login(t, "alice", "secret")

	rec := env.request(t, http.MethodGet, "/api/jobs?search=nomatch", nil, jar)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jobs":[]`)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}

func TestAPIJobs_StoreDown(t *testing.T) {
	repo := newFakeJobRepo(aliceJobs()...)
	repo.failList = errStoreDown
	env := newTestServer(t, repo)
	jar := env.login(t, "alice", "secret")

	rec := env.request(t, http.MethodGet, "/api/jobs", nil, jar)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeTransport, resp.Type)
	assert.Equal(t, tracker.MsgFetchFailed, resp.Error)
}

func TestAPIJobs_RequiresSession(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.request(t, http.MethodGet, "/api/jobs", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"auth"`)
}
