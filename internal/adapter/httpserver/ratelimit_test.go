package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRemoteAddr = "1.2.3.4:1234"

func serveLimited(t *testing.T, handler echo.HandlerFunc, method, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func TestRateLimiterAllowsRequestsUnderLimit(t *testing.T) {
	mw := newRateLimiter(10, 3) // 10 req/s, burst 3
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for range 3 {
		rec := serveLimited(t, handler, http.MethodPost, testRemoteAddr)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterBlocksExcessiveRequests(t *testing.T) {
	mw := newRateLimiter(0.01, 1) // very low rate, burst 1
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := serveLimited(t, handler, http.MethodPost, testRemoteAddr)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveLimited(t, handler, http.MethodPost, testRemoteAddr)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many attempts")
}

func TestRateLimiterIgnoresPageLoads(t *testing.T) {
	mw := newRateLimiter(0.01, 1)
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	for range 5 {
		rec := serveLimited(t, handler, http.MethodGet, testRemoteAddr)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	rec := serveLimited(t, handler, http.MethodPost, testRemoteAddr)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiterDifferentIPsAreIndependent(t *testing.T) {
	mw := newRateLimiter(0.01, 1)
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := serveLimited(t, handler, http.MethodPost, testRemoteAddr)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveLimited(t, handler, http.MethodPost, "5.6.7.8:5678")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveLimited(t, handler, http.MethodPost, testRemoteAddr)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
