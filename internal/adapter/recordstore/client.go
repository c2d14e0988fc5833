// Package recordstore is the HTTP client for the json-server style REST service
// that holds job and user records.
package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/jobtracker/internal/adapter/metrics"
	"github.com/pscheid92/jobtracker/internal/domain"
	"github.com/pscheid92/jobtracker/internal/platform/correlation"
	apperrors "github.com/pscheid92/jobtracker/internal/platform/errors"
	"github.com/pscheid92/jobtracker/internal/platform/retry"
	"github.com/pscheid92/jobtracker/internal/platform/version"
	"github.com/sony/gobreaker"
)

const maxErrorBody = 512

var (
	_ domain.JobRepository  = (*Client)(nil)
	_ domain.UserRepository = (*Client)(nil)
)

// Client talks to the record store. It carries no business logic; owner
// scoping and validation live in the tracker.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker
	getPolicy   retry.Policy
	metrics     *metrics.RecordStoreMetrics
	breakerOpts gobreaker.Settings
}

type Option func(*Client)

// WithGetAttempts sets how many times an idempotent GET is tried before giving up.
func WithGetAttempts(n int) Option {
	return func(c *Client) {
		if n >= 1 {
			c.getPolicy.MaxAttempts = n
		}
	}
}

// WithClock sets the clock used between GET retries.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.getPolicy.Clock = clock }
}

func WithMetrics(m *metrics.RecordStoreMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithBreakerSettings overrides the circuit breaker thresholds. Name and the
// state change hook are always set by the client.
func WithBreakerSettings(s gobreaker.Settings) Option {
	return func(c *Client) { c.breakerOpts = s }
}

// NewClient creates a record store client. A nil httpClient uses a client
// without timeout.
func NewClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
		getPolicy: retry.Policy{
			MaxAttempts:      1,
			InitialBackoff:   100 * time.Millisecond,
			RateLimitBackoff: time.Second,
		},
		breakerOpts: gobreaker.Settings{
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.getPolicy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Retrying record store request", "attempt", attempt, "backoff", backoff, "error", err)
	}

	settings := c.breakerOpts
	settings.Name = "recordstore"
	settings.IsSuccessful = breakerSuccess
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
		if c.metrics != nil {
			c.metrics.BreakerState.Set(stateToFloat(to))
		}
	}
	c.breaker = gobreaker.NewCircuitBreaker(settings)
	return c
}

func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// CheckBreaker fails while the circuit breaker is open, so the instance
// reports not ready until the record store recovers.
func (c *Client) CheckBreaker(context.Context) error {
	if c.BreakerState() == gobreaker.StateOpen {
		return fmt.Errorf("record store circuit breaker %w", gobreaker.ErrOpenState)
	}
	return nil
}

// Ping checks that the record store answers at all.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/users?_limit=1", nil, nil)
}

// StatusError is a non-2xx answer from the record store.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets callers match 400 and 422 answers with domain.ErrRecordStoreBadRequest.
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrRecordStoreBadRequest &&
		(e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity)
}

// IsStatus reports whether err carries a record store answer with the given code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == code
}

// get runs an idempotent GET through the retry policy.
func (c *Client) get(ctx context.Context, operation, path string, out any) error {
	_, err := retry.Do(ctx, c.getPolicy, classify, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.do(ctx, operation, http.MethodGet, path, nil, out)
	})
	return err
}

// do performs one request through the circuit breaker. Every failure is returned
// as a transport error; a non-2xx answer keeps its *StatusError as the cause.
func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, path, body, out)
	})
	c.observe(operation, time.Since(start), err)

	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.TransportError(method+" "+path, err)
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.InternalError("encode record store request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.InternalError("create record store request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id, ok := correlation.ID(ctx); ok {
		req.Header.Set(correlation.Header, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(payload))
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: text}
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(operation string, d time.Duration, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.RequestDuration.WithLabelValues(operation).Observe(d.Seconds())
	c.metrics.RequestsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	case IsStatus(err, http.StatusNotFound):
		return "not_found"
	default:
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
			return "client_error"
		}
		return "error"
	}
}

// breakerSuccess keeps answers the store gave deliberately (4xx) and cancelled
// requests from tripping the breaker.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode < 500
}

func classify(err error) retry.Action {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return retry.Stop
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return retry.Stop
	case IsStatus(err, http.StatusTooManyRequests):
		return retry.After
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < 500 {
		return retry.Stop
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Type == apperrors.TypeInternal {
		return retry.Stop
	}
	return retry.Retry
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
