package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/jobtracker/internal/adapter/metrics"
	"github.com/pscheid92/jobtracker/internal/domain"
)

// Registry keeps one Controller per browser session id. Controllers are
// created on first use and never shared between sessions.
type Registry struct {
	repo    domain.JobRepository
	clock   clockwork.Clock
	idleTTL time.Duration
	metrics *metrics.AppMetrics

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewRegistry creates a registry. An idleTTL of zero disables eviction.
func NewRegistry(repo domain.JobRepository, clock clockwork.Clock, idleTTL time.Duration, m *metrics.AppMetrics) *Registry {
	return &Registry{
		repo:        repo,
		clock:       clock,
		idleTTL:     idleTTL,
		metrics:     m,
		controllers: make(map[string]*Controller),
	}
}

// Controller returns the controller for sid, creating it for owner when absent.
// A controller bound to a different owner is replaced.
func (r *Registry) Controller(sid string, owner domain.Identity) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[sid]; ok && c.Owner() == owner {
		c.touch()
		return c
	}

	c := NewController(r.repo, owner, WithClock(r.clock), WithMetrics(r.metrics))
	r.controllers[sid] = c
	r.updateGauge()
	return c
}

// Remove drops the controller for sid. Used as a logout hook.
func (r *Registry) Remove(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, sid)
	r.updateGauge()
}

func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}

// EvictIdle removes controllers unused for longer than the idle TTL and
// returns how many were removed. Controllers with store calls in flight stay.
func (r *Registry) EvictIdle() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.clock.Now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for sid, c := range r.controllers {
		if c.idleBefore(cutoff) {
			delete(r.controllers, sid)
			evicted++
		}
	}
	if evicted > 0 {
		r.updateGauge()
	}
	return evicted
}

// StartEvictionTimer runs EvictIdle every interval until the returned stop
// function is called.
func (r *Registry) StartEvictionTimer(interval time.Duration) func() {
	ticker := r.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := r.EvictIdle(); evicted > 0 {
					slog.Debug("Evicted idle list controllers", "count", evicted, "remaining", r.Size())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// updateGauge publishes the controller count. Callers hold r.mu.
func (r *Registry) updateGauge() {
	if r.metrics != nil {
		r.metrics.ActiveControllers.Set(float64(len(r.controllers)))
	}
}
