package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/jobtracker/internal/domain"
)

type memoryEntry struct {
	identity  domain.Identity
	expiresAt time.Time
}

// MemoryStorage keeps identities in process memory. Used when no Redis is
// configured and in tests.
type MemoryStorage struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	entries map[string]memoryEntry
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage(clock clockwork.Clock) *MemoryStorage {
	return &MemoryStorage{
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

// Save stores identity for sid. A zero ttl never expires.
func (s *MemoryStorage) Save(_ context.Context, sid string, identity domain.Identity, ttl time.Duration) error {
	entry := memoryEntry{identity: identity}
	if ttl > 0 {
		entry.expiresAt = s.clock.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sid] = entry
	return nil
}

func (s *MemoryStorage) Load(_ context.Context, sid string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sid]
	if !ok {
		return domain.Identity{}, domain.ErrNoSession
	}
	if !entry.expiresAt.IsZero() && !s.clock.Now().Before(entry.expiresAt) {
		delete(s.entries, sid)
		return domain.Identity{}, domain.ErrNoSession
	}
	return entry.identity, nil
}

func (s *MemoryStorage) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sid)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
