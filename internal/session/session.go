// Package session holds the authenticated identity of a browser session and
// the login, register, restore and logout operations around it.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/jobtracker/internal/domain"
)

// StorageKey is the fixed key the identity is filed under within a browser session.
const StorageKey = "user"

// Session is the explicit authenticated state of one browser session.
type Session struct {
	ID       string
	Identity domain.Identity
}

func (s *Session) UserID() int64 { return s.Identity.ID }

func (s *Session) Username() string { return s.Identity.Username }

// Storage persists the identity of a browser session. Load returns
// domain.ErrNoSession when nothing is stored for sid.
type Storage interface {
	Save(ctx context.Context, sid string, identity domain.Identity, ttl time.Duration) error
	Load(ctx context.Context, sid string) (domain.Identity, error)
	Delete(ctx context.Context, sid string) error
}

// NewID returns a fresh, unguessable browser session id.
func NewID() string {
	return uuid.NewString()
}
