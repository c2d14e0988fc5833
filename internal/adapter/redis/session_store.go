package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pscheid92/jobtracker/internal/domain"
	"github.com/pscheid92/jobtracker/internal/session"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "jobtracker:session:"

// SessionStore keeps one hash per browser session; the identity lives in the
// session.StorageKey field.
type SessionStore struct {
	rdb *goredis.Client
}

var _ session.Storage = (*SessionStore)(nil)

func NewSessionStore(rdb *goredis.Client) *SessionStore {
	return &SessionStore{rdb: rdb}
}

// Save writes identity for sid. A zero ttl never expires.
func (s *SessionStore) Save(ctx context.Context, sid string, identity domain.Identity, ttl time.Duration) error {
	payload, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	key := sessionKey(sid)
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, session.StorageKey, payload)
		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		} else {
			pipe.Persist(ctx, key)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, sid string) (domain.Identity, error) {
	raw, err := s.rdb.HGet(ctx, sessionKey(sid), session.StorageKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		return domain.Identity{}, domain.ErrNoSession
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to load session: %w", err)
	}

	var identity domain.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return domain.Identity{}, fmt.Errorf("failed to decode identity: %w", err)
	}
	return identity, nil
}

func (s *SessionStore) Delete(ctx context.Context, sid string) error {
	if err := s.rdb.Del(ctx, sessionKey(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Ping is used by the readiness probe.
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func sessionKey(sid string) string {
	return keyPrefix + sid
}
