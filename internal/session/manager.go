package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pscheid92/jobtracker/internal/adapter/metrics"
	"github.com/pscheid92/jobtracker/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Manager authenticates users against the record store and keeps the resulting
// identity in Storage.
type Manager struct {
	users          domain.UserRepository
	storage        Storage
	ttl            time.Duration
	allowPlaintext bool
	bcryptCost     int
	metrics        *metrics.AppMetrics

	hooksMu     sync.RWMutex
	logoutHooks []func(sid string)
}

type Option func(*Manager)

// WithTTL sets how long a stored identity survives without a new login.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithPlaintextPasswords accepts user records whose password was stored unhashed.
func WithPlaintextPasswords(allow bool) Option {
	return func(m *Manager) { m.allowPlaintext = allow }
}

func WithBcryptCost(cost int) Option {
	return func(m *Manager) { m.bcryptCost = cost }
}

func WithMetrics(am *metrics.AppMetrics) Option {
	return func(m *Manager) { m.metrics = am }
}

func NewManager(users domain.UserRepository, storage Storage, opts ...Option) *Manager {
	m := &Manager{
		users:      users,
		storage:    storage,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnLogout registers fn to run after a session is logged out.
func (m *Manager) OnLogout(fn func(sid string)) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.logoutHooks = append(m.logoutHooks, fn)
}

// Login verifies the credentials and binds the user to sid. Unknown users and
// wrong passwords both fail with domain.ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, sid, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		m.count("login", "invalid")
		return nil, domain.ErrInvalidCredentials
	}

	users, err := m.users.FindUsersByUsername(ctx, username)
	if err != nil {
		m.count("login", "error")
		return nil, fmt.Errorf("login: %w", err)
	}
	if len(users) == 0 || !verifyPassword(users[0].Password, password, m.allowPlaintext) {
		m.count("login", "invalid")
		slog.InfoContext(ctx, "Login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	sess, err := m.bind(ctx, sid, users[0].Identity())
	if err != nil {
		m.count("login", "error")
		return nil, err
	}
	m.count("login", "success")
	slog.InfoContext(ctx, "User logged in", "user_id", sess.UserID())
	return sess, nil
}

// Register creates a user with a hashed password and logs it in. An existing
// username fails with domain.ErrUsernameTaken and creates nothing.
func (m *Manager) Register(ctx context.Context, sid, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if fe := validateCredentials(username, password); fe != nil {
		m.count("register", "invalid")
		return nil, fe
	}

	existing, err := m.users.FindUsersByUsername(ctx, username)
	if err != nil {
		m.count("register", "error")
		return nil, fmt.Errorf("register: %w", err)
	}
	if len(existing) > 0 {
		m.count("register", "taken")
		return nil, domain.ErrUsernameTaken
	}

	hash, err := hashPassword(password, m.bcryptCost)
	if err != nil {
		m.count("register", "error")
		return nil, err
	}

	user, err := m.users.CreateUser(ctx, username, hash)
	if err != nil {
		m.count("register", "error")
		return nil, fmt.Errorf("register: %w", err)
	}

	sess, err := m.bind(ctx, sid, user.Identity())
	if err != nil {
		m.count("register", "error")
		return nil, err
	}
	m.count("register", "success")
	slog.InfoContext(ctx, "User registered", "user_id", sess.UserID())
	return sess, nil
}

// Restore reads back the identity bound to sid.
func (m *Manager) Restore(ctx context.Context, sid string) (*Session, error) {
	if sid == "" {
		return nil, domain.ErrNoSession
	}
	identity, err := m.storage.Load(ctx, sid)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return nil, err
		}
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return &Session{ID: sid, Identity: identity}, nil
}

// Logout forgets the identity bound to sid and runs the logout hooks.
func (m *Manager) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := m.storage.Delete(ctx, sid); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	m.hooksMu.RLock()
	hooks := append([]func(string){}, m.logoutHooks...)
	m.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(sid)
	}
	return nil
}

func (m *Manager) bind(ctx context.Context, sid string, identity domain.Identity) (*Session, error) {
	if err := m.storage.Save(ctx, sid, identity, m.ttl); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &Session{ID: sid, Identity: identity}, nil
}

func (m *Manager) count(operation, result string) {
	if m.metrics != nil {
		m.metrics.AuthAttempts.WithLabelValues(operation, result).Inc()
	}
}

func validateCredentials(username, password string) domain.FieldErrors {
	fe := domain.FieldErrors{}
	if username == "" {
		fe["username"] = "Username is required"
	}
	if password == "" {
		fe["password"] = "Password is required"
	}
	if len(password) > 72 {
		fe["password"] = "Password must be at most 72 bytes"
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}
