package domain

import "context"

// User is a record store account. Password holds whatever the store keeps; accounts
// registered through this server store a bcrypt hash.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// Identity is the part of a User that may be persisted in session storage.
type Identity struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username}
}

// UserRepository abstracts user lookups and registration against the record store.
type UserRepository interface {
	FindUsersByUsername(ctx context.Context, username string) ([]User, error)
	CreateUser(ctx context.Context, username, password string) (*User, error)
}
