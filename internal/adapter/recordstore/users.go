package recordstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pscheid92/jobtracker/internal/domain"
)

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// FindUsersByUsername returns every user record whose username equals username.
// The store filters by exact match.
func (c *Client) FindUsersByUsername(ctx context.Context, username string) ([]domain.User, error) {
	q := url.Values{"username": {username}}
	var users []domain.User
	if err := c.get(ctx, "find_users", "/users?"+q.Encode(), &users); err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	matches := users[:0]
	for _, u := range users {
		if u.Username == username {
			matches = append(matches, u)
		}
	}
	return matches, nil
}

// CreateUser posts a new user. password is stored as given; hashing is the
// caller's job.
func (c *Client) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	var user domain.User
	body := createUserRequest{Username: username, Password: password}
	if err := c.do(ctx, "create_user", http.MethodPost, "/users", body, &user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}
