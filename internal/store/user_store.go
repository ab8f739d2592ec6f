package store

import (
	"context"
	"strings"
	"time"
)

// User is an end user who has contacted the bot at least once.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username,omitempty"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Verified  bool      `json:"verified"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserStats aggregates user counters for the dashboard.
type UserStats struct {
	Total    int `json:"total"`
	Verified int `json:"verified"`
	Banned   int `json:"banned"`
}

// UserStore persists users and their verified/banned flags.
type UserStore interface {
	// Upsert creates the user or refreshes its name fields. Flags are never touched.
	Upsert(ctx context.Context, u *User) (*User, error)
	Get(ctx context.Context, id int64) (*User, error)
	// SetVerified flips verified to true. changed is false when it already was.
	SetVerified(ctx context.Context, id int64) (changed bool, err error)
	// SetBanned sets the banned flag. changed is false when it already had that value.
	SetBanned(ctx context.Context, id int64, banned bool) (changed bool, err error)
	List(ctx context.Context, limit, offset int) ([]User, error)
	ListBanned(ctx context.Context) ([]User, error)
	Stats(ctx context.Context) (UserStats, error)
}
