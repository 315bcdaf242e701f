package store

import (
	"context"
	"errors"
	"time"

	"opspanel.org/internal/rbac"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
	ErrInvalidInput  = errors.New("store: invalid input")
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User is the persisted account record. The store is consulted only for
// credential and profile lookup; authorization decisions never read it.
type User struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"-"`
	Role          rbac.Role  `json:"role"`
	ProfilePhoto  string     `json:"profilePhoto,omitempty"`
	EmailVerified *time.Time `json:"emailVerified,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u.Status == UserStatusActive
}

// UserUpdate carries optional field changes; nil means keep.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
	Role         *rbac.Role
	Status       *string
}

// ListQuery controls pagination and search for user listings.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// UserStore manages account records.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, q ListQuery) ([]*User, int, error)
	Update(ctx context.Context, id string, upd UserUpdate) (*User, error)
	Delete(ctx context.Context, id string) error
}
