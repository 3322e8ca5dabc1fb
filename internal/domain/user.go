package domain

import (
	"errors"
	"time"
)

// ErrEmailTaken is returned by the store when an insert loses the uniqueness
// race on email. The unique index is the arbiter, not an application-level
// lookup: two concurrent registrations yield exactly one winner.
var ErrEmailTaken = errors.New("email already in use")

// User is an identity record. Created once by registration, never updated or
// deleted here. Emails are stored and compared verbatim (case-sensitive).
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:64;not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (User) TableName() string { return "users" }

// Public is the caller-facing projection; the password hash never leaves the
// service.
type Public struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

type UserRepository interface {
	// Create persists u; returns ErrEmailTaken on a unique violation.
	Create(u *User) error
	// FindByEmail returns (nil, nil) when no record matches.
	FindByEmail(email string) (*User, error)
	FindByID(id string) (*User, error)
}
