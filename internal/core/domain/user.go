package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidUserInput   = errors.New("invalid user input")
)

// User models a durable account record. Lockout state lives on the record so
// it is read and written together with the credentials it protects.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email,omitempty"`
	PasswordHash string       `json:"-"`
	IsAdmin      bool         `json:"is_admin"`
	Lockout      LockoutState `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
