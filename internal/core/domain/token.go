package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidToken covers bad signatures, malformed tokens and unknown
	// renewal tokens. Expired tokens match it as well as ErrTokenExpired.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrLoginUnavailable = errors.New("login temporarily unavailable")
)

// expiredTokenError lets an expired token satisfy both ErrTokenExpired and
// ErrInvalidToken so callers that only care about "not authenticated" can
// check a single sentinel.
type expiredTokenError struct{}

func (expiredTokenError) Error() string { return ErrTokenExpired.Error() }

func (expiredTokenError) Is(target error) bool {
	return target == ErrTokenExpired || target == ErrInvalidToken
}

// ExpiredToken returns the error reported for tokens past their expiry.
func ExpiredToken() error { return expiredTokenError{} }

// RenewalToken is a durable opaque credential used to mint new session tokens.
type RenewalToken struct {
	OwnerID   string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t *RenewalToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Session is the pair of credentials handed to a client after login or renewal.
type Session struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RenewalToken     string
	RenewalExpiresAt time.Time
	Principal        Principal
}
