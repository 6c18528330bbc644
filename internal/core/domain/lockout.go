package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 5 * time.Minute
)

// ErrAccountLocked is matched by every *AccountLockedError via errors.Is.
var ErrAccountLocked = errors.New("account temporarily locked")

// LockoutPolicy decides when consecutive failures lock an account.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy locks for five minutes after five consecutive failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

func (p LockoutPolicy) normalized() LockoutPolicy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultLockoutThreshold
	}
	if p.Duration <= 0 {
		p.Duration = DefaultLockoutDuration
	}
	return p
}

// LockoutState tracks consecutive failed logins for one user.
type LockoutState struct {
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
}

// Remaining returns how long the account stays locked at now, or zero.
func (s LockoutState) Remaining(now time.Time) time.Duration {
	if s.LockedUntil == nil || !now.Before(*s.LockedUntil) {
		return 0
	}
	return s.LockedUntil.Sub(now)
}

// IsZero reports whether there is nothing to reset.
func (s LockoutState) IsZero() bool {
	return s.FailedAttempts == 0 && s.LockedUntil == nil
}

// RegisterFailure counts a failed attempt. Once the counter has reached the
// threshold every further failure re-arms the lock until Reset is called.
// It reports whether the lock was armed by this failure.
func (s *LockoutState) RegisterFailure(now time.Time, policy LockoutPolicy) bool {
	policy = policy.normalized()
	s.FailedAttempts++
	if s.FailedAttempts < policy.Threshold {
		return false
	}
	until := now.Add(policy.Duration)
	s.LockedUntil = &until
	return true
}

// Reset clears the counter and any lock after a successful login.
func (s *LockoutState) Reset() {
	s.FailedAttempts = 0
	s.LockedUntil = nil
}

// AccountLockedError is returned while a user is locked out.
type AccountLockedError struct {
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("%s: retry in %ds", ErrAccountLocked, e.RemainingSeconds())
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// RemainingSeconds rounds the remaining lock up to whole seconds, never below one.
func (e *AccountLockedError) RemainingSeconds() int {
	secs := int((e.Remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
