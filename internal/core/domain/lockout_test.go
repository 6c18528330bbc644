package domain

import (
	"errors"
	"testing"
	"time"
)

func TestLockoutState_LocksAtThreshold(t *testing.T) {
	now := time.Date(3000, 1, 1, 12, 0, 0, 0, time.UTC)
	policy := LockoutPolicy{Threshold: 3, Duration: time.Minute}
	var s LockoutState

	for i := 1; i < 3; i++ {
		if s.RegisterFailure(now, policy) {
			t.Fatalf("locked too early at attempt %d", i)
		}
		if s.Remaining(now) != 0 {
			t.Fatalf("expected no lock after %d failures", i)
		}
	}
	if !s.RegisterFailure(now, policy) {
		t.Fatalf("expected lock on third failure")
	}
	if got := s.Remaining(now); got != time.Minute {
		t.Fatalf("expected 1m remaining, got %s", got)
	}
	if got := s.Remaining(now.Add(time.Minute)); got != 0 {
		t.Fatalf("lock must expire at LockedUntil, got %s", got)
	}
}

func TestLockoutState_FailureAfterExpiryRearms(t *testing.T) {
	now := time.Date(3000, 1, 1, 12, 0, 0, 0, time.UTC)
	policy := LockoutPolicy{Threshold: 1, Duration: time.Minute}
	var s LockoutState
	s.RegisterFailure(now, policy)

	later := now.Add(2 * time.Minute)
	if !s.RegisterFailure(later, policy) {
		t.Fatalf("failure over threshold must re-arm the lock")
	}
	if s.FailedAttempts != 2 {
		t.Fatalf("counter must keep increasing, got %d", s.FailedAttempts)
	}
	if s.Remaining(later) != time.Minute {
		t.Fatalf("unexpected remaining: %s", s.Remaining(later))
	}
}

func TestLockoutState_Reset(t *testing.T) {
	now := time.Now()
	var s LockoutState
	s.RegisterFailure(now, LockoutPolicy{Threshold: 1, Duration: time.Hour})
	if s.IsZero() {
		t.Fatalf("state should not be zero after failure")
	}
	s.Reset()
	if !s.IsZero() || s.Remaining(now) != 0 {
		t.Fatalf("reset must clear counter and lock: %+v", s)
	}
}

func TestLockoutPolicy_ZeroValueUsesDefaults(t *testing.T) {
	var s LockoutState
	now := time.Now()
	for i := 0; i < DefaultLockoutThreshold-1; i++ {
		s.RegisterFailure(now, LockoutPolicy{})
	}
	if s.Remaining(now) != 0 {
		t.Fatalf("locked before default threshold")
	}
	s.RegisterFailure(now, LockoutPolicy{})
	if s.Remaining(now) != DefaultLockoutDuration {
		t.Fatalf("expected default duration, got %s", s.Remaining(now))
	}
}

func TestAccountLockedError(t *testing.T) {
	err := error(&AccountLockedError{Remaining: 1500 * time.Millisecond})
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected errors.Is to match ErrAccountLocked")
	}
	var locked *AccountLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected errors.As to succeed")
	}
	if locked.RemainingSeconds() != 2 {
		t.Fatalf("expected remaining seconds rounded up to 2, got %d", locked.RemainingSeconds())
	}
	if (&AccountLockedError{}).RemainingSeconds() != 1 {
		t.Fatalf("remaining seconds must be positive")
	}
}
