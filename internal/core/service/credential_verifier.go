package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerly/accounting-api/internal/core/domain"
	"github.com/ledgerly/accounting-api/internal/core/ports"
)

// CredentialVerifier checks one username/password pair and keeps the user's
// lockout state up to date. It does no throttling of its own; callers are
// expected to serialize checks per user (see queue.LoginPipeline).
type CredentialVerifier struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	policy domain.LockoutPolicy
	now    func() time.Time
	log    zerolog.Logger
}

func NewCredentialVerifier(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	policy domain.LockoutPolicy,
	now func() time.Time,
	log zerolog.Logger,
) *CredentialVerifier {
	if now == nil {
		now = time.Now
	}
	return &CredentialVerifier{
		users:  users,
		hasher: hasher,
		policy: policy,
		now:    now,
		log:    log.With().Str("component", "credential_verifier").Logger(),
	}
}

// Verify returns the user's principal on success. Unknown users and wrong
// passwords both yield domain.ErrInvalidCredentials; a locked account yields
// *domain.AccountLockedError without the password being compared.
func (v *CredentialVerifier) Verify(ctx context.Context, username, password string) (domain.Principal, error) {
	if username == "" || password == "" {
		return domain.Principal{}, domain.ErrInvalidCredentials
	}

	user, err := v.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Principal{}, domain.ErrInvalidCredentials
		}
		return domain.Principal{}, fmt.Errorf("verify credentials: %w", err)
	}

	now := v.now()
	if remaining := user.Lockout.Remaining(now); remaining > 0 {
		return domain.Principal{}, &domain.AccountLockedError{Remaining: remaining}
	}

	if !v.hasher.Matches(password, user.PasswordHash) {
		state := user.Lockout
		locked := state.RegisterFailure(now, v.policy)
		if err := v.users.UpdateLockout(ctx, user.ID, state); err != nil {
			return domain.Principal{}, fmt.Errorf("verify credentials: record failure: %w", err)
		}
		if locked {
			v.log.Warn().
				Str("username", username).
				Int("failed_attempts", state.FailedAttempts).
				Time("locked_until", *state.LockedUntil).
				Msg("account temporarily locked")
		}
		return domain.Principal{}, domain.ErrInvalidCredentials
	}

	if !user.Lockout.IsZero() {
		if err := v.users.UpdateLockout(ctx, user.ID, domain.LockoutState{}); err != nil {
			return domain.Principal{}, fmt.Errorf("verify credentials: reset lockout: %w", err)
		}
	}

	return domain.PrincipalFromUser(user), nil
}
