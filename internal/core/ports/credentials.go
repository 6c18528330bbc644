package ports

import (
	"context"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

// PasswordHasher hashes and compares secrets.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Matches(password, hash string) bool
}

// CredentialVerifier performs one credential check, including lockout
// bookkeeping. It is the unit of work the login pipeline schedules.
type CredentialVerifier interface {
	Verify(ctx context.Context, username, password string) (domain.Principal, error)
}

// LoginPipeline authenticates a username/password pair. Failures are always
// one of domain.ErrInvalidCredentials, *domain.AccountLockedError or
// domain.ErrLoginUnavailable, unless the backing store itself fails.
type LoginPipeline interface {
	Authenticate(ctx context.Context, username, password string) (domain.Principal, error)
}
