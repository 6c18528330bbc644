package ports

import (
	"context"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

// UserRepository is the identity lookup the authentication core depends on.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound when no user matches.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// UpdateLockout replaces the lockout state embedded in the user record.
	UpdateLockout(ctx context.Context, userID string, state domain.LockoutState) error
}
