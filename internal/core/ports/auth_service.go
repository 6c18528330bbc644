package ports

import (
	"context"
	"time"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

// TokenCodec issues and validates stateless session tokens.
type TokenCodec interface {
	// Issue signs a token for p. A nil validTill uses the codec's default lifetime.
	Issue(p domain.Principal, validTill *time.Time) (string, time.Time, error)
	Validate(token string) (domain.Principal, error)
	RotateKeys() error
}

// RenewalTokens manages the long-lived tokens exchanged for new sessions.
type RenewalTokens interface {
	Issue(ctx context.Context, username string) (*domain.RenewalToken, error)
	Validate(ctx context.Context, token string) (domain.Principal, error)
	Prolong(ctx context.Context, token string) (*domain.RenewalToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, username string) error
}

// AuthService is the use-case surface consumed by the HTTP layer.
type AuthService interface {
	Register(ctx context.Context, username, password, email string, isAdmin bool) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.Session, error)
	Refresh(ctx context.Context, renewalToken string) (*domain.Session, error)
	Logout(ctx context.Context, renewalToken string) error
	LogoutEverywhere(ctx context.Context, username string) error
	RotateSigningKeys(ctx context.Context) error
	ValidateSessionToken(token string) (domain.Principal, error)
	IssueSessionToken(p domain.Principal, validTill *time.Time) (string, time.Time, error)
}

// SessionValidator is what request authentication needs from the core.
type SessionValidator interface {
	Validate(token string) (domain.Principal, error)
}
