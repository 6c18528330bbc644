package ports

import (
	"context"
	"time"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

// RenewalTokenRepository persists renewal tokens. Implementations receive the
// plain token value and decide how to key it at rest.
type RenewalTokenRepository interface {
	Create(ctx context.Context, token *domain.RenewalToken) error
	// Find returns domain.ErrInvalidToken when the token is unknown.
	Find(ctx context.Context, token string) (*domain.RenewalToken, error)
	// UpdateExpiration returns domain.ErrInvalidToken when the token is unknown.
	UpdateExpiration(ctx context.Context, token string, expiresAt time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
	// DeleteExpired removes tokens that expired before the given instant.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
