package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerly/accounting-api/internal/core/domain"
	"github.com/ledgerly/accounting-api/internal/pkg/tokenhash"
)

// RenewalTokenRepository implements ports.RenewalTokenRepository over DBTX.
// Only the BLAKE3 digest of a token is stored.
type RenewalTokenRepository struct {
	db DBTX
}

func NewRenewalTokenRepository(db DBTX) *RenewalTokenRepository {
	return &RenewalTokenRepository{db: db}
}

func (r *RenewalTokenRepository) Create(ctx context.Context, t *domain.RenewalToken) error {
	query := `
		INSERT INTO renewal_tokens (token_hash, owner_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, tokenhash.Sum(t.Token), t.OwnerID, t.ExpiresAt.UTC(), t.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("insert renewal token: %w", err)
	}
	return nil
}

func (r *RenewalTokenRepository) Find(ctx context.Context, token string) (*domain.RenewalToken, error) {
	query := `
		SELECT owner_id, expires_at, created_at
		FROM renewal_tokens
		WHERE token_hash = $1
	`
	t := &domain.RenewalToken{Token: token}
	err := r.db.QueryRowContext(ctx, query, tokenhash.Sum(token)).Scan(&t.OwnerID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("find renewal token: %w", err)
	}
	return t, nil
}

func (r *RenewalTokenRepository) UpdateExpiration(ctx context.Context, token string, expiresAt time.Time) error {
	query := `
		UPDATE renewal_tokens
		SET expires_at = $2
		WHERE token_hash = $1
	`
	res, err := r.db.ExecContext(ctx, query, tokenhash.Sum(token), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("prolong renewal token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("prolong renewal token: %w", err)
	}
	if n == 0 {
		return domain.ErrInvalidToken
	}
	return nil
}

func (r *RenewalTokenRepository) Delete(ctx context.Context, token string) error {
	query := `
		DELETE FROM renewal_tokens
		WHERE token_hash = $1
	`
	if _, err := r.db.ExecContext(ctx, query, tokenhash.Sum(token)); err != nil {
		return fmt.Errorf("delete renewal token: %w", err)
	}
	return nil
}

func (r *RenewalTokenRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	query := `
		DELETE FROM renewal_tokens
		WHERE owner_id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, ownerID); err != nil {
		return fmt.Errorf("delete renewal tokens by owner: %w", err)
	}
	return nil
}

func (r *RenewalTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM renewal_tokens
		WHERE expires_at < $1
	`
	res, err := r.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired renewal tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired renewal tokens: %w", err)
	}
	return n, nil
}
