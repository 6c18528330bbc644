package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerly/accounting-api/internal/api/metrics"
	"github.com/ledgerly/accounting-api/internal/core/domain"
	"github.com/ledgerly/accounting-api/internal/core/ports"
)

const (
	defaultRenewalTTL   = 30 * 24 * time.Hour
	renewalEntropyBytes = 128
	renewalSeparator    = "."
)

// RenewalTokenService issues, validates and prolongs renewal tokens.
type RenewalTokenService struct {
	repo  ports.RenewalTokenRepository
	users ports.UserRepository
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

func NewRenewalTokenService(
	repo ports.RenewalTokenRepository,
	users ports.UserRepository,
	ttl time.Duration,
	now func() time.Time,
	log zerolog.Logger,
) *RenewalTokenService {
	if ttl <= 0 {
		ttl = defaultRenewalTTL
	}
	if now == nil {
		now = time.Now
	}
	return &RenewalTokenService{
		repo:  repo,
		users: users,
		ttl:   ttl,
		now:   now,
		log:   log.With().Str("component", "renewal_tokens").Logger(),
	}
}

// Issue creates and stores a new renewal token for username. The value is the
// owner id followed by 128 random bytes, base64url encoded.
func (s *RenewalTokenService) Issue(ctx context.Context, username string) (*domain.RenewalToken, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("issue renewal token: %w", err)
	}

	secret := make([]byte, renewalEntropyBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("issue renewal token: %w", err)
	}

	now := s.now()
	token := &domain.RenewalToken{
		OwnerID:   user.ID,
		Token:     user.ID + renewalSeparator + base64.RawURLEncoding.EncodeToString(secret),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("issue renewal token: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues("renewal").Inc()
	return token, nil
}

// Validate resolves token to its owner's current principal. Roles come from
// the live user record, so admin changes apply on the next renewal.
func (s *RenewalTokenService) Validate(ctx context.Context, token string) (domain.Principal, error) {
	if !wellFormedRenewal(token) {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	stored, err := s.repo.Find(ctx, token)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("validate renewal token: %w", err)
	}
	if !ownedBy(token, stored.OwnerID) {
		return domain.Principal{}, domain.ErrInvalidToken
	}
	if stored.Expired(s.now()) {
		return domain.Principal{}, domain.ExpiredToken()
	}

	user, err := s.users.FindByID(ctx, stored.OwnerID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Principal{}, domain.ErrInvalidToken
		}
		return domain.Principal{}, fmt.Errorf("validate renewal token: %w", err)
	}
	return domain.PrincipalFromUser(user), nil
}

// Prolong pushes the token's expiry to now plus the renewal lifetime and
// returns the unchanged token.
func (s *RenewalTokenService) Prolong(ctx context.Context, token string) (*domain.RenewalToken, error) {
	if !wellFormedRenewal(token) {
		return nil, domain.ErrInvalidToken
	}

	stored, err := s.repo.Find(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("prolong renewal token: %w", err)
	}

	expiresAt := s.now().Add(s.ttl)
	if err := s.repo.UpdateExpiration(ctx, token, expiresAt); err != nil {
		return nil, fmt.Errorf("prolong renewal token: %w", err)
	}
	stored.ExpiresAt = expiresAt
	return stored, nil
}

// Revoke deletes a single renewal token. Unknown tokens are not an error.
func (s *RenewalTokenService) Revoke(ctx context.Context, token string) error {
	if !wellFormedRenewal(token) {
		return nil
	}
	if err := s.repo.Delete(ctx, token); err != nil {
		return fmt.Errorf("revoke renewal token: %w", err)
	}
	return nil
}

// RevokeAll deletes every renewal token owned by username.
func (s *RenewalTokenService) RevokeAll(ctx context.Context, username string) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("revoke renewal tokens: %w", err)
	}
	if err := s.repo.DeleteByOwner(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke renewal tokens: %w", err)
	}
	return nil
}

// PurgeExpired removes tokens that are already past their expiry.
func (s *RenewalTokenService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge renewal tokens: %w", err)
	}
	metrics.RenewalTokensPurgedTotal.Add(float64(n))
	return n, nil
}

// StartJanitor purges expired tokens every interval until ctx is cancelled.
func (s *RenewalTokenService) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := s.PurgeExpired(ctx)
				if err != nil {
					s.log.Error().Err(err).Msg("renewal token purge failed")
					continue
				}
				if n > 0 {
					s.log.Info().Int64("purged", n).Msg("expired renewal tokens purged")
				}
			}
		}
	}()
}

func wellFormedRenewal(token string) bool {
	owner, secret, ok := strings.Cut(token, renewalSeparator)
	return ok && owner != "" && secret != ""
}

func ownedBy(token, ownerID string) bool {
	owner, _, _ := strings.Cut(token, renewalSeparator)
	return owner == ownerID
}
