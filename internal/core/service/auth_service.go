package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerly/accounting-api/internal/core/domain"
	"github.com/ledgerly/accounting-api/internal/core/ports"
)

// AuthService implements registration, login and the session lifecycle on top
// of the login pipeline, the token codec and the renewal token store.
type AuthService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	pipeline ports.LoginPipeline
	codec    ports.TokenCodec
	renewals ports.RenewalTokens
	now      func() time.Time
	log      zerolog.Logger
}

func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	pipeline ports.LoginPipeline,
	codec ports.TokenCodec,
	renewals ports.RenewalTokens,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		pipeline: pipeline,
		codec:    codec,
		renewals: renewals,
		now:      time.Now,
		log:      log.With().Str("component", "auth_service").Logger(),
	}
}

func (s *AuthService) Register(ctx context.Context, username, password, email string, isAdmin bool) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrInvalidUserInput
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("username", created.Username).Bool("admin", created.IsAdmin).Msg("user registered")
	return created, nil
}

// Login authenticates through the pipeline and hands out a fresh session and
// renewal token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	principal, err := s.pipeline.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := s.codec.Issue(principal, nil)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	renewal, err := s.renewals.Issue(ctx, principal.Name)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("username", principal.Name).Msg("user logged in")
	return &domain.Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RenewalToken:     renewal.Token,
		RenewalExpiresAt: renewal.ExpiresAt,
		Principal:        principal,
	}, nil
}

// Refresh exchanges a renewal token for a new session token and prolongs the
// renewal token. The pipeline is not involved.
func (s *AuthService) Refresh(ctx context.Context, renewalToken string) (*domain.Session, error) {
	principal, err := s.renewals.Validate(ctx, renewalToken)
	if err != nil {
		return nil, err
	}

	access, accessExp, err := s.codec.Issue(principal, nil)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	renewal, err := s.renewals.Prolong(ctx, renewalToken)
	if err != nil {
		return nil, err
	}

	return &domain.Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RenewalToken:     renewal.Token,
		RenewalExpiresAt: renewal.ExpiresAt,
		Principal:        principal,
	}, nil
}

// Logout forgets one renewal token. The session token stays valid until it
// expires on its own.
func (s *AuthService) Logout(ctx context.Context, renewalToken string) error {
	return s.renewals.Revoke(ctx, renewalToken)
}

// LogoutEverywhere drops every renewal token of username.
func (s *AuthService) LogoutEverywhere(ctx context.Context, username string) error {
	if err := s.renewals.RevokeAll(ctx, username); err != nil {
		return err
	}
	s.log.Info().Str("username", username).Msg("all renewal tokens revoked")
	return nil
}

// RotateSigningKeys invalidates every outstanding session token.
func (s *AuthService) RotateSigningKeys(_ context.Context) error {
	return s.codec.RotateKeys()
}

// ValidateSessionToken resolves a session token to its principal.
func (s *AuthService) ValidateSessionToken(token string) (domain.Principal, error) {
	return s.codec.Validate(token)
}

// IssueSessionToken signs a session token for p outside the login flow.
func (s *AuthService) IssueSessionToken(p domain.Principal, validTill *time.Time) (string, time.Time, error) {
	return s.codec.Issue(p, validTill)
}

// BootstrapAdmin creates the initial ADMIN account unless a user with that
// name already exists. Further admins are created through an ADMIN session.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, password string) error {
	_, err := s.Register(ctx, username, password, "", true)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrUserExists):
		s.log.Debug().Str("username", username).Msg("bootstrap admin already present")
		return nil
	default:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
}
