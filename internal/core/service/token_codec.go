package service

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/ledgerly/accounting-api/internal/api/metrics"
	"github.com/ledgerly/accounting-api/internal/core/domain"
)

const (
	defaultSessionTTL = 10 * time.Minute
	signingKeyBits    = 2048
)

type sessionClaims struct {
	Roles     []string `json:"roles"`
	Transient bool     `json:"transient"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies RS256 session tokens with a keypair that only
// ever exists in process memory. Rotating the keypair invalidates every token
// issued before the rotation.
type TokenCodec struct {
	mu   sync.RWMutex
	key  *rsa.PrivateKey
	ttl  time.Duration
	now  func() time.Time
	log  zerolog.Logger
	bits int
}

// TokenCodecOption configures a TokenCodec.
type TokenCodecOption func(*TokenCodec)

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) TokenCodecOption {
	return func(c *TokenCodec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCodecClock overrides the time source used for issuing and expiry checks.
func WithCodecClock(now func() time.Time) TokenCodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCodecLogger attaches a logger.
func WithCodecLogger(log zerolog.Logger) TokenCodecOption {
	return func(c *TokenCodec) { c.log = log }
}

// NewTokenCodec generates the initial signing keypair.
func NewTokenCodec(opts ...TokenCodecOption) (*TokenCodec, error) {
	c := &TokenCodec{
		ttl:  defaultSessionTTL,
		now:  time.Now,
		log:  zerolog.Nop(),
		bits: signingKeyBits,
	}
	for _, opt := range opts {
		opt(c)
	}

	key, err := rsa.GenerateKey(rand.Reader, c.bits)
	if err != nil {
		return nil, fmt.Errorf("token codec: generate key: %w", err)
	}
	c.key = key
	return c, nil
}

// Issue signs a session token for p valid until validTill, or for the default
// lifetime when validTill is nil. It returns the token and the expiry encoded
// in it, truncated to whole seconds.
func (c *TokenCodec) Issue(p domain.Principal, validTill *time.Time) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)
	if validTill != nil {
		expiresAt = *validTill
	}

	claims := sessionClaims{
		Roles:     p.Roles,
		Transient: p.Transient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	c.mu.RLock()
	key := c.key
	c.mu.RUnlock()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token codec: sign: %w", err)
	}
	metrics.TokensIssuedTotal.WithLabelValues("session").Inc()
	return signed, claims.ExpiresAt.Time, nil
}

// Validate verifies the signature against the current key and the expiry
// against the codec clock, then rebuilds the principal from the claims.
func (c *TokenCodec) Validate(token string) (domain.Principal, error) {
	c.mu.RLock()
	pub := &c.key.PublicKey
	c.mu.RUnlock()

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return pub, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, domain.ExpiredToken()
		}
		return domain.Principal{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.Principal{}, domain.ErrInvalidToken
	}

	if claims.Transient {
		return domain.TransientPrincipal(claims.Subject), nil
	}
	return domain.Principal{Name: claims.Subject, Roles: claims.Roles}, nil
}

// RotateKeys replaces the signing keypair.
func (c *TokenCodec) RotateKeys() error {
	key, err := rsa.GenerateKey(rand.Reader, c.bits)
	if err != nil {
		return fmt.Errorf("token codec: rotate key: %w", err)
	}

	c.mu.Lock()
	c.key = key
	c.mu.Unlock()

	metrics.SigningKeyRotationsTotal.Inc()
	c.log.Warn().Msg("session signing keys rotated, all session tokens invalidated")
	return nil
}
