package service

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

// fakeClock is a manually advanced time source shared by the service tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(3000, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCodec(t *testing.T, clock *fakeClock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec(WithCodecClock(clock.Now))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	return codec
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	cases := []domain.Principal{
		{Name: "fry", Roles: []string{domain.RoleUser}},
		{Name: "hermes", Roles: []string{domain.RoleAdmin}},
		domain.TransientPrincipal("workspace-link-token"),
	}
	for _, p := range cases {
		token, expiresAt, err := codec.Issue(p, nil)
		if err != nil {
			t.Fatalf("Issue(%s): %v", p.Name, err)
		}
		if !expiresAt.Equal(clock.Now().Add(defaultSessionTTL)) {
			t.Fatalf("expected default ttl expiry, got %s", expiresAt)
		}

		got, err := codec.Validate(token)
		if err != nil {
			t.Fatalf("Validate(%s): %v", p.Name, err)
		}
		if got.Name != p.Name || got.Transient != p.Transient || strings.Join(got.Roles, ",") != strings.Join(p.Roles, ",") {
			t.Fatalf("round trip mismatch: want %+v, got %+v", p, got)
		}
	}
}

func TestTokenCodec_ValidTillScenario(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	validTill := clock.Now().Add(10 * time.Minute)
	token, _, err := codec.Issue(domain.Principal{Name: "Fry", Roles: []string{domain.RoleUser}}, &validTill)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.Advance(5 * time.Minute)
	if p, err := codec.Validate(token); err != nil || p.Name != "Fry" {
		t.Fatalf("expected valid token at +5m, got %+v, %v", p, err)
	}

	clock.Advance(6 * time.Minute)
	_, err = codec.Validate(token)
	if !errors.Is(err, domain.ErrTokenExpired) || !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected expired token at +11m, got %v", err)
	}
}

func TestTokenCodec_RotateKeysInvalidatesTokens(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	before, _, err := codec.Issue(domain.Principal{Name: "amy", Roles: []string{domain.RoleUser}}, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if err := codec.RotateKeys(); err != nil {
		t.Fatalf("RotateKeys: %v", err)
	}

	_, err = codec.Validate(before)
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after rotation, got %v", err)
	}
	if errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("rotation must not be reported as expiry")
	}

	after, _, err := codec.Issue(domain.Principal{Name: "amy", Roles: []string{domain.RoleUser}}, nil)
	if err != nil {
		t.Fatalf("Issue after rotation: %v", err)
	}
	if _, err := codec.Validate(after); err != nil {
		t.Fatalf("token issued after rotation must validate: %v", err)
	}
}

func TestTokenCodec_RejectsMalformedAndForeignTokens(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	if _, err := codec.Validate("not.a.jwt"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "zoidberg",
		"exp": clock.Now().Add(time.Hour).Unix(),
	})
	signed, err := hs.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := codec.Validate(signed); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for HS256 token, got %v", err)
	}

	other := newTestCodec(t, clock)
	foreign, _, err := other.Issue(domain.Principal{Name: "nibbler"}, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := codec.Validate(foreign); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for token signed by another key, got %v", err)
	}
}

func TestTokenCodec_CustomTTL(t *testing.T) {
	clock := newFakeClock()
	codec, err := NewTokenCodec(WithCodecClock(clock.Now), WithSessionTTL(time.Minute))
	if err != nil {
		t.Fatalf("NewTokenCodec: %v", err)
	}
	token, _, err := codec.Issue(domain.Principal{Name: "kif"}, nil)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	clock.Advance(time.Minute)
	if _, err := codec.Validate(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("token must be invalid exactly at expiry, got %v", err)
	}
}

func TestTokenCodec_ReportedExpiryMatchesToken(t *testing.T) {
	clock := newFakeClock()
	codec := newTestCodec(t, clock)

	validTill := clock.Now().Add(10*time.Minute + 750*time.Millisecond)
	token, expiresAt, err := codec.Issue(domain.Principal{Name: "bender"}, &validTill)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	want := clock.Now().Add(10 * time.Minute)
	if !expiresAt.Equal(want) {
		t.Fatalf("expected expiry truncated to %s, got %s", want, expiresAt)
	}

	clock.Advance(expiresAt.Sub(clock.Now()))
	if _, err := codec.Validate(token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("token must be expired at the reported expiry, got %v", err)
	}
}
