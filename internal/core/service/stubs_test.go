package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

type stubUserRepo struct {
	mu          sync.Mutex
	users       map[string]*domain.User
	lockoutErr  error
	lockoutSets int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	copy := cloneUser(user)
	if copy.ID == "" {
		copy.ID = "id-" + user.Username
	}
	r.users[copy.Username] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[username]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) UpdateLockout(_ context.Context, userID string, state domain.LockoutState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lockoutErr != nil {
		return r.lockoutErr
	}
	for _, u := range r.users {
		if u.ID == userID {
			u.Lockout = state
			r.lockoutSets++
			return nil
		}
	}
	return domain.ErrUserNotFound
}

func (r *stubUserRepo) lockout(username string) domain.LockoutState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[username].Lockout
}

type stubRenewalRepo struct {
	mu     sync.Mutex
	tokens map[string]*domain.RenewalToken
}

func newStubRenewalRepo() *stubRenewalRepo {
	return &stubRenewalRepo{tokens: make(map[string]*domain.RenewalToken)}
}

func (r *stubRenewalRepo) Create(_ context.Context, t *domain.RenewalToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *t
	r.tokens[t.Token] = &copy
	return nil
}

func (r *stubRenewalRepo) Find(_ context.Context, token string) (*domain.RenewalToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	copy := *t
	return &copy, nil
}

func (r *stubRenewalRepo) UpdateExpiration(_ context.Context, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok {
		return domain.ErrInvalidToken
	}
	t.ExpiresAt = expiresAt
	return nil
}

func (r *stubRenewalRepo) Delete(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}

func (r *stubRenewalRepo) DeleteByOwner(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.OwnerID == ownerID {
			delete(r.tokens, k)
		}
	}
	return nil
}

func (r *stubRenewalRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, t := range r.tokens {
		if t.ExpiresAt.Before(before) {
			delete(r.tokens, k)
			n++
		}
	}
	return n, nil
}

// plainHasher stores passwords as "hash:<password>" and counts comparisons.
type plainHasher struct {
	mu       sync.Mutex
	compared int
}

func (h *plainHasher) Hash(password string) (string, error) {
	return "hash:" + password, nil
}

func (h *plainHasher) Matches(password, hash string) bool {
	h.mu.Lock()
	h.compared++
	h.mu.Unlock()
	return strings.TrimPrefix(hash, "hash:") == password
}

func (h *plainHasher) comparisons() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.compared
}

// directPipeline authenticates synchronously through a verifier.
type directPipeline struct {
	verifier *CredentialVerifier
}

func (p directPipeline) Authenticate(ctx context.Context, username, password string) (domain.Principal, error) {
	return p.verifier.Verify(ctx, username, password)
}
