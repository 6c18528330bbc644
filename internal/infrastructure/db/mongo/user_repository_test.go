package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ledgerly/accounting-api/internal/core/domain"
)

func TestUserMapping_RoundTrip(t *testing.T) {
	until := time.Date(2031, 3, 4, 5, 6, 7, 8_000_000, time.UTC)
	in := &domain.User{
		ID:           primitive.NewObjectID().Hex(),
		Username:     "leela",
		Email:        "leela@planetexpress.com",
		PasswordHash: "$2a$10$hash",
		IsAdmin:      true,
		Lockout:      domain.LockoutState{FailedAttempts: 3, LockedUntil: &until},
		CreatedAt:    time.Unix(1_700_000_000, 0).UTC(),
		UpdatedAt:    time.Unix(1_700_000_500, 0).UTC(),
	}

	raw, err := bson.Marshal(fromDomain(in))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded mongoUser
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out := toDomain(decoded)

	if out.ID != in.ID || out.Username != in.Username || out.Email != in.Email || !out.IsAdmin {
		t.Fatalf("identity fields lost: %+v", out)
	}
	if out.Lockout.FailedAttempts != 3 || out.Lockout.LockedUntil == nil || !out.Lockout.LockedUntil.Equal(until) {
		t.Fatalf("lockout state lost: %+v", out.Lockout)
	}
	if !out.CreatedAt.Equal(in.CreatedAt) || !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Fatalf("timestamps lost: %+v", out)
	}
}

func TestUserMapping_CleanLockoutOmitsExpiry(t *testing.T) {
	raw, err := bson.Marshal(lockoutFromDomain(domain.LockoutState{}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := doc["locked_until"]; ok {
		t.Fatalf("locked_until must be omitted for a clean state: %v", doc)
	}

	u := toDomain(mongoUser{ID: primitive.NewObjectID()})
	if u.Lockout.LockedUntil != nil || !u.CreatedAt.IsZero() {
		t.Fatalf("zero document must map to zero values: %+v", u)
	}
}
