package tokenhash

import "testing"

func TestSum(t *testing.T) {
	a := Sum("owner.secret")
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	if a != Sum("owner.secret") {
		t.Fatalf("digest must be deterministic")
	}
	if a == Sum("owner.secret2") {
		t.Fatalf("different tokens must not collide")
	}
	if a == "owner.secret" {
		t.Fatalf("digest must not echo the token")
	}
}
