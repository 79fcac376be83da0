package security

import "testing"

func TestSetupKeyGuard(t *testing.T) {
	hash, err := HashSetupKey("bootstrap-me")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	g := NewSetupKeyGuard(hash)

	if !g.Enabled() {
		t.Fatal("guard with hash should be enabled")
	}
	if !g.Verify("bootstrap-me") {
		t.Fatal("correct key should verify")
	}
	if g.Verify("wrong-key") {
		t.Fatal("wrong key must not verify")
	}
	if g.Verify("") {
		t.Fatal("empty key must not verify")
	}
}

func TestSetupKeyGuardDisabled(t *testing.T) {
	g := NewSetupKeyGuard("")
	if g.Enabled() {
		t.Fatal("guard without hash should be disabled")
	}
	if g.Verify("anything") {
		t.Fatal("disabled guard must reject every key")
	}
}
