package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "unit-test-secret-at-least-32-bytes"

func newManager() *TokenManager {
	return NewTokenManager("villarosa-admin", "villarosa-site", testSecret, time.Hour)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	m := newManager()

	raw, err := m.Sign("subject-1", "owner@example.com", true)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	id, err := m.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.SubjectID != "subject-1" || id.Email != "owner@example.com" || !id.EmailVerified {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if id.ExpiresAt.Before(time.Now().Add(55 * time.Minute)) {
		t.Fatalf("expiry too soon: %v", id.ExpiresAt)
	}
}

func TestVerifyRejections(t *testing.T) {
	m := newManager()

	cases := []struct {
		name string
		raw  func(t *testing.T) string
	}{
		{"garbage", func(t *testing.T) string { return "not-a-token" }},
		{"empty", func(t *testing.T) string { return "" }},
		{"wrong secret", func(t *testing.T) string {
			other := NewTokenManager("villarosa-admin", "villarosa-site", "completely-different-secret-32-bytes", time.Hour)
			raw, err := other.Sign("subject-1", "a@b.com", true)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return raw
		}},
		{"wrong issuer", func(t *testing.T) string {
			other := NewTokenManager("someone-else", "villarosa-site", testSecret, time.Hour)
			raw, err := other.Sign("subject-1", "a@b.com", true)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return raw
		}},
		{"wrong audience", func(t *testing.T) string {
			other := NewTokenManager("villarosa-admin", "another-site", testSecret, time.Hour)
			raw, err := other.Sign("subject-1", "a@b.com", true)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return raw
		}},
		{"expired", func(t *testing.T) string {
			other := NewTokenManager("villarosa-admin", "villarosa-site", testSecret, -time.Minute)
			raw, err := other.Sign("subject-1", "a@b.com", true)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return raw
		}},
		{"empty subject", func(t *testing.T) string {
			raw, err := m.Sign("", "a@b.com", true)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return raw
		}},
		{"alg none", func(t *testing.T) string {
			tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
				Issuer:    "villarosa-admin",
				Subject:   "subject-1",
				Audience:  []string{"villarosa-site"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			})
			raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			return raw
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.Verify(tc.raw(t)); err != ErrInvalidToken {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	m := newManager()
	raw, err := m.Sign("subject-1", "a@b.com", true)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %d parts", len(parts))
	}
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	if _, err := m.Verify(tampered); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func FuzzVerify(f *testing.F) {
	m := newManager()
	seed, _ := m.Sign("subject-1", "a@b.com", true)
	f.Add(seed)
	f.Add("")
	f.Add("a.b.c")
	f.Fuzz(func(t *testing.T, raw string) {
		id, err := m.Verify(raw)
		if err == nil && id.SubjectID == "" {
			t.Fatal("verification must never succeed without a subject")
		}
	})
}
