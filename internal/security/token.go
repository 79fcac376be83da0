package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the verified result of a session credential. It carries only
// what the token itself proves; admin status is looked up separately on every
// request and never trusted from the token.
type Identity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	ExpiresAt     time.Time
}

var ErrInvalidToken = errors.New("invalid session token")

type sessionClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies the bearer credential carried in the
// session cookie. Verification fails closed: any parse, signature, audience,
// issuer, or expiry problem yields ErrInvalidToken.
type TokenManager struct {
	issuer   string
	audience string
	secret   []byte
	ttl      time.Duration
}

func NewTokenManager(issuer, audience, secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{issuer: issuer, audience: audience, secret: []byte(secret), ttl: ttl}
}

// TTL is the fixed session lifetime, mirroring the upstream token lifetime.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

func (m *TokenManager) Sign(subjectID, email string, emailVerified bool) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email:         email,
		EmailVerified: emailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   subjectID,
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) Verify(raw string) (*Identity, error) {
	claims := &sessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing algorithm")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	return &Identity{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		ExpiresAt:     expires,
	}, nil
}
