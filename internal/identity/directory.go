// Package identity wraps the managed identity platform's administrative
// surface behind a narrow capability interface. The rest of the service never
// talks to the platform directly, which keeps authorization code testable and
// the platform swappable.
package identity

import (
	"context"
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("identity user not found")

// User is the identity-provider view of an account. CustomClaims carries the
// platform's claim map; the "admin" claim is one of the two admin sources the
// admin directory reconciles.
type User struct {
	SubjectID     string         `json:"subject_id"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"email_verified"`
	Disabled      bool           `json:"disabled"`
	CustomClaims  map[string]any `json:"custom_claims,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AdminClaim reports whether the user's custom claims mark it as admin.
func (u *User) AdminClaim() bool {
	if u == nil || u.CustomClaims == nil {
		return false
	}
	v, ok := u.CustomClaims["admin"].(bool)
	return ok && v
}

// UserPatch is a partial update; nil fields are left untouched.
type UserPatch struct {
	Email         *string
	EmailVerified *bool
	Disabled      *bool
}

type Directory interface {
	GetUser(ctx context.Context, subjectID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateUser(ctx context.Context, subjectID string, patch UserPatch) (*User, error)
	DeleteUser(ctx context.Context, subjectID string) error
	SetCustomClaims(ctx context.Context, subjectID string, claims map[string]any) error
}
