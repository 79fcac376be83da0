package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/villarosa/admin-api/internal/identity"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/repository"
	"github.com/villarosa/admin-api/internal/security"
)

// maxCredentialLen bounds the login credential before any parsing happens.
const maxCredentialLen = 4096

// LoginResult is the outcome of a successful credential exchange: a fresh
// session token plus the identity details echoed back to the client.
type LoginResult struct {
	SessionToken  string
	SubjectID     string
	Email         string
	EmailVerified bool
	TTL           time.Duration
}

// SessionStatus is the auth probe result for an already-issued session.
type SessionStatus struct {
	SubjectID   string
	Email       string
	IsAdmin     bool
	Permissions []string
	ExpiresAt   time.Time
}

type AuthService struct {
	tokens    *security.TokenManager
	verifier  *security.TokenManager
	directory *AdminDirectory
	identity  identity.Directory
	admins    repository.AdminRepository
	setupKey  *security.SetupKeyGuard
}

// NewAuthService wires the login path. verifier checks the upstream
// credential presented at login; tokens signs the session credential the
// service itself issues. The two may share a manager in single-issuer
// deployments.
func NewAuthService(
	verifier *security.TokenManager,
	tokens *security.TokenManager,
	directory *AdminDirectory,
	dir identity.Directory,
	admins repository.AdminRepository,
	setupKey *security.SetupKeyGuard,
) *AuthService {
	return &AuthService{
		tokens:    tokens,
		verifier:  verifier,
		directory: directory,
		identity:  dir,
		admins:    admins,
		setupKey:  setupKey,
	}
}

func (s *AuthService) SessionTTL() time.Duration { return s.tokens.TTL() }

// VerifyLogin exchanges an upstream credential for an admin session.
// Ordering is fixed: shape validation, token verification, admin check,
// record upsert, session issuance. A valid non-admin identity never gets
// a session.
func (s *AuthService) VerifyLogin(ctx context.Context, rawCredential string) (*LoginResult, error) {
	rawCredential = strings.TrimSpace(rawCredential)
	if rawCredential == "" || len(rawCredential) > maxCredentialLen {
		observability.RecordAuthLogin(ctx, "validation_error")
		return nil, NewValidationError(map[string]string{"token": "credential is required"})
	}

	id, err := s.verifier.Verify(rawCredential)
	if err != nil {
		observability.RecordAuthLogin(ctx, "invalid_credential")
		return nil, ErrInvalidCredential
	}

	isAdmin, err := s.directory.IsAdmin(ctx, id.SubjectID)
	if err != nil {
		slog.ErrorContext(ctx, "admin lookup failed during login", "subject", id.SubjectID, "error", err)
		observability.RecordAuthLogin(ctx, "directory_error")
		return nil, ErrNotAdmin
	}
	if !isAdmin {
		observability.RecordAuthLogin(ctx, "forbidden")
		return nil, ErrNotAdmin
	}

	if _, err := s.admins.UpsertLogin(ctx, id.SubjectID, id.Email, time.Now().UTC()); err != nil {
		slog.ErrorContext(ctx, "admin record upsert failed", "subject", id.SubjectID, "error", err)
		observability.RecordAuthLogin(ctx, "error")
		return nil, err
	}

	session, err := s.tokens.Sign(id.SubjectID, id.Email, id.EmailVerified)
	if err != nil {
		observability.RecordAuthLogin(ctx, "error")
		return nil, err
	}
	observability.RecordAuthLogin(ctx, "success")
	return &LoginResult{
		SessionToken:  session,
		SubjectID:     id.SubjectID,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		TTL:           s.tokens.TTL(),
	}, nil
}

// Status validates the session credential and re-checks admin status.
// Any failure is ErrInvalidCredential or ErrNotAdmin; the caller clears
// the cookie pair on either.
func (s *AuthService) Status(ctx context.Context, rawSession string) (*SessionStatus, error) {
	if rawSession == "" {
		return nil, ErrInvalidCredential
	}
	id, err := s.tokens.Verify(rawSession)
	if err != nil {
		return nil, ErrInvalidCredential
	}
	isAdmin, err := s.directory.IsAdmin(ctx, id.SubjectID)
	if err != nil || !isAdmin {
		return nil, ErrNotAdmin
	}
	status := &SessionStatus{
		SubjectID: id.SubjectID,
		Email:     id.Email,
		IsAdmin:   true,
		ExpiresAt: id.ExpiresAt,
	}
	if rec, err := s.admins.Find(ctx, id.SubjectID); err == nil {
		status.Permissions = EffectivePermissions(rec)
	}
	return status, nil
}

// Bootstrap provisions the first administrator, gated by the deployment's
// setup key. It is idempotent for an existing email.
func (s *AuthService) Bootstrap(ctx context.Context, setupKey, email string) (string, error) {
	if s.setupKey == nil || !s.setupKey.Enabled() {
		return "", ErrBootstrapDisabled
	}
	if !s.setupKey.Verify(setupKey) {
		observability.RecordAuthLogin(ctx, "bootstrap_denied")
		return "", ErrSetupKeyInvalid
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", NewValidationError(map[string]string{"email": "a valid email is required"})
	}

	user, err := s.identity.GetUserByEmail(ctx, email)
	if errors.Is(err, identity.ErrUserNotFound) {
		user = &identity.User{
			SubjectID:     uuid.NewString(),
			Email:         email,
			EmailVerified: true,
		}
		if err := s.identity.CreateUser(ctx, user); err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	if err := s.identity.SetCustomClaims(ctx, user.SubjectID, map[string]any{"admin": true}); err != nil {
		return "", err
	}
	if _, err := s.admins.UpsertLogin(ctx, user.SubjectID, email, time.Now().UTC()); err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "audit", "event", "admin.bootstrap", "subject", user.SubjectID, "email", email)
	return user.SubjectID, nil
}
