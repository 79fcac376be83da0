package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/villarosa/admin-api/internal/http/response"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/security"
	"github.com/villarosa/admin-api/internal/service"
)

type AuthHandler struct {
	auth          *service.AuthService
	secureCookies bool
}

func NewAuthHandler(auth *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookies: secureCookies}
}

type verifyRequest struct {
	Token string `json:"token"`
}

// Verify exchanges an upstream credential for the admin session cookie
// pair. Non-admin identities are refused before any cookie is written.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, r, "request body must be JSON", nil)
		return
	}
	res, err := h.auth.VerifyLogin(r.Context(), req.Token)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	security.SetSessionCookies(w, res.SessionToken, int(res.TTL.Seconds()), h.secureCookies)
	observability.Audit(r, "auth.login", "subject", res.SubjectID)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"subject_id":     res.SubjectID,
		"email":          res.Email,
		"email_verified": res.EmailVerified,
		"is_admin":       true,
	})
}

// Status probes the current session. Any failure clears the cookie pair
// so client state cannot outlive server-side validity.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	raw := security.GetCookie(r, security.SessionCookieName)
	status, err := h.auth.Status(r.Context(), raw)
	if err != nil {
		security.ClearSessionCookies(w, h.secureCookies)
		response.Unauthorized(w, r, "no active session")
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"authenticated": true,
		"subject_id":    status.SubjectID,
		"email":         status.Email,
		"is_admin":      status.IsAdmin,
		"permissions":   status.Permissions,
		"expires_at":    status.ExpiresAt,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	security.ClearSessionCookies(w, h.secureCookies)
	observability.Audit(r, "auth.logout")
	response.JSON(w, r, http.StatusOK, map[string]any{"logged_out": true})
}

type bootstrapRequest struct {
	SetupKey string `json:"setup_key"`
	Email    string `json:"email"`
}

func (h *AuthHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, r, "request body must be JSON", nil)
		return
	}
	subject, err := h.auth.Bootstrap(r.Context(), req.SetupKey, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapDisabled):
			response.NotFound(w, r, "")
		case errors.Is(err, service.ErrSetupKeyInvalid):
			response.Forbidden(w, r, "invalid setup key")
		default:
			writeServiceError(w, r, err)
		}
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]string{"subject_id": subject})
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredential):
		response.Unauthorized(w, r, "invalid credential")
	case errors.Is(err, service.ErrNotAdmin):
		response.Forbidden(w, r, "")
	default:
		writeServiceError(w, r, err)
	}
}
