package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/villarosa/admin-api/internal/http/middleware"
	"github.com/villarosa/admin-api/internal/http/response"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"users": users})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

type userUpdateRequest struct {
	Email    *string `json:"email"`
	Disabled *bool   `json:"disabled"`
	Admin    *bool   `json:"admin"`
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r, "")
		return
	}
	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, r, "request body must be JSON", nil)
		return
	}
	targetID := chi.URLParam(r, "id")
	user, err := h.users.Update(r.Context(), caller.SubjectID, targetID, service.UserUpdate{
		Email:    req.Email,
		Disabled: req.Disabled,
		Admin:    req.Admin,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "users.update", "caller", caller.SubjectID, "target", targetID)
	response.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r, "")
		return
	}
	targetID := chi.URLParam(r, "id")
	if err := h.users.Delete(r.Context(), caller.SubjectID, targetID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "users.delete", "caller", caller.SubjectID, "target", targetID)
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

type bulkDeleteRequest struct {
	SubjectIDs []string `json:"subject_ids"`
}

// BulkDelete always answers 200 with a per-target report; partial
// failures are flagged inside the report, never masked as success.
func (h *UserHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, r, "")
		return
	}
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, r, "request body must be JSON", nil)
		return
	}
	report, err := h.users.BulkDelete(r.Context(), caller.SubjectID, req.SubjectIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "users.bulk_delete",
		"caller", caller.SubjectID,
		"requested", report.Requested,
		"deleted", report.Deleted,
		"partial", report.Partial,
	)
	response.JSON(w, r, http.StatusOK, report)
}
