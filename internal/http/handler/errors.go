package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/villarosa/admin-api/internal/http/response"
	"github.com/villarosa/admin-api/internal/identity"
	"github.com/villarosa/admin-api/internal/repository"
	"github.com/villarosa/admin-api/internal/service"
)

// writeServiceError maps service-layer errors onto the response
// envelope. Unknown errors become a generic 500; detail goes to the log
// only.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := service.AsValidation(err); ok {
		response.ValidationError(w, r, "validation failed", ve.Fields)
		return
	}
	switch {
	case errors.Is(err, service.ErrSelfProtection):
		response.ValidationError(w, r, "cannot modify own account", nil)
	case errors.Is(err, service.ErrNoValidTargets):
		response.ValidationError(w, r, "no valid deletion targets", nil)
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, repository.ErrAdminRecordNotFound),
		errors.Is(err, repository.ErrPropertyNotFound),
		errors.Is(err, repository.ErrContactMessageNotFound):
		response.NotFound(w, r, "")
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		response.Internal(w, r)
	}
}
