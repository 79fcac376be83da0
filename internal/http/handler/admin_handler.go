package handler

import (
	"net/http"

	"github.com/villarosa/admin-api/internal/http/response"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/service"
)

// AdminHandler hosts the operational endpoints behind the admin gate.
type AdminHandler struct {
	cleanup *service.CleanupService
}

func NewAdminHandler(cleanup *service.CleanupService) *AdminHandler {
	return &AdminHandler{cleanup: cleanup}
}

// CleanupImages triggers the orphaned-image sweep on demand.
func (h *AdminHandler) CleanupImages(w http.ResponseWriter, r *http.Request) {
	if h.cleanup == nil {
		response.NotFound(w, r, "image cleanup is not configured")
		return
	}
	report, err := h.cleanup.Run(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "images.cleanup", "deleted", report.Deleted, "failed", report.Failed)
	response.JSON(w, r, http.StatusOK, report)
}
