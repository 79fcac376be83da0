package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/villarosa/admin-api/internal/http/response"
	"github.com/villarosa/admin-api/internal/service"
)

type ContactHandler struct {
	contact *service.ContactService
}

func NewContactHandler(contact *service.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// Submit is the public contact-form endpoint; throttling happens in the
// route's rate-limit middleware.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var sub service.ContactSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		response.ValidationError(w, r, "request body must be JSON", nil)
		return
	}
	msg, err := h.contact.Submit(r.Context(), sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, map[string]string{"id": msg.ID})
}

func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	result, err := h.contact.ListPaged(r.Context(), page, pageSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}
