package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/villarosa/admin-api/internal/domain"
	"github.com/villarosa/admin-api/internal/http/response"
	"github.com/villarosa/admin-api/internal/observability"
	"github.com/villarosa/admin-api/internal/service"
)

type PropertyHandler struct {
	properties *service.PropertyService
}

func NewPropertyHandler(properties *service.PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	props, err := h.properties.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"properties": props})
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.properties.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, p)
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.PropertyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.ValidationError(w, r, "request body must be JSON", nil)
		return
	}
	p, err := h.properties.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "properties.create", "property_id", p.ID)
	response.JSON(w, r, http.StatusCreated, p)
}

func (h *PropertyHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input service.PropertyInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.ValidationError(w, r, "request body must be JSON", nil)
		return
	}
	id := chi.URLParam(r, "id")
	p, err := h.properties.Update(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "properties.update", "property_id", id)
	response.JSON(w, r, http.StatusOK, p)
}

func (h *PropertyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.properties.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "properties.delete", "property_id", id)
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": true})
}

type bookingsRequest struct {
	Bookings []domain.BookedRange `json:"bookings"`
}

// ReplaceBookings swaps the property's booked-range list wholesale.
func (h *PropertyHandler) ReplaceBookings(w http.ResponseWriter, r *http.Request) {
	var req bookingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.ValidationError(w, r, "request body must be JSON", nil)
		return
	}
	id := chi.URLParam(r, "id")
	p, err := h.properties.ReplaceBookings(r.Context(), id, req.Bookings)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "properties.bookings.replace", "property_id", id, "count", len(req.Bookings))
	response.JSON(w, r, http.StatusOK, p)
}
