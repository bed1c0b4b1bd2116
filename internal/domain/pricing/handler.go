package pricing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-api/internal/pkg/response"
	"github.com/shelfwise/shelfwise-api/internal/pkg/validator"
)

// Handler handles admin pricing HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates pricing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// AdminRoutes returns admin pricing routes; auth and role checks are applied
// by the caller.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Patch("/{id}", h.Update)

	return r
}

// UpdatePricingRequest is a partial pricing update
type UpdatePricingRequest struct {
	CreditsPerOperation *int  `json:"credits_per_operation" validate:"omitempty,min=1,max=100"`
	IsActive            *bool `json:"is_active"`
}

// EntryResponse is a pricing entry payload
type EntryResponse struct {
	ID                  uuid.UUID `json:"id"`
	OperationType       string    `json:"operation_type"`
	CreditsPerOperation int       `json:"credits_per_operation"`
	IsActive            bool      `json:"is_active"`
}

// List handles GET /admin/pricing
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = EntryResponse{
			ID:                  e.ID,
			OperationType:       e.OperationType,
			CreditsPerOperation: e.CreditsPerOperation,
			IsActive:            e.IsActive,
		}
	}

	response.OK(w, items)
}

// Update handles PATCH /admin/pricing/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid pricing entry ID")
		return
	}

	var req UpdatePricingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	entry, err := h.service.UpdatePricing(r.Context(), id, UpdateFields{
		CreditsPerOperation: req.CreditsPerOperation,
		IsActive:            req.IsActive,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Pricing entry not found")
		case errors.Is(err, ErrOutOfRange), errors.Is(err, ErrNoFields):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, EntryResponse{
		ID:                  entry.ID,
		OperationType:       entry.OperationType,
		CreditsPerOperation: entry.CreditsPerOperation,
		IsActive:            entry.IsActive,
	})
}
