package pack

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-api/internal/pkg/response"
	"github.com/shelfwise/shelfwise-api/internal/pkg/validator"
)

// Handler handles credit pack HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates pack handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns public pack routes
func (h *Handler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Get("/", h.List)

	return r
}

// AdminRoutes returns admin pack routes; auth and role checks are applied by
// the caller.
func (h *Handler) AdminRoutes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListAll)
	r.Post("/", h.Create)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Deactivate)

	return r
}

// PackResponse is a credit pack payload
type PackResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Credits    int       `json:"credits"`
	PriceCents int       `json:"price_cents"`
	IsActive   bool      `json:"is_active"`
	SortOrder  int       `json:"sort_order"`
	BestValue  bool      `json:"best_value"`
}

func packResponses(packs []CreditPack) []PackResponse {
	var bestID uuid.UUID
	if len(packs) > 0 {
		bestID = RankByValue(packs)[0].ID
	}

	items := make([]PackResponse, len(packs))
	for i, p := range packs {
		items[i] = PackResponse{
			ID:         p.ID,
			Name:       p.Name,
			Credits:    p.Credits,
			PriceCents: p.PriceCents,
			IsActive:   p.IsActive,
			SortOrder:  p.SortOrder,
			BestValue:  p.ID == bestID,
		}
	}
	return items
}

// List handles GET /packs. ?sort=value returns best value first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var (
		packs []CreditPack
		err   error
	)

	if r.URL.Query().Get("sort") == "value" {
		packs, err = h.service.ListByValue(r.Context())
	} else {
		packs, err = h.service.ListActive(r.Context())
	}
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, packResponses(packs))
}

// ListAll handles GET /admin/packs
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	packs, err := h.service.ListAll(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, packResponses(packs))
}

// CreatePackRequest creates a new pack
type CreatePackRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Credits       int    `json:"credits" validate:"required,min=1"`
	PriceCents    int    `json:"price_cents" validate:"required,min=1"`
	StripePriceID string `json:"stripe_price_id"`
	SortOrder     int    `json:"sort_order"`
}

// Create handles POST /admin/packs
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := h.service.Create(r.Context(), req.Name, req.Credits, req.PriceCents, req.StripePriceID, req.SortOrder)
	if err != nil {
		if errors.Is(err, ErrInvalidPack) {
			response.BadRequest(w, err.Error())
			return
		}
		response.InternalError(w)
		return
	}

	response.Created(w, packResponses([]CreditPack{*p})[0])
}

// UpdatePackRequest is a partial pack update
type UpdatePackRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=2,max=100"`
	Credits       *int    `json:"credits" validate:"omitempty,min=1"`
	PriceCents    *int    `json:"price_cents" validate:"omitempty,min=1"`
	StripePriceID *string `json:"stripe_price_id"`
	IsActive      *bool   `json:"is_active"`
	SortOrder     *int    `json:"sort_order"`
}

// Update handles PATCH /admin/packs/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid pack ID")
		return
	}

	var req UpdatePackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := h.service.Update(r.Context(), id, UpdateFields{
		Name:          req.Name,
		Credits:       req.Credits,
		PriceCents:    req.PriceCents,
		StripePriceID: req.StripePriceID,
		IsActive:      req.IsActive,
		SortOrder:     req.SortOrder,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Credit pack not found")
		case errors.Is(err, ErrInvalidPack), errors.Is(err, ErrNoFields):
			response.BadRequest(w, err.Error())
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, packResponses([]CreditPack{*p})[0])
}

// Deactivate handles DELETE /admin/packs/{id}
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid pack ID")
		return
	}

	if err := h.service.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "Credit pack not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.NoContent(w)
}
