package credit

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shelfwise/shelfwise-api/internal/middleware"
	"github.com/shelfwise/shelfwise-api/internal/pkg/response"
	"github.com/shelfwise/shelfwise-api/internal/pkg/validator"
)

// CostResolver maps an operation type to its credit cost. Implemented by the
// pricing service.
type CostResolver interface {
	CostOf(ctx context.Context, operationType string) (int, error)
}

// Handler handles credit HTTP requests
type Handler struct {
	service Service
	pricing CostResolver
}

// NewHandler creates credit handler
func NewHandler(service Service, pricing CostResolver) *Handler {
	return &Handler{service: service, pricing: pricing}
}

// Routes returns authenticated credit routes
func (h *Handler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Get("/balance", h.GetBalance)
	r.Get("/transactions", h.ListTransactions)
	r.Get("/check/{operationType}", h.CheckOperation)
	r.Post("/consume", h.Consume)

	return r
}

// BalanceResponse is the balance payload
type BalanceResponse struct {
	FreeCredits      int `json:"free_credits"`
	PurchasedCredits int `json:"purchased_credits"`
	TotalCredits     int `json:"total_credits"`
}

// TransactionResponse is a single ledger row payload
type TransactionResponse struct {
	ID          uuid.UUID `json:"id"`
	Amount      int       `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	PackID      *string   `json:"pack_id,omitempty"`
	IsRefunded  bool      `json:"is_refunded"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionResponseFromEntity maps a ledger row to its payload
func TransactionResponseFromEntity(t *Transaction) *TransactionResponse {
	resp := &TransactionResponse{
		ID:          t.ID,
		Amount:      t.Amount,
		Type:        string(t.TxType),
		Description: t.Description,
		IsRefunded:  t.IsRefunded,
		CreatedAt:   t.CreatedAt,
	}
	if t.PackID.Valid {
		id := t.PackID.UUID.String()
		resp.PackID = &id
	}
	return resp
}

// GetBalance handles GET /credits/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, BalanceResponse{
		FreeCredits:      balance.Free,
		PurchasedCredits: balance.Purchased,
		TotalCredits:     balance.Total,
	})
}

// ListTransactions handles GET /credits/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	limit := parseQueryInt(r, "limit", 20)
	offset := parseQueryInt(r, "offset", 0)

	transactions, err := h.service.ListTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*TransactionResponse, len(transactions))
	for i := range transactions {
		items[i] = TransactionResponseFromEntity(&transactions[i])
	}

	response.WithMeta(w, items, response.Meta{
		Total:  len(items),
		Limit:  limit,
		Offset: offset,
	})
}

// CheckResponse tells a billable feature whether it can run
type CheckResponse struct {
	Allowed bool `json:"allowed"`
	Cost    int  `json:"cost"`
}

// CheckOperation handles GET /credits/check/{operationType}. Billable features
// call this before doing expensive work.
func (h *Handler) CheckOperation(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	operationType := chi.URLParam(r, "operationType")

	cost, err := h.pricing.CostOf(r.Context(), operationType)
	if err != nil {
		response.InternalError(w)
		return
	}

	allowed, err := h.service.HasCredits(r.Context(), accountID, cost)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, CheckResponse{Allowed: allowed, Cost: cost})
}

// ConsumeRequest records a completed billable operation
type ConsumeRequest struct {
	OperationType string `json:"operation_type" validate:"required,operation_type"`
	Description   string `json:"description" validate:"required,min=3,max=255"`
}

// ConsumeResponse reports the deduction outcome
type ConsumeResponse struct {
	Deducted    bool                 `json:"deducted"`
	Bypassed    bool                 `json:"bypassed"`
	Cost        int                  `json:"cost"`
	Transaction *TransactionResponse `json:"transaction,omitempty"`
}

// Consume handles POST /credits/consume. Called after a billable operation
// ran; the cost comes from the pricing resolver, not the caller.
func (h *Handler) Consume(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	var req ConsumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	cost, err := h.pricing.CostOf(r.Context(), req.OperationType)
	if err != nil {
		response.InternalError(w)
		return
	}

	result, err := h.service.Deduct(r.Context(), accountID, req.Description, cost)
	if err != nil {
		response.InternalError(w)
		return
	}

	if !result.Deducted {
		response.PaymentRequired(w, result.Reason)
		return
	}

	resp := ConsumeResponse{Deducted: true, Bypassed: result.Bypassed, Cost: cost}
	if result.Transaction != nil {
		resp.Transaction = TransactionResponseFromEntity(result.Transaction)
	}

	response.OK(w, resp)
}

func parseQueryInt(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}
