package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shelfwise/shelfwise-api/internal/domain/account"
	"github.com/shelfwise/shelfwise-api/internal/domain/credit"
	"github.com/shelfwise/shelfwise-api/internal/middleware"
	"github.com/shelfwise/shelfwise-api/internal/pkg/response"
	"github.com/shelfwise/shelfwise-api/internal/pkg/validator"
)

// Handler exposes admin account operations
type Handler struct {
	accounts *account.Service
	credits  credit.Service
}

// NewHandler creates admin handler
func NewHandler(accounts *account.Service, credits credit.Service) *Handler {
	return &Handler{accounts: accounts, credits: credits}
}

// Routes returns admin account routes; auth and the admin role check are
// applied by the caller.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.ProvisionAccount)
	r.Post("/{id}/credits/adjust", h.AdjustCredits)
	r.Get("/{id}/credits", h.GetBalance)
	r.Get("/{id}/transactions", h.ListTransactions)

	return r
}

// ProvisionAccountRequest creates a billing account for a tenant
type ProvisionAccountRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=member admin"`
}

// ProvisionAccount handles POST /admin/accounts
func (h *Handler) ProvisionAccount(w http.ResponseWriter, r *http.Request) {
	var req ProvisionAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	role := account.RoleMember
	if req.Role == "admin" {
		role = account.RoleAdmin
	}

	acct, err := h.accounts.Provision(r.Context(), req.Email, role)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrEmailTaken):
			response.Conflict(w, "Email already registered")
		case errors.Is(err, account.ErrInvalidEmail):
			response.BadRequest(w, "Invalid email")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, map[string]any{
		"id":                acct.ID,
		"email":             acct.Email,
		"role":              acct.Role,
		"free_credits":      acct.FreeCredits,
		"purchased_credits": acct.PurchasedCredits,
	})
}

// AdjustCreditsRequest grants credits to an account. Adjustments are
// grant-only; negative balances are never created from the admin panel.
type AdjustCreditsRequest struct {
	Amount int    `json:"amount" validate:"required,min=1"`
	Tier   string `json:"tier" validate:"required,credit_tier"`
	Reason string `json:"reason" validate:"required,min=3,max=255"`
}

// AdjustCredits handles POST /admin/accounts/{id}/credits/adjust
func (h *Handler) AdjustCredits(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid account ID")
		return
	}

	var req AdjustCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	txType := credit.TxTypeFreeGrant
	if req.Tier == "purchased" {
		txType = credit.TxTypePurchase
	}

	tx, err := h.credits.AddCredits(r.Context(), accountID, req.Amount, txType, req.Reason, credit.AddOptions{})
	if err != nil {
		switch {
		case errors.Is(err, credit.ErrAccountNotFound):
			response.NotFound(w, "Account not found")
		case errors.Is(err, credit.ErrInvalidAmount):
			response.BadRequest(w, "Amount must be positive")
		default:
			response.InternalError(w)
		}
		return
	}

	balance, err := h.credits.GetBalance(r.Context(), accountID)
	if err != nil {
		response.InternalError(w)
		return
	}

	log.Info().
		Str("admin_id", middleware.GetAccountID(r.Context()).String()).
		Str("account_id", accountID.String()).
		Int("amount", req.Amount).
		Str("tier", req.Tier).
		Msg("Admin credit adjustment")

	response.OK(w, map[string]any{
		"transaction_id":    tx.ID,
		"free_credits":      balance.Free,
		"purchased_credits": balance.Purchased,
		"total_credits":     balance.Total,
	})
}

// GetBalance handles GET /admin/accounts/{id}/credits
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid account ID")
		return
	}

	balance, err := h.credits.GetBalance(r.Context(), accountID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]int{
		"free_credits":      balance.Free,
		"purchased_credits": balance.Purchased,
		"total_credits":     balance.Total,
	})
}

// ListTransactions handles GET /admin/accounts/{id}/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid account ID")
		return
	}

	limit := parseQueryInt(r, "limit", 50)
	if limit < 1 || limit > 100 {
		limit = 50
	}
	offset := parseQueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	txs, err := h.credits.ListTransactions(r.Context(), accountID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	items := make([]*credit.TransactionResponse, len(txs))
	for i := range txs {
		items[i] = credit.TransactionResponseFromEntity(&txs[i])
	}

	response.WithMeta(w, items, response.Meta{Limit: limit, Offset: offset, Total: len(items)})
}

func parseQueryInt(r *http.Request, key string, defaultValue int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}
