package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shelfwise/shelfwise-api/internal/middleware"
	"github.com/shelfwise/shelfwise-api/internal/pkg/payment"
	"github.com/shelfwise/shelfwise-api/internal/pkg/response"
)

// Stripe recommends capping webhook bodies to guard against oversized payloads.
const maxWebhookBody = 65536

// Handler handles billing HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates billing handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns authenticated billing routes
func (h *Handler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth)

	r.Post("/checkout/{packID}", h.StartCheckout)
	r.Post("/portal", h.StartPortal)
	r.Post("/refunds/{transactionID}", h.RequestRefund)

	return r
}

// StartCheckout handles POST /billing/checkout/{packID}
func (h *Handler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	packID, err := uuid.Parse(chi.URLParam(r, "packID"))
	if err != nil {
		response.BadRequest(w, "Invalid pack ID")
		return
	}

	sess, err := h.service.StartCheckout(r.Context(), accountID, packID)
	if err != nil {
		switch {
		case errors.Is(err, ErrPackNotFound):
			response.NotFound(w, "Credit pack not found")
		case errors.Is(err, ErrPackInactive):
			response.BadRequest(w, "Credit pack is not available")
		case errors.Is(err, ErrAccountNotFound):
			response.NotFound(w, "Account not found")
		case errors.Is(err, payment.ErrGatewayUnavailable):
			response.BadGateway(w, "Payment provider unavailable")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, sess)
}

// StartPortal handles POST /billing/portal
func (h *Handler) StartPortal(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	url, err := h.service.StartPortal(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoCustomer):
			response.BadRequest(w, "No billing profile yet, make a purchase first")
		case errors.Is(err, ErrAccountNotFound):
			response.NotFound(w, "Account not found")
		case errors.Is(err, payment.ErrGatewayUnavailable):
			response.BadGateway(w, "Payment provider unavailable")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"url": url})
}

// RefundResponse reports a refund attempt outcome
type RefundResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	RefundedAmount  int    `json:"refunded_amount"`
	GatewayRefunded bool   `json:"gateway_refunded"`
}

// RequestRefund handles POST /billing/refunds/{transactionID}
func (h *Handler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		response.BadRequest(w, "Invalid transaction ID")
		return
	}

	result, err := h.service.RequestRefund(r.Context(), accountID, transactionID)
	if err != nil {
		if errors.Is(err, ErrGatewayRefund) {
			// Credits are already restored; surface the partial failure.
			response.OK(w, RefundResponse{
				Success:         result.Success,
				Message:         "Credits reversed, payment refund pending",
				RefundedAmount:  result.RefundedAmount,
				GatewayRefunded: false,
			})
			return
		}
		response.InternalError(w)
		return
	}

	if !result.Success {
		response.BadRequest(w, result.Message)
		return
	}

	response.OK(w, RefundResponse{
		Success:         true,
		Message:         result.Message,
		RefundedAmount:  result.RefundedAmount,
		GatewayRefunded: true,
	})
}

// WebhookHandler handles POST /webhooks/stripe. It is mounted outside the
// authenticated router since Stripe signs requests instead.
func (h *Handler) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		response.BadRequest(w, "Failed to read request body")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			response.BadRequest(w, "Invalid signature")
			return
		}
		log.Error().Err(err).Msg("Webhook processing failed")
		// Non-2xx makes Stripe retry the delivery later.
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"received": "true"})
}
