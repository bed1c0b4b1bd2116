package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v74"

	"github.com/shelfwise/shelfwise-api/internal/domain/credit"
	"github.com/shelfwise/shelfwise-api/internal/middleware"
	"github.com/shelfwise/shelfwise-api/internal/pkg/payment"
)

// stubAuth injects an authenticated account into the request context the way
// the JWT middleware would.
func stubAuth(accountID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.AccountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestHandler(credits *MockCreditService, gateway *MockGateway) *Handler {
	return NewHandler(NewService(new(MockAccountStore), new(MockPackStore), credits, gateway, "https://app.test"))
}

func TestHandler_RequestRefund(t *testing.T) {
	accountID := uuid.New()
	txnID := uuid.New()

	refundRow := &credit.Transaction{
		ID:                    uuid.New(),
		AccountID:             accountID,
		Amount:                -150,
		TxType:                credit.TxTypeRefund,
		StripePaymentIntentID: sql.NullString{String: "pi_test_1", Valid: true},
	}

	doRefund := func(t *testing.T, h *Handler) (*httptest.ResponseRecorder, RefundResponse) {
		t.Helper()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/refunds/"+txnID.String(), nil)
		h.Routes(stubAuth(accountID)).ServeHTTP(rec, req)

		var envelope struct {
			Success bool           `json:"success"`
			Data    RefundResponse `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
		return rec, envelope.Data
	}

	t.Run("full refund", func(t *testing.T) {
		credits := new(MockCreditService)
		gateway := new(MockGateway)

		credits.On("ProcessRefund", mock.Anything, txnID, accountID).
			Return(&credit.RefundResult{Success: true, Message: "refund processed", RefundedAmount: 150, Transaction: refundRow}, nil)
		gateway.On("CreateRefund", mock.Anything, "pi_test_1").Return(nil)

		rec, body := doRefund(t, newTestHandler(credits, gateway))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, body.Success)
		assert.True(t, body.GatewayRefunded)
		assert.Equal(t, 150, body.RefundedAmount)
	})

	t.Run("gateway failure still reports the ledger reversal", func(t *testing.T) {
		credits := new(MockCreditService)
		gateway := new(MockGateway)

		credits.On("ProcessRefund", mock.Anything, txnID, accountID).
			Return(&credit.RefundResult{Success: true, Message: "refund processed", RefundedAmount: 150, Transaction: refundRow}, nil)
		gateway.On("CreateRefund", mock.Anything, "pi_test_1").
			Return(payment.ErrGatewayUnavailable)

		rec, body := doRefund(t, newTestHandler(credits, gateway))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, body.GatewayRefunded)
		assert.Equal(t, 150, body.RefundedAmount)
	})

	t.Run("ineligible refund is a bad request", func(t *testing.T) {
		credits := new(MockCreditService)
		gateway := new(MockGateway)

		credits.On("ProcessRefund", mock.Anything, txnID, accountID).
			Return(&credit.RefundResult{Success: false, Message: credit.RefundReasonAlreadyRefunded}, nil)

		rec, _ := doRefund(t, newTestHandler(credits, gateway))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		gateway.AssertNotCalled(t, "CreateRefund")
	})
}

func TestHandler_StartCheckout_UnknownPack(t *testing.T) {
	accountID := uuid.New()
	accounts := new(MockAccountStore)
	packs := new(MockPackStore)

	accounts.On("GetByID", mock.Anything, accountID).Return(testAccount(accountID, ""), nil)
	packs.On("Get", mock.Anything, mock.Anything).Return(nil, nil)

	h := NewHandler(NewService(accounts, packs, new(MockCreditService), new(MockGateway), "https://app.test"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout/"+uuid.NewString(), nil)
	h.Routes(stubAuth(accountID)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Webhook(t *testing.T) {
	t.Run("bad signature is rejected", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("VerifyWebhook", mock.Anything, "bad-sig").
			Return(stripe.Event{}, payment.ErrInvalidSignature)

		h := newTestHandler(new(MockCreditService), gateway)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil)
		req.Header.Set("Stripe-Signature", "bad-sig")
		h.WebhookHandler(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unhandled event type is acknowledged", func(t *testing.T) {
		gateway := new(MockGateway)
		gateway.On("VerifyWebhook", mock.Anything, "sig").
			Return(stripe.Event{ID: "evt_1", Type: "invoice.paid"}, nil)

		h := newTestHandler(new(MockCreditService), gateway)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil)
		req.Header.Set("Stripe-Signature", "sig")
		h.WebhookHandler(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
