package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v74"

	"github.com/shelfwise/shelfwise-api/internal/domain/account"
	"github.com/shelfwise/shelfwise-api/internal/domain/credit"
	"github.com/shelfwise/shelfwise-api/internal/domain/pack"
	"github.com/shelfwise/shelfwise-api/internal/pkg/payment"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrPackNotFound    = errors.New("credit pack not found")
	ErrPackInactive    = errors.New("credit pack is not available")
	ErrNoCustomer      = errors.New("account has no billing profile")
	ErrGatewayRefund   = errors.New("refund reversed in ledger but gateway refund failed")
	ErrInternal        = errors.New("internal billing error")
)

// Gateway is the slice of the payment provider the billing service consumes.
type Gateway interface {
	EnsureCustomer(ctx context.Context, accountID, email, existingCustomerID string) (string, error)
	CreateCheckout(ctx context.Context, customerID string, item payment.CheckoutItem, successURL, cancelURL string, metadata map[string]string) (*stripe.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CreateRefund(ctx context.Context, paymentIntentID string) error
	VerifyWebhook(payload []byte, signature string) (stripe.Event, error)
}

// AccountStore is the slice of the account store billing needs.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	SetStripeCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
}

// PackStore is the slice of the pack catalog billing needs.
type PackStore interface {
	Get(ctx context.Context, id uuid.UUID) (*pack.CreditPack, error)
}

// CheckoutSession is the client-facing result of starting a checkout.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Service coordinates credit purchases between the account store, the pack
// catalog, the credit ledger and the payment gateway.
type Service struct {
	accounts    AccountStore
	packs       PackStore
	credits     credit.Service
	gateway     Gateway
	frontendURL string
}

// NewService creates the billing service
func NewService(accounts AccountStore, packs PackStore, credits credit.Service, gateway Gateway, frontendURL string) *Service {
	return &Service{
		accounts:    accounts,
		packs:       packs,
		credits:     credits,
		gateway:     gateway,
		frontendURL: frontendURL,
	}
}

// StartCheckout opens a checkout session for the given pack. The account's
// gateway customer is created on first purchase and persisted for reuse.
func (s *Service) StartCheckout(ctx context.Context, accountID, packID uuid.UUID) (*CheckoutSession, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: load account: %v", ErrInternal, err)
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}

	p, err := s.packs.Get(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("%w: load pack: %v", ErrInternal, err)
	}
	if p == nil {
		return nil, ErrPackNotFound
	}
	if !p.IsActive {
		return nil, ErrPackInactive
	}

	customerID, err := s.gateway.EnsureCustomer(ctx, acct.ID.String(), acct.Email, acct.StripeCustomerID.String)
	if err != nil {
		return nil, err
	}
	if !acct.StripeCustomerID.Valid || acct.StripeCustomerID.String != customerID {
		if err := s.accounts.SetStripeCustomerID(ctx, acct.ID, customerID); err != nil {
			return nil, fmt.Errorf("%w: persist customer id: %v", ErrInternal, err)
		}
	}

	successURL := s.frontendURL + "/billing/success?session_id={CHECKOUT_SESSION_ID}"
	cancelURL := s.frontendURL + "/billing/cancel"

	sess, err := s.gateway.CreateCheckout(ctx, customerID, payment.CheckoutItem{
		PackName:      p.Name,
		Credits:       p.Credits,
		PriceCents:    p.PriceCents,
		StripePriceID: p.StripePriceID.String,
	}, successURL, cancelURL, map[string]string{
		"account_id": acct.ID.String(),
		"pack_id":    p.ID.String(),
		"credits":    fmt.Sprintf("%d", p.Credits),
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", acct.ID.String()).
		Str("pack_id", p.ID.String()).
		Str("session_id", sess.ID).
		Msg("Checkout session created")

	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// StartPortal opens a billing portal session for the account.
func (s *Service) StartPortal(ctx context.Context, accountID uuid.UUID) (string, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("%w: load account: %v", ErrInternal, err)
	}
	if acct == nil {
		return "", ErrAccountNotFound
	}
	if !acct.StripeCustomerID.Valid || acct.StripeCustomerID.String == "" {
		return "", ErrNoCustomer
	}

	return s.gateway.CreatePortalSession(ctx, acct.StripeCustomerID.String, s.frontendURL+"/billing")
}

// HandleWebhook verifies and dispatches a gateway webhook payload.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		return err
	}

	switch event.Type {
	case "checkout.session.completed":
		return s.handleCheckoutCompleted(ctx, event)
	case "charge.refunded":
		// Refunds originate from our own refund flow, where the ledger is
		// already reversed before the gateway call. Nothing to do here.
		log.Debug().Str("event_id", event.ID).Msg("Ignoring charge.refunded webhook")
		return nil
	default:
		log.Debug().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("Ignoring unhandled webhook event")
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("%w: decode checkout session: %v", ErrInternal, err)
	}

	accountID, err := uuid.Parse(sess.Metadata["account_id"])
	if err != nil {
		return fmt.Errorf("%w: bad account_id metadata %q", ErrInternal, sess.Metadata["account_id"])
	}
	packID, err := uuid.Parse(sess.Metadata["pack_id"])
	if err != nil {
		return fmt.Errorf("%w: bad pack_id metadata %q", ErrInternal, sess.Metadata["pack_id"])
	}

	p, err := s.packs.Get(ctx, packID)
	if err != nil {
		return fmt.Errorf("%w: load pack: %v", ErrInternal, err)
	}
	if p == nil {
		return fmt.Errorf("%w: pack %s from webhook metadata not found", ErrInternal, packID)
	}

	var paymentIntentID string
	if sess.PaymentIntent != nil {
		paymentIntentID = sess.PaymentIntent.ID
	}

	// The metadata carries the credit amount as it was when the buyer checked
	// out; the pack row may have been repriced since. Fall back to the pack
	// only when the metadata is missing or mangled.
	creditAmount, err := strconv.Atoi(sess.Metadata["credits"])
	if err != nil || creditAmount < 1 {
		creditAmount = p.Credits
	}

	tx, err := s.credits.AddCredits(ctx, accountID, creditAmount, credit.TxTypePurchase,
		fmt.Sprintf("Purchased %s (%d credits)", p.Name, creditAmount),
		credit.AddOptions{
			PackID:          uuid.NullUUID{UUID: p.ID, Valid: true},
			SessionID:       sess.ID,
			PaymentIntentID: paymentIntentID,
		})
	if err != nil {
		// Stripe retries webhooks; a replayed session must not double-credit.
		if errors.Is(err, credit.ErrDuplicateReference) {
			log.Warn().
				Str("session_id", sess.ID).
				Str("account_id", accountID.String()).
				Msg("Duplicate checkout webhook dropped")
			return nil
		}
		return err
	}

	log.Info().
		Str("account_id", accountID.String()).
		Str("pack_id", p.ID.String()).
		Str("transaction_id", tx.ID.String()).
		Int("credits", creditAmount).
		Msg("Credits granted from checkout")

	return nil
}

// RequestRefund reverses a purchase in the ledger and then refunds the charge
// at the gateway. A gateway failure after the ledger reversal is reported as
// ErrGatewayRefund so operators can reconcile manually.
func (s *Service) RequestRefund(ctx context.Context, accountID, transactionID uuid.UUID) (*credit.RefundResult, error) {
	result, err := s.credits.ProcessRefund(ctx, transactionID, accountID)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return result, nil
	}

	if result.Transaction != nil && result.Transaction.StripePaymentIntentID.Valid {
		if err := s.gateway.CreateRefund(ctx, result.Transaction.StripePaymentIntentID.String); err != nil {
			log.Error().Err(err).
				Str("transaction_id", transactionID.String()).
				Str("payment_intent_id", result.Transaction.StripePaymentIntentID.String).
				Msg("Ledger refunded but gateway refund failed")
			return result, fmt.Errorf("%w: %v", ErrGatewayRefund, err)
		}
	}

	log.Info().
		Str("account_id", accountID.String()).
		Str("transaction_id", transactionID.String()).
		Int("refunded_amount", result.RefundedAmount).
		Msg("Refund processed")

	return result, nil
}
