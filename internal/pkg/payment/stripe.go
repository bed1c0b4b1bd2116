package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v74"
	portalsession "github.com/stripe/stripe-go/v74/billingportal/session"
	"github.com/stripe/stripe-go/v74/checkout/session"
	"github.com/stripe/stripe-go/v74/customer"
	"github.com/stripe/stripe-go/v74/refund"
	"github.com/stripe/stripe-go/v74/webhook"
)

var (
	// ErrGatewayUnavailable means the Stripe API call itself failed.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrInvalidSignature means the webhook payload failed signature verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// CheckoutItem describes what a checkout session sells. When StripePriceID is
// empty an inline price is built from PriceCents.
type CheckoutItem struct {
	PackName      string
	Credits       int
	PriceCents    int
	StripePriceID string
}

// StripeGateway wraps the Stripe client for checkout, portal, refund and
// webhook verification.
type StripeGateway struct {
	webhookSecret string
}

// NewStripeGateway configures the global Stripe key and returns the gateway.
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookSecret: webhookSecret}
}

// EnsureCustomer returns an existing Stripe customer ID or creates a new
// customer tagged with the account ID.
func (g *StripeGateway) EnsureCustomer(ctx context.Context, accountID, email, existingCustomerID string) (string, error) {
	if existingCustomerID != "" {
		return existingCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx
	params.AddMetadata("account_id", accountID)

	cust, err := customer.New(params)
	if err != nil {
		log.Error().Err(err).Str("account_id", accountID).Msg("Failed to create stripe customer")
		return "", fmt.Errorf("%w: create customer: %v", ErrGatewayUnavailable, err)
	}

	return cust.ID, nil
}

// CreateCheckout creates a one-time payment checkout session for a credit pack.
func (g *StripeGateway) CreateCheckout(ctx context.Context, customerID string, item CheckoutItem, successURL, cancelURL string, metadata map[string]string) (*stripe.CheckoutSession, error) {
	lineItem := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
	}
	if item.StripePriceID != "" {
		lineItem.Price = stripe.String(item.StripePriceID)
	} else {
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(string(stripe.CurrencyUSD)),
			UnitAmount: stripe.Int64(int64(item.PriceCents)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(item.PackName),
				Description: stripe.String(fmt.Sprintf("%d credits", item.Credits)),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Customer: stripe.String(customerID),
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  []*stripe.CheckoutSessionLineItemParams{lineItem},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	sess, err := session.New(params)
	if err != nil {
		log.Error().Err(err).Str("customer_id", customerID).Msg("Failed to create checkout session")
		return nil, fmt.Errorf("%w: create checkout: %v", ErrGatewayUnavailable, err)
	}

	return sess, nil
}

// CreatePortalSession opens a Stripe billing portal session for the customer.
func (g *StripeGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	sess, err := portalsession.New(params)
	if err != nil {
		log.Error().Err(err).Str("customer_id", customerID).Msg("Failed to create portal session")
		return "", fmt.Errorf("%w: create portal session: %v", ErrGatewayUnavailable, err)
	}

	return sess.URL, nil
}

// CreateRefund refunds the full charge behind a payment intent.
func (g *StripeGateway) CreateRefund(ctx context.Context, paymentIntentID string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	if _, err := refund.New(params); err != nil {
		log.Error().Err(err).Str("payment_intent_id", paymentIntentID).Msg("Failed to create stripe refund")
		return fmt.Errorf("%w: create refund: %v", ErrGatewayUnavailable, err)
	}

	return nil
}

// VerifyWebhook checks the payload signature and parses the event.
func (g *StripeGateway) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return event, nil
}
