// Package payments talks to the Stripe API: checkout sessions for budget
// payments and signature-checked webhook events.
package payments

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/money"
)

// Metadata keys written on sessions and payment intents.
const (
	MetaPaymentID   = "payment_id"
	MetaBudgetID    = "budget_id"
	MetaPaymentType = "payment_type"
)

// CheckoutRequest describes a one-off payment to collect.
type CheckoutRequest struct {
	PaymentID     string
	BudgetID      string
	PaymentType   string
	Description   string
	AmountCents   int64
	CustomerEmail string
}

// CheckoutSession is the created session: its ID and the hosted page URL.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Gateway is the payment processor used by the services.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}

// StripeGateway implements Gateway on top of stripe-go.
type StripeGateway struct {
	sessions      *session.Client
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeGateway builds a gateway from configuration. A nil backend uses
// the default Stripe API backend.
func NewStripeGateway(cfg config.StripeConfig, backend stripe.Backend) *StripeGateway {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeGateway{
		sessions:      &session.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CreateCheckoutSession opens a payment-mode checkout in BRL with a single
// line item. Payment identifiers go on both the session and the intent so
// either event type can be matched back.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.AmountCents <= 0 {
		return nil, errors.NewValidationError("amount", "checkout amount must be positive")
	}
	meta := map[string]string{
		MetaPaymentID:   req.PaymentID,
		MetaBudgetID:    req.BudgetID,
		MetaPaymentType: req.PaymentType,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.PaymentID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(money.Currency),
					UnitAmount: stripe.Int64(req.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, errors.NewExternalServiceError("stripe", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

// VerifyWebhook checks the Stripe-Signature header and extracts the fields
// used for payment matching. Events from other API versions are accepted.
func (g *StripeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	if g.webhookSecret == "" {
		return nil, errors.NewInternalError("stripe webhook secret is not configured", nil)
	}
	_, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, errors.NewUnauthorizedError(fmt.Sprintf("invalid webhook signature: %v", err))
	}
	return ParseEvent(payload)
}
