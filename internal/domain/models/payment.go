package models

import (
	"time"

	"github.com/devstudio/backoffice/internal/domain/workflow"
)

// Payment methods
const (
	PaymentMethodStripe = "stripe"
	PaymentMethodPix    = "pix"
	PaymentMethodManual = "manual"
)

// Payment is one installment of a budget.
type Payment struct {
	ID                    string                 `db:"id" json:"id"`
	BudgetID              string                 `db:"budget_id" json:"budget_id"`
	ClientID              string                 `db:"client_id" json:"client_id"`
	ProjectID             *string                `db:"project_id" json:"project_id,omitempty"`
	Type                  workflow.PaymentType   `db:"type" json:"type"`
	Amount                int64                  `db:"amount" json:"amount"`
	Currency              string                 `db:"currency" json:"currency"`
	Status                workflow.PaymentStatus `db:"status" json:"status"`
	Method                *string                `db:"method" json:"method,omitempty"`
	CustomerEmail         string                 `db:"customer_email" json:"customer_email"`
	StripeSessionID       *string                `db:"stripe_session_id" json:"stripe_session_id,omitempty"`
	StripePaymentIntentID *string                `db:"stripe_payment_intent_id" json:"stripe_payment_intent_id,omitempty"`
	CheckoutURL           *string                `db:"checkout_url" json:"checkout_url,omitempty"`
	PaidAt                *time.Time             `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt             time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time              `db:"updated_at" json:"updated_at"`
}

// Webhook event processing outcomes
const (
	WebhookReceived    = "received"
	WebhookProcessed   = "processed"
	WebhookIgnored     = "ignored"
	WebhookUnmatched   = "unmatched"
	WebhookNeedsReview = "needs_review"
	WebhookFailed      = "failed"
)

// WebhookEvent records a processor event so it is handled at most once.
type WebhookEvent struct {
	ID          string     `db:"id" json:"id"`
	Type        string     `db:"type" json:"type"`
	Status      string     `db:"status" json:"status"`
	PaymentID   *string    `db:"payment_id" json:"payment_id,omitempty"`
	Error       *string    `db:"error" json:"error,omitempty"`
	ReceivedAt  time.Time  `db:"received_at" json:"received_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
}

// Contract statuses
const (
	ContractDraft  = "draft"
	ContractSent   = "sent"
	ContractSigned = "signed"
)

// Contract is the agreement generated from a budget.
type Contract struct {
	ID        string     `db:"id" json:"id"`
	BudgetID  string     `db:"budget_id" json:"budget_id"`
	ClientID  string     `db:"client_id" json:"client_id"`
	Number    string     `db:"number" json:"number"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Status    string     `db:"status" json:"status"`
	SentAt    *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	SignedAt  *time.Time `db:"signed_at" json:"signed_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
