package models

import (
	"database/sql/driver"
	"time"

	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/pkg/pricing"
)

// Budget is a priced proposal sent to a client.
type Budget struct {
	ID                 string                `db:"id" json:"id"`
	ClientID           string                `db:"client_id" json:"client_id"`
	ProjectID          *string               `db:"project_id" json:"project_id,omitempty"`
	Title              string                `db:"title" json:"title"`
	Description        *string               `db:"description" json:"description,omitempty"`
	ProjectType        string                `db:"project_type" json:"project_type"`
	Complexity         string                `db:"complexity" json:"complexity"`
	Timeline           string                `db:"timeline" json:"timeline"`
	Features           StringList            `db:"features" json:"features"`
	Integrations       StringList            `db:"integrations" json:"integrations"`
	Pages              int                   `db:"pages" json:"pages"`
	Breakdown          Breakdown             `db:"breakdown" json:"breakdown"`
	Subtotal           int64                 `db:"subtotal" json:"subtotal"`
	Total              int64                 `db:"total" json:"total"`
	DownPaymentPercent int                   `db:"down_payment_percent" json:"down_payment_percent"`
	DownPaymentAmount  int64                 `db:"down_payment_amount" json:"down_payment_amount"`
	FinalPaymentAmount int64                 `db:"final_payment_amount" json:"final_payment_amount"`
	BusinessDays       int                   `db:"business_days" json:"business_days"`
	EstimatedDelivery  time.Time             `db:"estimated_delivery" json:"estimated_delivery"`
	ValidUntil         time.Time             `db:"valid_until" json:"valid_until"`
	Status             workflow.BudgetStatus `db:"status" json:"status"`
	PublicToken        string                `db:"public_token" json:"public_token"`
	CreatedBy          *string               `db:"created_by" json:"created_by,omitempty"`
	SentAt             *time.Time            `db:"sent_at" json:"sent_at,omitempty"`
	AcceptedAt         *time.Time            `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt          time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time             `db:"updated_at" json:"updated_at"`
}

// ApplyEstimate copies the priced figures of est onto the budget.
func (b *Budget) ApplyEstimate(est *pricing.Estimate, downPaymentPercent int) {
	b.ProjectType = string(est.ProjectType)
	b.Complexity = string(est.Complexity)
	b.Timeline = string(est.Timeline)
	b.Features = est.Features
	b.Integrations = est.Integrations
	b.Pages = est.Pages
	b.Breakdown = est.Breakdown
	b.Subtotal = est.Subtotal
	b.Total = est.Total
	b.DownPaymentPercent = downPaymentPercent
	b.DownPaymentAmount = est.DownPayment
	b.FinalPaymentAmount = est.FinalPayment
	b.BusinessDays = est.BusinessDays
	b.EstimatedDelivery = est.DeliveryDate
}

// EstimateInput rebuilds the pricing input the budget was created from.
func (b *Budget) EstimateInput() pricing.EstimateInput {
	return pricing.EstimateInput{
		ProjectType:  pricing.ProjectType(b.ProjectType),
		Complexity:   pricing.Complexity(b.Complexity),
		Timeline:     pricing.Timeline(b.Timeline),
		Features:     b.Features,
		Integrations: b.Integrations,
		Pages:        b.Pages,
	}
}

// Breakdown is the list of estimate lines stored as JSON.
type Breakdown []pricing.Line

// Value implements driver.Valuer
func (b Breakdown) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	return marshalString(b)
}

// Scan implements sql.Scanner
func (b *Breakdown) Scan(src interface{}) error {
	return scanJSON(src, b)
}
