package events

import "time"

// EventType names a domain event published through the outbox.
type EventType string

const (
	BudgetCreated       EventType = "budget.created"
	BudgetSent          EventType = "budget.sent"
	BudgetStatusChanged EventType = "budget.status_changed"

	PaymentDownPaymentReceived EventType = "payment.down_payment_received"
	PaymentFinalReceived       EventType = "payment.final_received"
	PaymentFailed              EventType = "payment.failed"
	PaymentUnmatched           EventType = "payment.unmatched"
	PaymentNeedsReview         EventType = "payment.needs_review"

	ProjectProgress          EventType = "project.progress"
	ProjectCompleted         EventType = "project.completed"
	ProjectDeliveryScheduled EventType = "project.delivery_scheduled"
	ProjectDelivered         EventType = "project.delivered"

	TaskDueSoon EventType = "task.due_soon"
)

// String returns the string representation of the event type
func (e EventType) String() string {
	return string(e)
}

// Payload is the body of every domain event. Fields irrelevant to an event
// are left empty.
type Payload struct {
	BudgetID  string     `json:"budget_id,omitempty"`
	ProjectID string     `json:"project_id,omitempty"`
	PaymentID string     `json:"payment_id,omitempty"`
	ClientID  string     `json:"client_id,omitempty"`
	TaskID    string     `json:"task_id,omitempty"`
	From      string     `json:"from,omitempty"`
	To        string     `json:"to,omitempty"`
	Progress  int        `json:"progress,omitempty"`
	Amount    int64      `json:"amount,omitempty"`
	Date      *time.Time `json:"date,omitempty"`
	URL       string     `json:"url,omitempty"`
	ActorID   string     `json:"actor_id,omitempty"`
	Note      string     `json:"note,omitempty"`
}
