package payments

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/devstudio/backoffice/pkg/errors"
)

// Webhook event types the workflow reacts to.
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutExpired        = "checkout.session.expired"
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventChargeRefunded         = "charge.refunded"
)

// WebhookEvent is the processor-neutral view of a Stripe event.
type WebhookEvent struct {
	ID              string            `json:"id"`
	Type            string            `json:"type"`
	ObjectID        string            `json:"object_id"`
	PaymentIntentID string            `json:"payment_intent_id,omitempty"`
	SessionID       string            `json:"session_id,omitempty"`
	AmountCents     int64             `json:"amount_cents"`
	Currency        string            `json:"currency"`
	CustomerEmail   string            `json:"customer_email,omitempty"`
	FailureMessage  string            `json:"failure_message,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Livemode        bool              `json:"livemode"`
	Created         time.Time         `json:"created"`
}

// ParseEvent extracts a WebhookEvent from a raw event body without checking
// its signature.
func ParseEvent(raw []byte) (*WebhookEvent, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.NewValidationError("payload", "webhook payload is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	evt := &WebhookEvent{
		ID:       root.Get("id").String(),
		Type:     root.Get("type").String(),
		Livemode: root.Get("livemode").Bool(),
		Metadata: map[string]string{},
	}
	if evt.ID == "" || evt.Type == "" {
		return nil, errors.NewValidationError("payload", "webhook event id and type are required")
	}
	if ts := root.Get("created").Int(); ts > 0 {
		evt.Created = time.Unix(ts, 0).UTC()
	}

	obj := root.Get("data.object")
	evt.ObjectID = obj.Get("id").String()
	evt.Currency = strings.ToLower(obj.Get("currency").String())
	obj.Get("metadata").ForEach(func(k, v gjson.Result) bool {
		evt.Metadata[k.String()] = v.String()
		return true
	})

	switch obj.Get("object").String() {
	case "checkout.session":
		evt.SessionID = evt.ObjectID
		evt.PaymentIntentID = idOrExpanded(obj.Get("payment_intent"))
		evt.AmountCents = obj.Get("amount_total").Int()
		evt.CustomerEmail = firstNonEmpty(obj.Get("customer_details.email").String(), obj.Get("customer_email").String())
	case "payment_intent":
		evt.PaymentIntentID = evt.ObjectID
		evt.AmountCents = obj.Get("amount_received").Int()
		if evt.AmountCents == 0 {
			evt.AmountCents = obj.Get("amount").Int()
		}
		evt.CustomerEmail = obj.Get("receipt_email").String()
		evt.FailureMessage = obj.Get("last_payment_error.message").String()
	case "charge":
		evt.PaymentIntentID = idOrExpanded(obj.Get("payment_intent"))
		evt.AmountCents = obj.Get("amount").Int()
		evt.CustomerEmail = firstNonEmpty(obj.Get("billing_details.email").String(), obj.Get("receipt_email").String())
	default:
		evt.AmountCents = obj.Get("amount").Int()
	}
	evt.CustomerEmail = strings.ToLower(strings.TrimSpace(evt.CustomerEmail))
	return evt, nil
}

// idOrExpanded reads a field that is either an ID string or an expanded object.
func idOrExpanded(r gjson.Result) string {
	if r.IsObject() {
		return r.Get("id").String()
	}
	return r.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
