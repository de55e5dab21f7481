package payments

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/pkg/errors"
)

const checkoutCompleted = `{
  "id": "evt_1",
  "type": "checkout.session.completed",
  "created": 1760000000,
  "livemode": false,
  "data": {"object": {
    "id": "cs_test_1",
    "object": "checkout.session",
    "payment_intent": "pi_1",
    "amount_total": 1250000,
    "currency": "BRL",
    "customer_details": {"email": " Ana@Acme.com "},
    "metadata": {"payment_id": "p1", "budget_id": "b1", "payment_type": "down_payment"}
  }}
}`

func TestParseEvent_CheckoutSession(t *testing.T) {
	evt, err := ParseEvent([]byte(checkoutCompleted))
	require.NoError(t, err)

	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, EventCheckoutCompleted, evt.Type)
	assert.Equal(t, "cs_test_1", evt.SessionID)
	assert.Equal(t, "pi_1", evt.PaymentIntentID)
	assert.Equal(t, int64(1250000), evt.AmountCents)
	assert.Equal(t, "brl", evt.Currency)
	assert.Equal(t, "ana@acme.com", evt.CustomerEmail)
	assert.Equal(t, "p1", evt.Metadata[MetaPaymentID])
	assert.Equal(t, "down_payment", evt.Metadata[MetaPaymentType])
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), evt.Created)
}

func TestParseEvent_PaymentIntentFailed(t *testing.T) {
	raw := `{"id":"evt_2","type":"payment_intent.payment_failed","data":{"object":{
		"id":"pi_2","object":"payment_intent","amount":5000,"amount_received":0,"currency":"brl",
		"receipt_email":"x@y.com","last_payment_error":{"message":"card declined"},"metadata":{}}}}`
	evt, err := ParseEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "pi_2", evt.PaymentIntentID)
	assert.Empty(t, evt.SessionID)
	assert.Equal(t, int64(5000), evt.AmountCents)
	assert.Equal(t, "card declined", evt.FailureMessage)
}

func TestParseEvent_ChargeWithExpandedIntent(t *testing.T) {
	raw := `{"id":"evt_3","type":"charge.refunded","data":{"object":{
		"id":"ch_1","object":"charge","amount":700,"payment_intent":{"id":"pi_3"},"billing_details":{"email":"a@b.com"}}}}`
	evt, err := ParseEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "pi_3", evt.PaymentIntentID)
	assert.Equal(t, "a@b.com", evt.CustomerEmail)
}

func TestParseEvent_Invalid(t *testing.T) {
	_, err := ParseEvent([]byte("not json"))
	assert.True(t, errors.IsValidation(err))

	_, err = ParseEvent([]byte(`{"data":{}}`))
	assert.True(t, errors.IsValidation(err))
}

func TestVerifyWebhook(t *testing.T) {
	secret := "whsec_test"
	gw := NewStripeGateway(config.StripeConfig{WebhookSecret: secret}, nil)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(checkoutCompleted),
		Secret:    secret,
		Timestamp: time.Now(),
	})

	evt, err := gw.VerifyWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", evt.ID)

	_, err = gw.VerifyWebhook(signed.Payload, "t=1,v1=deadbeef")
	assert.True(t, errors.IsUnauthorized(err))
}

func TestVerifyWebhook_NoSecret(t *testing.T) {
	gw := NewStripeGateway(config.StripeConfig{}, nil)
	_, err := gw.VerifyWebhook([]byte(checkoutCompleted), "")
	assert.Error(t, err)
}

func TestCreateCheckoutSession(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "cs_test_42",
			"object": "checkout.session",
			"url":    "https://checkout.stripe.com/c/pay/cs_test_42",
		})
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	gw := NewStripeGateway(config.StripeConfig{
		SecretKey:  "sk_test_123",
		SuccessURL: "https://studio.dev/ok",
		CancelURL:  "https://studio.dev/cancel",
	}, backend)

	sess, err := gw.CreateCheckoutSession(context.Background(), CheckoutRequest{
		PaymentID:     "p1",
		BudgetID:      "b1",
		PaymentType:   "down_payment",
		Description:   "Entrada - Site institucional",
		AmountCents:   1250000,
		CustomerEmail: "ana@acme.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_42", sess.ID)
	assert.Contains(t, sess.URL, "cs_test_42")

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "brl", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "1250000", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "p1", form.Get("metadata[payment_id]"))
	assert.Equal(t, "b1", form.Get("payment_intent_data[metadata][budget_id]"))
}

func TestCreateCheckoutSession_RejectsZeroAmount(t *testing.T) {
	gw := NewStripeGateway(config.StripeConfig{SecretKey: "sk_test"}, nil)
	_, err := gw.CreateCheckoutSession(context.Background(), CheckoutRequest{PaymentID: "p1"})
	assert.True(t, errors.IsValidation(err))
}
