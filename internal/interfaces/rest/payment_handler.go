package rest

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/payments"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/pkg/errors"
)

// maxWebhookBody bounds the webhook payload read into memory.
const maxWebhookBody = 64 << 10

// PaymentService defines the payment operations used by PaymentHandler.
type PaymentService interface {
	Get(ctx context.Context, id string) (*models.Payment, error)
	List(ctx context.Context, f persistence.PaymentFilter) ([]models.Payment, error)
	ListWebhookEvents(ctx context.Context, status string, limit int) ([]models.WebhookEvent, error)
	CreateCheckout(ctx context.Context, paymentID string) (*models.Payment, error)
	RegisterManualPayment(ctx context.Context, paymentID, method, actorID string) (*models.Payment, error)
	HandleWebhook(ctx context.Context, evt *payments.WebhookEvent) (*services.WebhookOutcome, error)
}

// WebhookVerifier checks a processor signature and parses the event.
type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signatureHeader string) (*payments.WebhookEvent, error)
}

type PaymentHandler struct {
	svc      PaymentService
	verifier WebhookVerifier
}

// NewPaymentHandler creates the handler. A nil verifier disables the
// webhook endpoint.
func NewPaymentHandler(svc PaymentService, verifier WebhookVerifier) *PaymentHandler {
	return &PaymentHandler{svc: svc, verifier: verifier}
}

// ManualPaymentRequest records a payment received outside the processor.
type ManualPaymentRequest struct {
	Method string `json:"method" binding:"required"`
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	HandleGetEnvelope(c, "payments", func() (interface{}, error) {
		limit, offset, err := pagination(c)
		if err != nil {
			return nil, err
		}
		return h.svc.List(c.Request.Context(), persistence.PaymentFilter{
			Status:   c.Query("status"),
			BudgetID: c.Query("budget_id"),
			ClientID: c.Query("client_id"),
			Limit:    limit,
			Offset:   offset,
		})
	})
}

// GetPayment handles GET /api/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	HandleGetEnvelope(c, "payment", func() (interface{}, error) {
		return h.svc.Get(c.Request.Context(), c.Param("id"))
	})
}

// CreateCheckout handles POST /api/payments/:id/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	HandleUpdateEnvelope(c, "payment", "Checkout ready", nil, func() (interface{}, error) {
		return h.svc.CreateCheckout(c.Request.Context(), c.Param("id"))
	})
}

// RegisterManual handles POST /api/payments/:id/manual
func (h *PaymentHandler) RegisterManual(c *gin.Context) {
	var req ManualPaymentRequest
	HandleUpdateEnvelope(c, "payment", "Payment registered", &req, func() (interface{}, error) {
		return h.svc.RegisterManualPayment(c.Request.Context(), c.Param("id"), req.Method, actorID(c))
	})
}

// ListWebhookEvents handles GET /api/payments/webhooks
func (h *PaymentHandler) ListWebhookEvents(c *gin.Context) {
	HandleGetEnvelope(c, "events", func() (interface{}, error) {
		limit, err := queryInt(c, "limit", 50)
		if err != nil {
			return nil, err
		}
		return h.svc.ListWebhookEvents(c.Request.Context(), c.Query("status"), limit)
	})
}

// StripeWebhook handles POST /api/webhooks/stripe. Events that were
// understood but not applied still answer 200 so the processor stops
// retrying; only failures that a retry can fix answer 5xx.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	if h.verifier == nil {
		RespondError(c, http.StatusServiceUnavailable, "payment processor is not configured")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		RespondAppError(c, errors.NewValidationError("body", "failed to read body"))
		return
	}
	if len(payload) > maxWebhookBody {
		RespondError(c, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	evt, err := h.verifier.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		logging.FromContext(c.Request.Context()).Warnf("⚠️ Rejected webhook: %v", err)
		RespondAppError(c, err)
		return
	}

	outcome, err := h.svc.HandleWebhook(c.Request.Context(), evt)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
