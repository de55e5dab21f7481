package rest

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/persistence"
	"github.com/devstudio/backoffice/pkg/pricing"
)

// BudgetService defines the budget operations used by BudgetHandler.
type BudgetService interface {
	Create(ctx context.Context, req services.CreateBudgetRequest, actorID string) (*models.Budget, error)
	Get(ctx context.Context, id string) (*models.Budget, error)
	List(ctx context.Context, f persistence.BudgetFilter) ([]models.Budget, error)
	PublicView(ctx context.Context, token string) (*services.PublicBudget, error)
	Recalculate(ctx context.Context, id string, in *pricing.EstimateInput, actorID string) (*models.Budget, error)
	Send(ctx context.Context, id, actorID string) (*models.Budget, error)
	Accept(ctx context.Context, id, actorID string) (*models.Budget, error)
	Reject(ctx context.Context, id, actorID, reason string) (*models.Budget, error)
	Cancel(ctx context.Context, id, actorID, reason string) (*models.Budget, error)
}

type BudgetHandler struct {
	svc BudgetService
}

func NewBudgetHandler(svc BudgetService) *BudgetHandler {
	return &BudgetHandler{svc: svc}
}

// ReasonRequest carries the optional note of reject and cancel.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// ListBudgets handles GET /api/budgets
func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	HandleGetEnvelope(c, "budgets", func() (interface{}, error) {
		limit, offset, err := pagination(c)
		if err != nil {
			return nil, err
		}
		return h.svc.List(c.Request.Context(), persistence.BudgetFilter{
			Status:   c.Query("status"),
			ClientID: c.Query("client_id"),
			Limit:    limit,
			Offset:   offset,
		})
	})
}

// GetBudget handles GET /api/budgets/:id
func (h *BudgetHandler) GetBudget(c *gin.Context) {
	HandleGetEnvelope(c, "budget", func() (interface{}, error) {
		return h.svc.Get(c.Request.Context(), c.Param("id"))
	})
}

// CreateBudget handles POST /api/budgets
func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	var req services.CreateBudgetRequest
	HandleCreateEnvelope(c, "budget", "Budget created successfully", &req, func() (interface{}, error) {
		return h.svc.Create(c.Request.Context(), req, actorID(c))
	})
}

// Recalculate handles POST /api/budgets/:id/recalculate. Without a body
// the stored parameters are priced again.
func (h *BudgetHandler) Recalculate(c *gin.Context) {
	var in *pricing.EstimateInput
	if c.Request.ContentLength > 0 {
		in = &pricing.EstimateInput{}
		if !BindJSON(c, in) {
			return
		}
	}
	HandleUpdateEnvelope(c, "budget", "Budget recalculated", nil, func() (interface{}, error) {
		return h.svc.Recalculate(c.Request.Context(), c.Param("id"), in, actorID(c))
	})
}

// Send handles POST /api/budgets/:id/send
func (h *BudgetHandler) Send(c *gin.Context) {
	HandleUpdateEnvelope(c, "budget", "Budget sent", nil, func() (interface{}, error) {
		return h.svc.Send(c.Request.Context(), c.Param("id"), actorID(c))
	})
}

// Accept handles POST /api/budgets/:id/accept
func (h *BudgetHandler) Accept(c *gin.Context) {
	HandleUpdateEnvelope(c, "budget", "Budget accepted", nil, func() (interface{}, error) {
		return h.svc.Accept(c.Request.Context(), c.Param("id"), actorID(c))
	})
}

// Reject handles POST /api/budgets/:id/reject
func (h *BudgetHandler) Reject(c *gin.Context) {
	var req ReasonRequest
	HandleUpdateEnvelope(c, "budget", "Budget rejected", &req, func() (interface{}, error) {
		return h.svc.Reject(c.Request.Context(), c.Param("id"), actorID(c), req.Reason)
	})
}

// Cancel handles POST /api/budgets/:id/cancel
func (h *BudgetHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	HandleUpdateEnvelope(c, "budget", "Budget cancelled", &req, func() (interface{}, error) {
		return h.svc.Cancel(c.Request.Context(), c.Param("id"), actorID(c), req.Reason)
	})
}

// GetPublicBudget handles GET /api/public/budgets/:token
func (h *BudgetHandler) GetPublicBudget(c *gin.Context) {
	HandleGetEnvelope(c, "budget", func() (interface{}, error) {
		return h.svc.PublicView(c.Request.Context(), c.Param("token"))
	})
}
