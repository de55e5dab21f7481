package rest

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/pkg/errors"
)

type DashboardService interface {
	Summary(ctx context.Context) (*services.DashboardSummary, error)
}

type ActivityLog interface {
	List(ctx context.Context, entityType, entityID string, limit int) ([]models.ActivityLog, error)
}

// DashboardHandler serves the summary figures and the activity log.
type DashboardHandler struct {
	dashboard DashboardService
	logs      ActivityLog
}

func NewDashboardHandler(dashboard DashboardService, logs ActivityLog) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, logs: logs}
}

// GetSummary handles GET /api/dashboard/summary
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	HandleGetEnvelope(c, "summary", func() (interface{}, error) {
		return h.dashboard.Summary(c.Request.Context())
	})
}

// ListLogs handles GET /api/logs?entity_type=budget&entity_id=...
func (h *DashboardHandler) ListLogs(c *gin.Context) {
	HandleGetEnvelope(c, "logs", func() (interface{}, error) {
		entityType := c.Query("entity_type")
		entityID := c.Query("entity_id")
		if entityID != "" && entityType == "" {
			return nil, errors.NewValidationError("entity_type", "required when entity_id is set")
		}
		limit, err := queryInt(c, "limit", 100)
		if err != nil {
			return nil, err
		}
		return h.logs.List(c.Request.Context(), entityType, entityID, limit)
	})
}
