package rest

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/domain/models"
)

type NotificationService interface {
	ListMine(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type NotificationHandler struct {
	svc NotificationService
}

func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// GetNotifications handles GET /api/notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	HandleGetEnvelope(c, "data", func() (interface{}, error) {
		limit, err := queryInt(c, "limit", 50)
		if err != nil {
			return nil, err
		}
		return h.svc.ListMine(c.Request.Context(), actorID(c), c.Query("unread") == "true", limit)
	})
}

// CountUnread handles GET /api/notifications/unread-count
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	HandleGetEnvelope(c, "count", func() (interface{}, error) {
		return h.svc.CountUnread(c.Request.Context(), actorID(c))
	})
}

// MarkAsRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	HandleUpdateEnvelope(c, "", "Notification marked as read", nil, func() (interface{}, error) {
		return nil, h.svc.MarkRead(c.Request.Context(), c.Param("id"), actorID(c))
	})
}

// MarkAllAsRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	HandleUpdateEnvelope(c, "updated", "Notifications marked as read", nil, func() (interface{}, error) {
		return h.svc.MarkAllRead(c.Request.Context(), actorID(c))
	})
}
