package services

import (
	"context"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/pkg/utils"
)

// NotificationService manages in-app notifications.
type NotificationService struct {
	repo NotificationStore
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo NotificationStore) *NotificationService {
	return &NotificationService{repo: repo}
}

// Notify creates a notification for one user.
func (s *NotificationService) Notify(ctx context.Context, userID, kind, title, message, link string) error {
	return s.repo.Create(ctx, &models.Notification{
		ID:      utils.GenerateID(),
		UserID:  userID,
		Type:    kind,
		Title:   title,
		Message: message,
		Link:    models.StringPtr(link),
	})
}

// ListMine returns the latest notifications of a user.
func (s *NotificationService) ListMine(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one of the user's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead marks every notification of the user read and returns how
// many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
