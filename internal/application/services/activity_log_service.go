package services

import (
	"context"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/pkg/utils"
)

// Entity types recorded in the activity log.
const (
	EntityBudget   = "budget"
	EntityProject  = "project"
	EntityPayment  = "payment"
	EntityClient   = "client"
	EntityContract = "contract"
	EntityTask     = "task"
	EntityWebhook  = "webhook"
)

// ActivityLogService writes and reads the append-only activity trail.
type ActivityLogService struct {
	repo ActivityLogStore
}

func NewActivityLogService(repo ActivityLogStore) *ActivityLogService {
	return &ActivityLogService{repo: repo}
}

// Record appends an entry. actorID may be empty for system actions.
func (s *ActivityLogService) Record(ctx context.Context, entityType, entityID, action, message, actorID string, meta models.JSONMap) error {
	entry := &models.ActivityLog{
		ID:         utils.GenerateID(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Message:    message,
		UserID:     models.StringPtr(actorID),
		Metadata:   meta,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		logging.FromContext(ctx).WithError(err).Warnf("⚠️ Failed to record %s %s on %s", action, entityType, entityID)
		return err
	}
	return nil
}

// List returns the latest entries, optionally for a single entity.
func (s *ActivityLogService) List(ctx context.Context, entityType, entityID string, limit int) ([]models.ActivityLog, error) {
	return s.repo.List(ctx, entityType, entityID, limit)
}
