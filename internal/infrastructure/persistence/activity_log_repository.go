package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/pkg/utils"
)

const activityLogColumns = "id, entity_type, entity_id, action, message, user_id, metadata, created_at"

// ActivityLogRepository is the append-only activity trail.
type ActivityLogRepository struct {
	db *sqlx.DB
}

func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Create(ctx context.Context, l *models.ActivityLog) error {
	if l.ID == "" {
		l.ID = utils.GenerateID()
	}
	l.CreatedAt = time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :entity_type, :entity_id, :action, :message, :user_id,
		:metadata, :created_at)`, TableActivityLog, activityLogColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, l); err != nil {
		return fmt.Errorf("failed to insert activity log: %w", err)
	}
	return nil
}

// List returns the latest entries. Entity filters apply when set.
func (r *ActivityLogRepository) List(ctx context.Context, entityType, entityID string, limit int) ([]models.ActivityLog, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", activityLogColumns, TableActivityLog)
	var args []interface{}
	switch {
	case entityType != "" && entityID != "":
		query += " WHERE entity_type = ? AND entity_id = ?"
		args = append(args, entityType, entityID)
	case entityType != "":
		query += " WHERE entity_type = ?"
		args = append(args, entityType)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, clampLimit(limit))

	logs := []models.ActivityLog{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	return logs, nil
}
