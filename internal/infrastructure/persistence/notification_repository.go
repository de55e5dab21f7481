package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
)

const notificationColumns = "id, user_id, type, title, message, link, is_read, created_at"

type NotificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	n.CreatedAt = time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :user_id, :type, :title, :message, :link, :is_read, :created_at)`,
		TableNotification, notificationColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, n); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListForUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ?", notificationColumns, TableNotification)
	if unreadOnly {
		query += " AND is_read = FALSE"
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	items := []models.Notification{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &items, query, userID, clampLimit(limit)); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id = ? AND is_read = FALSE", TableNotification)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &n, query, userID); err != nil {
		return 0, err
	}
	return n, nil
}

// MarkRead marks one notification of the user as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf("UPDATE %s SET is_read = TRUE WHERE id = ? AND user_id = ?", TableNotification)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "notification", id)
}

// MarkAllRead marks every unread notification of the user as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET is_read = TRUE WHERE user_id = ? AND is_read = FALSE", TableNotification)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
