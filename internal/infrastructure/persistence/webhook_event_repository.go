package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/database"
)

const webhookEventColumns = "id, type, status, payment_id, error, received_at, processed_at"

// WebhookEventRepository records processor events by their ID so each is
// handled at most once.
type WebhookEventRepository struct {
	db *sqlx.DB
}

func NewWebhookEventRepository(db *sqlx.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// TryRecord inserts the event. It returns false if the ID was already recorded.
func (r *WebhookEventRepository) TryRecord(ctx context.Context, id, eventType string) (bool, error) {
	query := fmt.Sprintf("INSERT INTO %s (id, type, status, received_at) VALUES (?, ?, ?, ?)", TableWebhookEvent)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, id, eventType, models.WebhookReceived, time.Now().UTC())
	if err != nil {
		if database.IsDuplicateKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record webhook event: %w", err)
	}
	return true, nil
}

// MarkProcessed stores the final outcome of a handled event.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id, status string, paymentID *string) error {
	query := fmt.Sprintf("UPDATE %s SET status = ?, payment_id = ?, error = NULL, processed_at = ? WHERE id = ?", TableWebhookEvent)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, status, paymentID, time.Now().UTC(), id)
	return err
}

// MarkFailed stores the processing error of an event.
func (r *WebhookEventRepository) MarkFailed(ctx context.Context, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	query := fmt.Sprintf("UPDATE %s SET status = ?, error = ?, processed_at = ? WHERE id = ?", TableWebhookEvent)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, models.WebhookFailed, msg, time.Now().UTC(), id)
	return err
}

// Forget deletes a failed event so the processor's retry is accepted again.
func (r *WebhookEventRepository) Forget(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND status = ?", TableWebhookEvent)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, id, models.WebhookFailed)
	return err
}

func (r *WebhookEventRepository) Get(ctx context.Context, id string) (*models.WebhookEvent, error) {
	var e models.WebhookEvent
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", webhookEventColumns, TableWebhookEvent)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &e, query, id); err != nil {
		return nil, notFound(err, "webhook event", id)
	}
	return &e, nil
}

// List returns recent events, optionally filtered by status.
func (r *WebhookEventRepository) List(ctx context.Context, status string, limit int) ([]models.WebhookEvent, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", webhookEventColumns, TableWebhookEvent)
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY received_at DESC LIMIT ?"
	args = append(args, clampLimit(limit))

	events := []models.WebhookEvent{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list webhook events: %w", err)
	}
	return events, nil
}
