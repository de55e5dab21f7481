package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/pkg/utils"
)

// Outbox statuses
const (
	OutboxPending   = "pending"
	OutboxProcessed = "processed"
	OutboxFailed    = "failed"
)

// OutboxEvent represents a persisted event record
type OutboxEvent struct {
	ID           string         `db:"id"`
	EventType    string         `db:"event_type"`
	Payload      string         `db:"payload"`
	Status       string         `db:"status"`
	RetryCount   int            `db:"retry_count"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	ProcessedAt  sql.NullTime   `db:"processed_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// OutboxRepository handles database operations for the outbox pattern
type OutboxRepository struct {
	db *sqlx.DB
}

// NewOutboxRepository creates a new OutboxRepository
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue inserts a new event into the outbox. Called inside the business
// transaction so the event commits with the state change.
func (r *OutboxRepository) Enqueue(ctx context.Context, eventType string, payload interface{}) (string, error) {
	id := utils.GenerateID()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event payload: %w", err)
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`INSERT INTO %s (id, event_type, payload, status, retry_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`, TableOutboxEvent)

	if _, err := executor(ctx, r.db).ExecContext(ctx, query, id, eventType, string(payloadJSON), OutboxPending, now, now); err != nil {
		return "", fmt.Errorf("failed to enqueue event: %w", err)
	}
	return id, nil
}

// GetPendingEvents retrieves pending events ordered by creation time
func (r *OutboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]OutboxEvent, error) {
	query := fmt.Sprintf(`SELECT id, event_type, payload, status, retry_count, error_message, created_at, processed_at, updated_at
		FROM %s WHERE status = ? ORDER BY created_at ASC LIMIT ?`, TableOutboxEvent)

	events := []OutboxEvent{}
	if err := sqlx.SelectContext(ctx, r.db, &events, query, OutboxPending, limit); err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	return events, nil
}

// ClaimEvent locks a pending event for processing. It returns false when
// another worker holds it or it is no longer pending.
func (r *OutboxRepository) ClaimEvent(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf("SELECT id FROM %s WHERE id = ? AND status = ? FOR UPDATE SKIP LOCKED", TableOutboxEvent)

	var claimedID string
	err := sqlx.GetContext(ctx, executor(ctx, r.db), &claimedID, query, id, OutboxPending)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpdateStatus updates the status and related fields of an event
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id string, status string, errMessage string) error {
	var (
		query string
		args  []interface{}
		now   = time.Now().UTC()
	)

	switch status {
	case OutboxProcessed:
		query = fmt.Sprintf("UPDATE %s SET status = ?, processed_at = ?, updated_at = ? WHERE id = ?", TableOutboxEvent)
		args = []interface{}{status, now, now, id}
	case OutboxFailed:
		query = fmt.Sprintf("UPDATE %s SET status = ?, error_message = ?, updated_at = ? WHERE id = ?", TableOutboxEvent)
		args = []interface{}{status, errMessage, now, id}
	default:
		return fmt.Errorf("unsupported status update: %s", status)
	}

	_, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	return err
}

// IncrementRetry records a failed attempt
func (r *OutboxRepository) IncrementRetry(ctx context.Context, id string, newCount int, errMessage string) error {
	query := fmt.Sprintf("UPDATE %s SET retry_count = ?, error_message = ?, updated_at = ? WHERE id = ?", TableOutboxEvent)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, newCount, errMessage, time.Now().UTC(), id)
	return err
}

// Requeue puts a failed event back in the queue with a fresh retry budget.
func (r *OutboxRepository) Requeue(ctx context.Context, id string) error {
	query := fmt.Sprintf("UPDATE %s SET status = ?, retry_count = 0, updated_at = ? WHERE id = ? AND status = ?", TableOutboxEvent)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, OutboxPending, time.Now().UTC(), id, OutboxFailed)
	if err != nil {
		return err
	}
	return requireAffected(res, "outbox event", id)
}

// CleanupProcessed deletes old processed events
func (r *OutboxRepository) CleanupProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE status = ? AND processed_at < ?", TableOutboxEvent)

	result, err := r.db.ExecContext(ctx, query, OutboxProcessed, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
