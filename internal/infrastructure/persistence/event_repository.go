package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
)

const eventColumns = "id, title, description, type, starts_at, ends_at, project_id, client_id, created_at, updated_at"

// EventFilter narrows calendar listings. Zero times are unbounded.
type EventFilter struct {
	From      time.Time
	To        time.Time
	ProjectID string
	Limit     int
}

type EventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, e *models.Event) error {
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :title, :description, :type, :starts_at, :ends_at,
		:project_id, :client_id, :created_at, :updated_at)`, TableEvent, eventColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, e); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	var e models.Event
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", eventColumns, TableEvent)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &e, query, id); err != nil {
		return nil, notFound(err, "event", id)
	}
	return &e, nil
}

func (r *EventRepository) List(ctx context.Context, f EventFilter) ([]models.Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if !f.From.IsZero() {
		where = append(where, "starts_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "starts_at < ?")
		args = append(args, f.To)
	}
	if f.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, f.ProjectID)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", eventColumns, TableEvent)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY starts_at ASC LIMIT ?"
	args = append(args, clampLimit(f.Limit))

	events := []models.Event{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	e.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET title = :title, description = :description, type = :type,
		starts_at = :starts_at, ends_at = :ends_at, project_id = :project_id, client_id = :client_id,
		updated_at = :updated_at WHERE id = :id`, TableEvent)
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, e)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return requireAffected(res, "event", e.ID)
}

func (r *EventRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", TableEvent), id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return requireAffected(res, "event", id)
}
