package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
)

const taskColumns = "id, project_id, title, description, status, priority, assignee_id, due_date, completed_at, created_at, updated_at"

type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :project_id, :title, :description, :status, :priority,
		:assignee_id, :due_date, :completed_at, :created_at, :updated_at)`, TableTask, taskColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, t); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", taskColumns, TableTask)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &t, query, id); err != nil {
		return nil, notFound(err, "task", id)
	}
	return &t, nil
}

func (r *TaskRepository) ListByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_id = ? ORDER BY due_date IS NULL, due_date ASC, created_at ASC",
		taskColumns, TableTask)
	tasks := []models.Task{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &tasks, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// ListDueOn returns open tasks due on the given day.
func (r *TaskRepository) ListDueOn(ctx context.Context, day time.Time) ([]models.Task, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE due_date = ? AND status <> ? ORDER BY project_id", taskColumns, TableTask)
	tasks := []models.Task{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &tasks, query, day.Format("2006-01-02"), models.TaskDone); err != nil {
		return nil, fmt.Errorf("failed to list due tasks: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET title = :title, description = :description, status = :status,
		priority = :priority, assignee_id = :assignee_id, due_date = :due_date, completed_at = :completed_at,
		updated_at = :updated_at WHERE id = :id`, TableTask)
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, t)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireAffected(res, "task", t.ID)
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", TableTask), id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireAffected(res, "task", id)
}
