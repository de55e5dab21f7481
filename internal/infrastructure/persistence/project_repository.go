package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/internal/infrastructure/database"
	"github.com/devstudio/backoffice/pkg/errors"
)

const projectColumns = `id, client_id, budget_id, name, description, status, progress, notified_progress,
	total_value, start_date, due_date, delivery_date, delivered_at, created_at, updated_at`

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	Status   string
	ClientID string
	Limit    int
	Offset   int
}

type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :client_id, :budget_id, :name, :description, :status,
		:progress, :notified_progress, :total_value, :start_date, :due_date, :delivery_date, :delivered_at,
		:created_at, :updated_at)`, TableProject, projectColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, p); err != nil {
		if database.IsDuplicateKey(err) && p.BudgetID != nil {
			return errors.NewConflictError("project", "budget_id", *p.BudgetID)
		}
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (*models.Project, error) {
	return r.getBy(ctx, "id = ?", id, false)
}

// GetForUpdate loads the project with a row lock. Must run inside a transaction.
func (r *ProjectRepository) GetForUpdate(ctx context.Context, id string) (*models.Project, error) {
	return r.getBy(ctx, "id = ?", id, true)
}

// GetByBudget returns the project created from a budget.
func (r *ProjectRepository) GetByBudget(ctx context.Context, budgetID string) (*models.Project, error) {
	return r.getBy(ctx, "budget_id = ?", budgetID, false)
}

func (r *ProjectRepository) getBy(ctx context.Context, cond, arg string, lock bool) (*models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", projectColumns, TableProject, cond)
	if lock {
		query += " FOR UPDATE"
	}
	var p models.Project
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &p, query, arg); err != nil {
		return nil, notFound(err, "project", arg)
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context, f ProjectFilter) ([]models.Project, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.ClientID != "" {
		where = append(where, "client_id = ?")
		args = append(args, f.ClientID)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", projectColumns, TableProject)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit), f.Offset)

	projects := []models.Project{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &projects, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Update writes every mutable column of the project.
func (r *ProjectRepository) Update(ctx context.Context, p *models.Project) error {
	p.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET name = :name, description = :description, status = :status,
		progress = :progress, notified_progress = :notified_progress, total_value = :total_value,
		start_date = :start_date, due_date = :due_date, delivery_date = :delivery_date,
		delivered_at = :delivered_at, updated_at = :updated_at WHERE id = :id`, TableProject)
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, p)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireAffected(res, "project", p.ID)
}

// ListDeliveryDue returns projects scheduled for delivery on or before day.
func (r *ProjectRepository) ListDeliveryDue(ctx context.Context, day time.Time) ([]models.Project, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status = ? AND delivery_date <= ? ORDER BY delivery_date ASC",
		projectColumns, TableProject)
	projects := []models.Project{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &projects, query, workflow.ProjectDeliveryScheduled, day); err != nil {
		return nil, fmt.Errorf("failed to list projects due for delivery: %w", err)
	}
	return projects, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", TableProject), id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireAffected(res, "project", id)
}
