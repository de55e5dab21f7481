package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
)

const milestoneColumns = "id, project_id, title, due_date, is_completed, completed_at, created_at, updated_at"

type MilestoneRepository struct {
	db *sqlx.DB
}

func NewMilestoneRepository(db *sqlx.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

func (r *MilestoneRepository) Create(ctx context.Context, m *models.Milestone) error {
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :project_id, :title, :due_date, :is_completed,
		:completed_at, :created_at, :updated_at)`, TableMilestone, milestoneColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, m); err != nil {
		return fmt.Errorf("failed to insert milestone: %w", err)
	}
	return nil
}

func (r *MilestoneRepository) Get(ctx context.Context, id string) (*models.Milestone, error) {
	var m models.Milestone
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", milestoneColumns, TableMilestone)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &m, query, id); err != nil {
		return nil, notFound(err, "milestone", id)
	}
	return &m, nil
}

func (r *MilestoneRepository) ListByProject(ctx context.Context, projectID string) ([]models.Milestone, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE project_id = ? ORDER BY due_date ASC", milestoneColumns, TableMilestone)
	milestones := []models.Milestone{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &milestones, query, projectID); err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

func (r *MilestoneRepository) Update(ctx context.Context, m *models.Milestone) error {
	m.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET title = :title, due_date = :due_date, is_completed = :is_completed,
		completed_at = :completed_at, updated_at = :updated_at WHERE id = :id`, TableMilestone)
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, m)
	if err != nil {
		return fmt.Errorf("failed to update milestone: %w", err)
	}
	return requireAffected(res, "milestone", m.ID)
}

func (r *MilestoneRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", TableMilestone), id)
	if err != nil {
		return fmt.Errorf("failed to delete milestone: %w", err)
	}
	return requireAffected(res, "milestone", id)
}
