package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/database"
	"github.com/devstudio/backoffice/pkg/errors"
)

const teamColumns = "id, name, email, role, is_active, created_at, updated_at"

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) Create(ctx context.Context, m *models.TeamMember) error {
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES (:id, :name, :email, :role, :is_active, :created_at, :updated_at)`, TableTeamMember, teamColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, m); err != nil {
		if database.IsDuplicateKey(err) {
			return errors.NewConflictError("team member", "email", m.Email)
		}
		return fmt.Errorf("failed to insert team member: %w", err)
	}
	return nil
}

func (r *TeamRepository) Get(ctx context.Context, id string) (*models.TeamMember, error) {
	var m models.TeamMember
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", teamColumns, TableTeamMember)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &m, query, id); err != nil {
		return nil, notFound(err, "team member", id)
	}
	return &m, nil
}

func (r *TeamRepository) List(ctx context.Context, activeOnly bool) ([]models.TeamMember, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", teamColumns, TableTeamMember)
	if activeOnly {
		query += " WHERE is_active = TRUE"
	}
	query += " ORDER BY name ASC"

	members := []models.TeamMember{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &members, query); err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}

func (r *TeamRepository) Update(ctx context.Context, m *models.TeamMember) error {
	m.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET name = :name, email = :email, role = :role, is_active = :is_active,
		updated_at = :updated_at WHERE id = :id`, TableTeamMember)
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, m)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return errors.NewConflictError("team member", "email", m.Email)
		}
		return fmt.Errorf("failed to update team member: %w", err)
	}
	return requireAffected(res, "team member", m.ID)
}

func (r *TeamRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", TableTeamMember), id)
	if err != nil {
		return fmt.Errorf("failed to delete team member: %w", err)
	}
	return requireAffected(res, "team member", id)
}
