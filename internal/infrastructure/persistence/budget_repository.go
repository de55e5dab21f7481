package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/domain/workflow"
	"github.com/devstudio/backoffice/pkg/errors"
)

const budgetColumns = `id, client_id, project_id, title, description, project_type, complexity, timeline,
	features, integrations, pages, breakdown, subtotal, total, down_payment_percent, down_payment_amount,
	final_payment_amount, business_days, estimated_delivery, valid_until, status, public_token, created_by,
	sent_at, accepted_at, created_at, updated_at`

// BudgetFilter narrows budget listings.
type BudgetFilter struct {
	Status   string
	ClientID string
	Limit    int
	Offset   int
}

type BudgetRepository struct {
	db *sqlx.DB
}

func NewBudgetRepository(db *sqlx.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Create(ctx context.Context, b *models.Budget) error {
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :client_id, :project_id, :title, :description,
		:project_type, :complexity, :timeline, :features, :integrations, :pages, :breakdown, :subtotal, :total,
		:down_payment_percent, :down_payment_amount, :final_payment_amount, :business_days, :estimated_delivery,
		:valid_until, :status, :public_token, :created_by, :sent_at, :accepted_at, :created_at, :updated_at)`,
		TableBudget, budgetColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, b); err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

func (r *BudgetRepository) Get(ctx context.Context, id string) (*models.Budget, error) {
	return r.getBy(ctx, "id = ?", id, false)
}

// GetForUpdate loads the budget with a row lock. Must run inside a transaction.
func (r *BudgetRepository) GetForUpdate(ctx context.Context, id string) (*models.Budget, error) {
	return r.getBy(ctx, "id = ?", id, true)
}

// GetByPublicToken resolves the client-facing link of a budget.
func (r *BudgetRepository) GetByPublicToken(ctx context.Context, token string) (*models.Budget, error) {
	return r.getBy(ctx, "public_token = ?", token, false)
}

func (r *BudgetRepository) getBy(ctx context.Context, cond, arg string, lock bool) (*models.Budget, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", budgetColumns, TableBudget, cond)
	if lock {
		query += " FOR UPDATE"
	}
	var b models.Budget
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &b, query, arg); err != nil {
		return nil, notFound(err, "budget", arg)
	}
	return &b, nil
}

func (r *BudgetRepository) List(ctx context.Context, f BudgetFilter) ([]models.Budget, error) {
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
	query := fmt.Sprintf("SELECT %s FROM %s", budgetColumns, TableBudget)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit), f.Offset)

	budgets := []models.Budget{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &budgets, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	return budgets, nil
}

// Update rewrites the editable fields and pricing of a budget.
func (r *BudgetRepository) Update(ctx context.Context, b *models.Budget) error {
	b.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET title = :title, description = :description, project_type = :project_type,
		complexity = :complexity, timeline = :timeline, features = :features, integrations = :integrations,
		pages = :pages, breakdown = :breakdown, subtotal = :subtotal, total = :total,
		down_payment_percent = :down_payment_percent, down_payment_amount = :down_payment_amount,
		final_payment_amount = :final_payment_amount, business_days = :business_days,
		estimated_delivery = :estimated_delivery, valid_until = :valid_until, updated_at = :updated_at
		WHERE id = :id`, TableBudget)
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, b)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	return requireAffected(res, "budget", b.ID)
}

// UpdateStatus moves a budget from one status to another. The update only
// applies while the row still holds from, so concurrent transitions cannot
// both succeed.
func (r *BudgetRepository) UpdateStatus(ctx context.Context, id string, from, to workflow.BudgetStatus) error {
	now := time.Now().UTC()
	sets := "status = ?, updated_at = ?"
	args := []interface{}{to, now}
	switch to {
	case workflow.BudgetSent:
		sets += ", sent_at = ?"
		args = append(args, now)
	case workflow.BudgetAccepted:
		sets += ", accepted_at = ?"
		args = append(args, now)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND status = ?", TableBudget, sets)
	args = append(args, id, from)

	res, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update budget status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewConflictError("budget", "status", string(from))
	}
	return nil
}

// SetProject links the budget to the project created from it.
func (r *BudgetRepository) SetProject(ctx context.Context, id, projectID string) error {
	query := fmt.Sprintf("UPDATE %s SET project_id = ?, updated_at = ? WHERE id = ?", TableBudget)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, projectID, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireAffected(res, "budget", id)
}

// ListExpirable returns sent budgets whose validity ended before day.
func (r *BudgetRepository) ListExpirable(ctx context.Context, day time.Time) ([]models.Budget, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status = ? AND valid_until < ? ORDER BY valid_until ASC",
		budgetColumns, TableBudget)
	budgets := []models.Budget{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &budgets, query, workflow.BudgetSent, day); err != nil {
		return nil, fmt.Errorf("failed to list expirable budgets: %w", err)
	}
	return budgets, nil
}
