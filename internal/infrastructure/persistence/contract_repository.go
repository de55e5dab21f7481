package persistence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/database"
	"github.com/devstudio/backoffice/pkg/errors"
)

const contractColumns = "id, budget_id, client_id, number, title, body, status, sent_at, signed_at, created_at, updated_at"

type ContractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// NextNumber returns the next sequential contract number of the year,
// formatted CT-<year>-<seq>. Inside a transaction the year's numbers stay
// locked until commit; the unique key on number still rejects a duplicate.
func (r *ContractRepository) NextNumber(ctx context.Context, year int) (string, error) {
	prefix := fmt.Sprintf("CT-%d-", year)
	query := fmt.Sprintf("SELECT COALESCE(MAX(number), '') FROM %s WHERE number LIKE ?", TableContract)
	if ExtractTx(ctx) != nil {
		query += " FOR UPDATE"
	}
	var last string
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &last, query, prefix+"%"); err != nil {
		return "", fmt.Errorf("failed to read last contract number: %w", err)
	}
	seq := 0
	if last != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if err != nil {
			return "", fmt.Errorf("unexpected contract number %q: %w", last, err)
		}
		seq = n
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

func (r *ContractRepository) Create(ctx context.Context, c *models.Contract) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (:id, :budget_id, :client_id, :number, :title, :body, :status,
		:sent_at, :signed_at, :created_at, :updated_at)`, TableContract, contractColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, c); err != nil {
		if database.IsDuplicateKey(err) {
			return errors.NewConflictError("contract", "number", c.Number)
		}
		return fmt.Errorf("failed to insert contract: %w", err)
	}
	return nil
}

func (r *ContractRepository) Get(ctx context.Context, id string) (*models.Contract, error) {
	var c models.Contract
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", contractColumns, TableContract)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &c, query, id); err != nil {
		return nil, notFound(err, "contract", id)
	}
	return &c, nil
}

// List returns contracts, optionally restricted to one budget.
func (r *ContractRepository) List(ctx context.Context, budgetID string, limit, offset int) ([]models.Contract, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", contractColumns, TableContract)
	var args []interface{}
	if budgetID != "" {
		query += " WHERE budget_id = ?"
		args = append(args, budgetID)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(limit), offset)

	contracts := []models.Contract{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &contracts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, nil
}

// UpdateStatus moves a contract from one status to another and stamps the
// matching timestamp.
func (r *ContractRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	now := time.Now().UTC()
	sets := "status = ?, updated_at = ?"
	args := []interface{}{to, now}
	switch to {
	case models.ContractSent:
		sets += ", sent_at = ?"
		args = append(args, now)
	case models.ContractSigned:
		sets += ", signed_at = ?"
		args = append(args, now)
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND status = ?", TableContract, sets)
	args = append(args, id, from)

	res, err := executor(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update contract status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewConflictError("contract", "status", from)
	}
	return nil
}
