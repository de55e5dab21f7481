package persistence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/infrastructure/database"
	"github.com/devstudio/backoffice/pkg/errors"
)

const clientColumns = "id, name, email, phone, company, document, notes, created_at, updated_at"

// ClientFilter narrows client listings.
type ClientFilter struct {
	Search string
	Limit  int
	Offset int
}

type ClientRepository struct {
	db *sqlx.DB
}

func NewClientRepository(db *sqlx.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) Create(ctx context.Context, c *models.Client) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES (:id, :name, :email, :phone, :company, :document, :notes, :created_at, :updated_at)`,
		TableClient, clientColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, c); err != nil {
		if database.IsDuplicateKey(err) {
			return errors.NewConflictError("client", "email", c.Email)
		}
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func (r *ClientRepository) Get(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", clientColumns, TableClient)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &c, query, id); err != nil {
		return nil, notFound(err, "client", id)
	}
	return &c, nil
}

// GetByEmail looks a client up by normalized email.
func (r *ClientRepository) GetByEmail(ctx context.Context, email string) (*models.Client, error) {
	var c models.Client
	query := fmt.Sprintf("SELECT %s FROM %s WHERE email = ?", clientColumns, TableClient)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &c, query, email); err != nil {
		return nil, notFound(err, "client", email)
	}
	return &c, nil
}

func (r *ClientRepository) List(ctx context.Context, f ClientFilter) ([]models.Client, error) {
	var (
		where []string
		args  []interface{}
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(name LIKE ? OR email LIKE ? OR company LIKE ?)")
		like := "%" + s + "%"
		args = append(args, like, like, like)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", clientColumns, TableClient)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY name ASC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(f.Limit), f.Offset)

	clients := []models.Client{}
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &clients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

func (r *ClientRepository) Update(ctx context.Context, c *models.Client) error {
	c.UpdatedAt = time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET name = :name, email = :email, phone = :phone, company = :company,
		document = :document, notes = :notes, updated_at = :updated_at WHERE id = :id`, TableClient)
	res, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, c)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return errors.NewConflictError("client", "email", c.Email)
		}
		return fmt.Errorf("failed to update client: %w", err)
	}
	return requireAffected(res, "client", c.ID)
}

func (r *ClientRepository) Delete(ctx context.Context, id string) error {
	res, err := executor(ctx, r.db).ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", TableClient), id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return requireAffected(res, "client", id)
}
