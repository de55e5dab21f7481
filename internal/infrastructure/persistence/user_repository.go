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

const userColumns = "id, name, email, password_hash, role, is_active, created_at, updated_at"

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CheckUserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE email = ?)", TableUser)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &exists, query, email); err != nil {
		return false, err
	}
	return exists, nil
}

// CountAdmins returns the number of active admin users.
func (r *UserRepository) CountAdmins(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE role = ? AND is_active = TRUE", TableUser)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &n, query, "admin"); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	query := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES (:id, :name, :email, :password_hash, :role, :is_active, :created_at, :updated_at)`, TableUser, userColumns)
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, u); err != nil {
		if database.IsDuplicateKey(err) {
			return errors.NewConflictError("user", "email", u.Email)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByID fetches a user, password hash included.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", userColumns, TableUser)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &u, query, userID); err != nil {
		return nil, notFound(err, "user", userID)
	}
	return &u, nil
}

// FindUserByEmail fetches a user by email, password hash included.
func (r *UserRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	query := fmt.Sprintf("SELECT %s FROM %s WHERE email = ? LIMIT 1", userColumns, TableUser)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &u, query, email); err != nil {
		return nil, notFound(err, "user", email)
	}
	return &u, nil
}

// FindAll retrieves all users, newest first.
func (r *UserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", userColumns, TableUser)
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListActiveIDs returns the IDs of active users; notifications fan out to them.
func (r *UserRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	query := fmt.Sprintf("SELECT id FROM %s WHERE is_active = TRUE", TableUser)
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return ids, nil
}

// UpdatePassword updates the user's password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := fmt.Sprintf("UPDATE %s SET password_hash = ?, updated_at = ? WHERE id = ?", TableUser)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, passwordHash, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "user", userID)
}

// SetActive enables or disables a user.
func (r *UserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	query := fmt.Sprintf("UPDATE %s SET is_active = ?, updated_at = ? WHERE id = ?", TableUser)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, active, time.Now().UTC(), userID)
	if err != nil {
		return err
	}
	return requireAffected(res, "user", userID)
}
