package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/pkg/errors"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

func TestCheckUserExistsByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	email := "test@example.com"
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE email = ?)", TableUser)

	// Test Case 1: User exists
	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(email).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.CheckUserExistsByEmail(context.Background(), email)
	assert.NoError(t, err)
	assert.True(t, exists)

	// Test Case 2: User does not exist
	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("nonexistent@example.com").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err = repo.CheckUserExistsByEmail(context.Background(), "nonexistent@example.com")
	assert.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE email = ? LIMIT 1", userColumns, TableUser)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("ana@studio.dev").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}).
			AddRow("u1", "Ana", "ana@studio.dev", "$2a$hash", "admin", true, now, now))

	u, err := repo.FindUserByEmail(context.Background(), "ana@studio.dev")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "$2a$hash", u.PasswordHash)
	assert.True(t, u.IsActive)

	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs("ghost@studio.dev").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindUserByEmail(context.Background(), "ghost@studio.dev")
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePassword(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	query := fmt.Sprintf("UPDATE %s SET password_hash = ?, updated_at = ? WHERE id = ?", TableUser)
	mock.ExpectExec(regexp.QuoteMeta(query)).WithArgs("new-hash", sqlmock.AnyArg(), "u1").WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, repo.UpdatePassword(context.Background(), "u1", "new-hash"))

	mock.ExpectExec(regexp.QuoteMeta(query)).WithArgs("new-hash", sqlmock.AnyArg(), "missing").WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdatePassword(context.Background(), "missing", "new-hash")
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnError(duplicateKeyErr())
	err := repo.Create(context.Background(), &models.User{ID: "u2", Email: "ana@studio.dev", Role: "admin"})
	assert.True(t, errors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO sessions").WillReturnResult(sqlmock.NewResult(0, 1))
	s := &models.Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.InsertSession(ctx, s))
	assert.False(t, s.LastActivity.IsZero())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET is_revoked = TRUE WHERE id = ?")).WithArgs("s1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RevokeSession(ctx, "s1"))

	mock.ExpectQuery(regexp.QuoteMeta(fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", sessionColumns, TableSession))).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_revoked"}).AddRow("s1", "u1", true))
	got, err := repo.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.IsRevoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}
