package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/domain/models"
)

const sessionColumns = "id, user_id, expires_at, ip_address, user_agent, is_revoked, last_activity, created_at"

// SessionRepository handles database operations for user sessions
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// InsertSession creates a new session in the database
func (r *SessionRepository) InsertSession(ctx context.Context, s *models.Session) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	if s.LastActivity.IsZero() {
		s.LastActivity = now
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s)
		VALUES (:id, :user_id, :expires_at, :ip_address, :user_agent, :is_revoked, :last_activity, :created_at)`,
		TableSession, sessionColumns)
	_, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, s)
	return err
}

// GetSession retrieves a session by its ID (the token's JTI).
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var s models.Session
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? LIMIT 1", sessionColumns, TableSession)
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &s, query, sessionID); err != nil {
		return nil, notFound(err, "session", sessionID)
	}
	return &s, nil
}

// RevokeSession marks a session as revoked
func (r *SessionRepository) RevokeSession(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("UPDATE %s SET is_revoked = TRUE WHERE id = ?", TableSession)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, sessionID)
	return err
}

// RevokeUserSessions revokes every live session of a user.
func (r *SessionRepository) RevokeUserSessions(ctx context.Context, userID string) error {
	query := fmt.Sprintf("UPDATE %s SET is_revoked = TRUE WHERE user_id = ? AND is_revoked = FALSE", TableSession)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, userID)
	return err
}

// UpdateLastActivity updates the last activity timestamp
func (r *SessionRepository) UpdateLastActivity(ctx context.Context, sessionID string) error {
	query := fmt.Sprintf("UPDATE %s SET last_activity = ? WHERE id = ?", TableSession)
	_, err := executor(ctx, r.db).ExecContext(ctx, query, time.Now().UTC(), sessionID)
	return err
}

// DeleteExpired removes sessions that expired before cutoff.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", TableSession)
	res, err := executor(ctx, r.db).ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
