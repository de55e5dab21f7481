package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/internal/logging"
	"github.com/devstudio/backoffice/pkg/auth"
	"github.com/devstudio/backoffice/pkg/errors"
	"github.com/devstudio/backoffice/pkg/utils"
)

// AuthService handles authentication, session management, and password operations
type AuthService struct {
	users    UserStore
	sessions SessionStore
	tokens   *auth.TokenIssuer
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, sessions SessionStore, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
	}
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Token     string           `json:"token"`
	User      auth.UserSession `json:"user"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func sessionOf(u *models.User) auth.UserSession {
	return auth.UserSession{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// Login authenticates a user and creates a session
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	log := logging.FromContext(ctx)

	// 1. Find user by email
	user, err := s.users.FindUserByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			log.Warnf("⚠️ Login failed for %s: user not found", logging.MaskEmail(email))
			return nil, errors.NewUnauthorizedError("Invalid email or password")
		}
		return nil, err
	}

	// 2. Verify password
	if !user.IsActive {
		log.Warnf("⚠️ Login failed for %s: user inactive", logging.MaskEmail(email))
		return nil, errors.NewUnauthorizedError("Invalid email or password")
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		log.Warnf("⚠️ Login failed for %s: invalid password", logging.MaskEmail(email))
		return nil, errors.NewUnauthorizedError("Invalid email or password")
	}

	// 3. Generate JWT token
	userSession := sessionOf(user)
	token, claims, err := s.tokens.GenerateToken(userSession)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// 4. Store session so it can be revoked
	expiresAt := claims.ExpiresAt.Time
	if err := s.sessions.InsertSession(ctx, &models.Session{
		ID:        claims.ID,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		IPAddress: ip,
		UserAgent: userAgent,
	}); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	log.Infof("🔑 User logged in: %s", user.ID)
	return &LoginResult{
		Token:     token,
		User:      userSession,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession checks if a session token is valid and active in the database
func (s *AuthService) ValidateSession(ctx context.Context, tokenString string) (*auth.Claims, error) {
	// 1. Verify JWT signature and claims
	claims, err := s.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, errors.NewUnauthorizedError("Invalid or expired token")
	}

	// 2. Check DB for revocation
	session, err := s.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewUnauthorizedError("Session not found")
		}
		return nil, err
	}
	if session.IsRevoked {
		return nil, errors.NewUnauthorizedError("Session has been revoked")
	}
	return claims, nil
}

// TouchSession updates the last activity timestamp for a session
func (s *AuthService) TouchSession(sessionID string) {
	// Fire and forget - errors are acceptable for non-critical activity timestamps
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.sessions.UpdateLastActivity(ctx, sessionID)
	}()
}

// Logout Revokes a session
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := auth.DecodeToken(tokenString)
	if err != nil {
		return errors.NewValidationError("token", "Invalid token")
	}
	if err := s.sessions.RevokeSession(ctx, claims.ID); err != nil {
		return err
	}
	logging.FromContext(ctx).Infof("👋 User logged out: %s (Session: %s)", claims.Subject, claims.ID)
	return nil
}

// ChangePassword updates a user's password and revokes all of their
// sessions, so every device has to log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	// 1. Validate Strength
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return errors.NewValidationError("new_password", err.Error())
	}

	// 2. Verify current password
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(currentPassword, user.PasswordHash) {
		return errors.NewUnauthorizedError("Current password is incorrect")
	}

	// 3. Hash New
	newHash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	// 4. Update
	if err := s.users.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}
	if err := s.sessions.RevokeUserSessions(ctx, userID); err != nil {
		return err
	}
	logging.FromContext(ctx).Infof("🔐 Password changed for user: %s", userID)
	return nil
}

// Me returns the current user
func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// ListUsers returns all operators.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.FindAll(ctx)
}

// CreateUser adds an operator with the given role.
func (s *AuthService) CreateUser(ctx context.Context, name, email, password, role string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewValidationError("name", "name is required")
	}
	if !utils.IsValidEmail(email) {
		return nil, errors.NewValidationError("email", "invalid email address")
	}
	if role != auth.RoleAdmin && role != auth.RoleMember {
		return nil, errors.NewValidationError("role", fmt.Sprintf("invalid role %q", role))
	}
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return nil, errors.NewValidationError("password", err.Error())
	}
	email = utils.NormalizeEmail(email)
	exists, err := s.users.CheckUserExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.NewConflictError("user", "email", email)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u := &models.User{
		ID:           utils.GenerateID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Infof("👤 User %s created with role %s", u.ID, role)
	return u, nil
}

// CreateAdmin bootstraps an admin account.
func (s *AuthService) CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	return s.CreateUser(ctx, name, email, password, auth.RoleAdmin)
}

// CleanupSessions removes sessions that expired before cutoff.
func (s *AuthService) CleanupSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.sessions.DeleteExpired(ctx, cutoff)
}
