package bootstrap

import (
	"context"
	"log"
	"os"

	"github.com/devstudio/backoffice/internal/domain/models"
	"github.com/devstudio/backoffice/pkg/auth"
)

// Environment variables read by EnsureAdmin.
const (
	EnvAdminName     = "BACKOFFICE_ADMIN_NAME"
	EnvAdminEmail    = "BACKOFFICE_ADMIN_EMAIL"
	EnvAdminPassword = "BACKOFFICE_ADMIN_PASSWORD"
)

// AdminCreator is the part of the auth service used to seed the first admin.
type AdminCreator interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateAdmin(ctx context.Context, name, email, password string) (*models.User, error)
}

// EnsureAdmin creates the first admin from the environment when the user
// table has no admin yet. It does nothing when the variables are unset.
func EnsureAdmin(ctx context.Context, users AdminCreator) error {
	email := os.Getenv(EnvAdminEmail)
	password := os.Getenv(EnvAdminPassword)
	if email == "" || password == "" {
		return nil
	}

	existing, err := users.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range existing {
		if u.Role == auth.RoleAdmin {
			return nil
		}
	}

	name := os.Getenv(EnvAdminName)
	if name == "" {
		name = "Admin"
	}
	u, err := users.CreateAdmin(ctx, name, email, password)
	if err != nil {
		return err
	}
	log.Printf("   ✅ Seeded admin %s", u.ID)
	return nil
}
