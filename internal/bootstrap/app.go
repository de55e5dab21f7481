// Package bootstrap assembles the process: database, external clients and
// the service manager, plus the startup checks run before serving.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/devstudio/backoffice/internal/application/services"
	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/internal/i18n"
	"github.com/devstudio/backoffice/internal/infrastructure/cache"
	"github.com/devstudio/backoffice/internal/infrastructure/database"
	"github.com/devstudio/backoffice/internal/infrastructure/mailer"
	"github.com/devstudio/backoffice/internal/infrastructure/payments"
	"github.com/devstudio/backoffice/internal/logging"
)

// App holds everything a process needs after startup.
type App struct {
	Config   *config.Config
	DB       *database.Connection
	Services *services.ServiceManager

	closers []func() error
}

// New connects to the database and external services and wires the
// service manager. Redis and Stripe are optional.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: db}
	app.closers = append(app.closers, db.Close)

	deps, err := app.dependencies(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	sm, err := services.NewServiceManager(db.DB, cfg, deps)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.Services = sm
	log.Println("🔧 Service manager initialized")
	return app, nil
}

func (a *App) dependencies(ctx context.Context) (services.Dependencies, error) {
	cfg := a.Config
	var deps services.Dependencies

	// Gateway must stay a nil interface when Stripe is off.
	if cfg.Stripe.SecretKey != "" {
		deps.Gateway = payments.NewStripeGateway(cfg.Stripe, nil)
		log.Printf("💳 Stripe gateway enabled (key %s)", logging.MaskSecret(cfg.Stripe.SecretKey))
	} else {
		log.Println("⚠️  Stripe is not configured, checkout and webhooks are disabled")
	}

	if cfg.Redis.Addr != "" {
		store, err := cache.NewRedisStore(ctx, cfg.Redis)
		if err != nil {
			return deps, err
		}
		a.closers = append(a.closers, store.Close)
		deps.Idempotency = store
		log.Printf("📦 Redis idempotency store at %s", cfg.Redis.Addr)
	} else {
		deps.Idempotency = cache.NopStore{}
	}

	m, err := mailer.New(cfg.Mail)
	if err != nil {
		return deps, err
	}
	deps.Mailer = m

	translator, err := i18n.New(cfg.Mail.Locale)
	if err != nil {
		return deps, fmt.Errorf("failed to load translations: %w", err)
	}
	deps.Translator = translator
	return deps, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("⚠️  Close failed: %v", err)
		}
	}
	a.closers = nil
}
