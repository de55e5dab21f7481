package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devstudio/backoffice/internal/bootstrap"
	"github.com/devstudio/backoffice/internal/config"
	"github.com/devstudio/backoffice/internal/infrastructure/database"
	"github.com/devstudio/backoffice/internal/interfaces/rest"
	"github.com/devstudio/backoffice/internal/logging"
)

func main() {
	configFile := flag.String("config", "", "path to backoffice.yaml")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Apply pending migrations before the pool is opened
	migrator, err := database.NewMigrator(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to prepare migrations: %v", err)
	}
	if err := migrator.Up(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	_ = migrator.Close()
	log.Println("✅ Database schema is up to date")

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer app.Close()
	svcMgr := app.Services

	if err := bootstrap.EnsureAdmin(ctx, svcMgr.Auth); err != nil {
		log.Printf("⚠️  Warning: Failed to seed admin user: %v", err)
	}

	// Run startup assertions to detect inconsistent workflow data
	// By default, violations are fatal (strict mode). Set SKIP_ASSERTIONS=true to skip.
	if os.Getenv("SKIP_ASSERTIONS") != "true" {
		if _, err := bootstrap.RunAssertions(ctx, app.DB.DB, true); err != nil {
			log.Fatalf("❌ Startup assertions failed: %v", err)
		}
	} else {
		log.Println("⚠️  Skipping startup assertions (SKIP_ASSERTIONS=true)")
	}

	router := rest.NewRouter(svcMgr, cfg)

	// Start background workers
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if err := svcMgr.StartBackground(bgCtx); err != nil {
		log.Fatalf("Failed to start background workers: %v", err)
	}
	log.Println("📤 Outbox worker and scheduler started")

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	log.Println("\n═══════════════════════════════════════════════════════════════════════════")
	log.Println("🚀 Backoffice API Started Successfully")
	log.Println("═══════════════════════════════════════════════════════════════════════════")
	log.Printf("\n📍 Server:         http://localhost:%d", cfg.Server.Port)
	log.Printf("🔐 Auth API:       http://localhost:%d/api/auth", cfg.Server.Port)
	log.Printf("💰 Pricing API:    http://localhost:%d/api/pricing", cfg.Server.Port)
	log.Printf("💳 Stripe webhook: http://localhost:%d/api/webhooks/stripe", cfg.Server.Port)
	log.Printf("💚 Health check:   http://localhost:%d/health\n", cfg.Server.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Stop background workers after the last request finished
	stopBackground()
	svcMgr.StopBackground()
	log.Println("🛑 Background workers stopped")

	log.Println("Server exiting")
}
