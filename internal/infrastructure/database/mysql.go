package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/devstudio/backoffice/internal/config"
)

// Connection wraps the sqlx pool. sql.DB is already safe for concurrent use
// and manages its own pool, so no extra locking is added here.
type Connection struct {
	*sqlx.DB
}

var tlsOnce sync.Once

// registerTLS registers the "tidb" TLS profile used for remote hosts.
func registerTLS(host string) {
	tlsOnce.Do(func() {
		if err := mysql.RegisterTLSConfig("tidb", &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: host,
		}); err != nil {
			log.Printf("⚠️ Failed to register TLS config: %v", err)
		}
	})
}

// Open connects to MySQL/TiDB and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Connection, error) {
	if cfg.IsRemote() {
		registerTLS(cfg.Host)
	}

	db, err := sqlx.Open("mysql", cfg.DSN(false))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// MaxIdleConns matches MaxOpenConns so connections are not churned
	// under load, which exhausts ephemeral ports.
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(50)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("✅ Connected to database %s@%s:%d/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
	return &Connection{DB: db}, nil
}

// Wrap adapts an existing sqlx handle, e.g. one backed by sqlmock.
func Wrap(db *sqlx.DB) *Connection {
	return &Connection{DB: db}
}
