package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gdugdh24/swipematch/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const defaultPingTimeout = 5 * time.Second

// NewPostgresDB connects with the pool limits from cfg and waits up to cfg.PingTimeout
// for the server to answer.
func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout(cfg.PingTimeout))
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func pingTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultPingTimeout
	}
	return d
}
