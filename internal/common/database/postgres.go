// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"action-engine/internal/common/config"
)

// PostgresClient backs the audit log.
type PostgresClient struct {
	DB       *sql.DB
	host     string
	database string
}

// NewPostgres opens a lazy pool; no connection is made until first use.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres %s/%s: %w", cfg.Host, cfg.Database, err)
	}

	lifetime := config.GetDuration(cfg.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(lifetime)
	db.SetConnMaxIdleTime(lifetime)

	return &PostgresClient{DB: db, host: cfg.Host, database: cfg.Database}, nil
}

// Ping is the readiness probe.
func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres %s/%s unreachable: %w", c.host, c.database, err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
