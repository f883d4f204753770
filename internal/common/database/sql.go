// Package database opens the report store backends: a SQL database
// (PostgreSQL or SQLite), Redis and Elasticsearch.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"credit-assessment/internal/common/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLClient wraps the SQL database connection together with its driver name.
type SQLClient struct {
	DB     *sql.DB
	Driver string
}

// NewPostgres opens a PostgreSQL pool.
func NewPostgres(cfg config.PostgresConfig) (*SQLClient, error) {
	db, err := sql.Open(DriverPostgres, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLClient{DB: db, Driver: DriverPostgres}, nil
}

// NewSQLite opens a SQLite database file, or an in-memory database for
// ":memory:" and "file:...?mode=memory" paths.
func NewSQLite(path string) (*SQLClient, error) {
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure sqlite: %w", err)
	}
	return &SQLClient{DB: db, Driver: DriverSQLite}, nil
}

// Open selects the backend named by cfg.Storage.Driver.
func Open(cfg *config.Config) (*SQLClient, error) {
	switch cfg.Storage.Driver {
	case DriverPostgres:
		return NewPostgres(cfg.Database.Postgres)
	case DriverSQLite:
		return NewSQLite(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// Ping tests the database connection
func (c *SQLClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the database connection
func (c *SQLClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
