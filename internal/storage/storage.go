// Package storage opens the database backends selected by DATABASE_URL.
//
// An empty URL selects in-process memory. postgres:// and postgresql:// URLs
// open a pgx pool. sqlite: and file: URLs (or a bare path ending in .db)
// open an embedded SQLite database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// ParseURL classifies databaseURL and returns the DSN to hand to the driver.
func ParseURL(databaseURL string) (Backend, string, error) {
	raw := strings.TrimSpace(databaseURL)
	lower := strings.ToLower(raw)
	switch {
	case raw == "":
		return BackendMemory, "", nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return BackendPostgres, raw, nil
	case strings.HasPrefix(lower, "sqlite://"):
		return BackendSQLite, raw[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "sqlite:"):
		return BackendSQLite, raw[len("sqlite:"):], nil
	case strings.HasPrefix(lower, "file:"), strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return BackendSQLite, raw, nil
	default:
		return "", "", fmt.Errorf("unsupported DATABASE_URL scheme in %q", raw)
	}
}

// OpenPostgres connects a pgx pool and verifies it with a ping.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// OpenSQLite opens dsn with the modernc driver. SQLite allows one writer at
// a time, so the handle is limited to a single connection; this also keeps
// ":memory:" databases from splitting across connections.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return db, nil
}
