package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// OpenOptions tunes the history database connection.
type OpenOptions struct {
	BusyTimeoutMS int // 0 means 5000
	MaxOpenConns  int // 0 leaves the database/sql default
}

// Open creates the parent directory of path if needed, opens the SQLite
// database there and applies pending migrations.
func Open(ctx context.Context, path string, opts OpenOptions) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	busy := opts.BusyTimeoutMS
	if busy <= 0 {
		busy = 5000
	}
	// Immediate transactions take the write lock up front so two
	// concurrent upserts wait on busy_timeout instead of failing.
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=%d&_txlock=immediate", path, busy)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := NewMigrationRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}
