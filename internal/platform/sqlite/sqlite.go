// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sqlite provides the embedded database used for local development and
repository tests.

It opens a modernc.org/sqlite database (pure Go, no cgo), applies the embedded
schema migrations through golang-migrate, and offers a context-carried transaction
helper so repositories can compose several writes atomically.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/risyyz/ABCD-sub000/internal/platform/migration"
)

// Pragmas applied to every connection in the pool through the DSN.
const pragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// maxOpenConns keeps a single writer; SQLite serialises writes anyway.
const maxOpenConns = 1

// Open creates the parent directory if needed, opens the database file at
// path and applies pending migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+pragmas)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)

	if err := Ping(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	applied, err := migration.RunSQLite(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite database opened",
		slog.String("path", path),
		slog.Int("migrations_applied", applied),
	)

	return db, nil
}

// Ping verifies that the database answers queries.
func Ping(ctx context.Context, db *sql.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return nil
}
