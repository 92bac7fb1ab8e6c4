// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration applies the blog schema with golang-migrate.
//
// # Architecture
//
// PostgreSQL reads the numbered .sql files from the migrations directory on
// disk. The embedded SQLite store applies its own copy of the schema, compiled
// into the binary, through the same migrate engine and version table. Both run
// during startup, before the server accepts traffic.
package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/risyyz/ABCD-sub000/data/migrations"
)

// sqliteDirectory is the directory inside [migrations.SQLite] holding the files.
const sqliteDirectory = "sqlite"

// RunUp applies all pending PostgreSQL migrations.
//
// # Parameters
//   - dsn: A postgres:// or postgresql:// URL.
//   - migrationsPath: Filesystem path to the migrations directory.
//   - logger: Structured logger for migration events.
func RunUp(dsn string, migrationsPath string, logger *slog.Logger) error {
	migrator, err := migrate.New("file://"+migrationsPath, toPgx5URL(dsn))
	if err != nil {
		return fmt.Errorf("migration: failed to initialize: %w", err)
	}
	defer func() {
		sourceError, dbError := migrator.Close()
		if sourceError != nil {
			logger.Error("migration_source_close_failed", slog.Any("error", sourceError))
		}
		if dbError != nil {
			logger.Error("migration_db_close_failed", slog.Any("error", dbError))
		}
	}()

	_, err = apply(migrator, "postgres", logger)
	return err
}

// RunSQLite applies the embedded SQLite migrations to db and reports how many
// versions moved forward.
//
// The migrate database driver owns the handle it wraps and closes it on
// Close, so only the source is closed here and db stays open for the caller.
func RunSQLite(db *sql.DB, logger *slog.Logger) (int, error) {
	source, err := iofs.New(migrations.SQLite, sqliteDirectory)
	if err != nil {
		return 0, fmt.Errorf("migration: failed to open embedded sqlite files: %w", err)
	}
	defer source.Close()

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("migration: failed to wrap sqlite database: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("migration: failed to initialize: %w", err)
	}

	return apply(migrator, "sqlite", logger)
}

// apply runs every pending UP migration and returns the number of versions
// applied. A dirty version table stops startup.
func apply(migrator *migrate.Migrate, engine string, logger *slog.Logger) (int, error) {
	migrator.Log = &migrateLogger{logger: logger}
	logger = logger.With(slog.String("engine", engine))

	currentVersion, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("migration: failed to get current version: %w", err)
	}

	if isDirty {
		return 0, fmt.Errorf("migration: database is in a dirty state at version %d (manual intervention required)", currentVersion)
	}

	logger.Info("migration_started", slog.Int("current_version", int(currentVersion)))

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("migration_already_up_to_date")
			return 0, nil
		}
		return 0, fmt.Errorf("migration: up failed: %w", err)
	}

	newVersion, _, err := migrator.Version()
	if err != nil {
		return 0, fmt.Errorf("migration: failed to read new version: %w", err)
	}

	logger.Info("migration_successful",
		slog.Int("from_version", int(currentVersion)),
		slog.Int("to_version", int(newVersion)),
	)

	return int(newVersion - currentVersion), nil
}

// toPgx5URL rewrites postgres:// and postgresql:// URLs to the pgx5:// scheme
// the golang-migrate pgx/v5 driver registers.
func toPgx5URL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, found := strings.CutPrefix(dsn, prefix); found {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// migrateLogger adapts golang-migrate's logger interface to slog.
type migrateLogger struct {
	logger *slog.Logger
}

// Printf implements migrate.Logger.
func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Verbose implements migrate.Logger.
func (l *migrateLogger) Verbose() bool {
	return false
}
