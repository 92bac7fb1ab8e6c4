// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
//
// Both storage backends are understood: pgx/pgconn errors from PostgreSQL and
// modernc.org/sqlite errors from the embedded store.
package dberr

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/risyyz/ABCD-sub000/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// Wrap inspects a database error and wraps it into a meaningful [apperr.AppError].
// It hides internal database details from the client while classifying the error type.
//
// Errors that already are [*apperr.AppError] pass through untouched.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if apperr.IsAppError(err) {
		return err
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Constraint violations
	if IsUniqueViolation(err) {
		return apperr.Conflict("A record with the same unique value already exists")
	}
	if IsForeignKeyViolation(err) {
		return apperr.Conflict("The record is still referenced by other records")
	}

	// 3. Unknown query errors become Internal Server Errors
	return apperr.Internal(fmt.Errorf("%s: %w", action, err))
}

// IsUniqueViolation reports whether err is a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		return pgError.Code == pgerrcode.UniqueViolation
	}

	var sqliteError *sqlite.Error
	if errors.As(err, &sqliteError) {
		return sqliteError.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteError.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY ||
			isSQLiteConstraint(sqliteError, "UNIQUE constraint failed")
	}

	return false
}

// IsForeignKeyViolation reports whether err is a foreign key constraint failure.
func IsForeignKeyViolation(err error) bool {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		return pgError.Code == pgerrcode.ForeignKeyViolation
	}

	var sqliteError *sqlite.Error
	if errors.As(err, &sqliteError) {
		return sqliteError.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
			isSQLiteConstraint(sqliteError, "FOREIGN KEY constraint failed")
	}

	return false
}

// isSQLiteConstraint matches the primary SQLITE_CONSTRAINT code by message,
// for connections that do not report extended result codes.
func isSQLiteConstraint(err *sqlite.Error, message string) bool {
	return err.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), message)
}
