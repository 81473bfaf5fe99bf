package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/smartexpense/smartexpense/internal/shared"
)

// PostgreSQL SQLSTATE codes we react to.
const (
	codeUniqueViolation  = "23505"
	codeNotNullViolation = "23502"
	codeCheckViolation   = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// TranslateWriteError attaches per-column detail to constraint failures so the
// API can report which field the store rejected.
func TranslateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeNotNullViolation:
		return &shared.PersistenceError{Err: err, Fields: []shared.FieldError{{Field: pgErr.ColumnName, Message: "is required"}}}
	case codeCheckViolation:
		field := pgErr.ColumnName
		if field == "" {
			field = pgErr.ConstraintName
		}
		return &shared.PersistenceError{Err: err, Fields: []shared.FieldError{{Field: field, Message: pgErr.Message}}}
	}
	return err
}
