package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/arcade-tournaments/db"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

type violationKind int

const (
	violationUnique violationKind = iota + 1
	violationForeignKey
	violationCheck
)

// constraintViolation normalizes Postgres and SQLite constraint errors.
// detail is the Postgres constraint name or the SQLite error message,
// which names the failing columns or index.
type constraintViolation struct {
	kind   violationKind
	detail string
}

func (v constraintViolation) mentions(names ...string) bool {
	for _, name := range names {
		if strings.Contains(v.detail, name) {
			return true
		}
	}
	return false
}

func asConstraintViolation(err error) (constraintViolation, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return constraintViolation{kind: violationUnique, detail: pqErr.Constraint}, true
		case "23503": // foreign_key_violation
			return constraintViolation{kind: violationForeignKey, detail: pqErr.Constraint}, true
		case "23514": // check_violation
			return constraintViolation{kind: violationCheck, detail: pqErr.Constraint}, true
		}
		return constraintViolation{}, false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return constraintViolation{kind: violationUnique, detail: sqliteErr.Error()}, true
		case sqlite3.ErrConstraintForeignKey:
			return constraintViolation{kind: violationForeignKey, detail: sqliteErr.Error()}, true
		case sqlite3.ErrConstraintCheck:
			return constraintViolation{kind: violationCheck, detail: sqliteErr.Error()}, true
		}
	}
	return constraintViolation{}, false
}

func executorOr(exec db.Gateway, fallback db.Gateway) db.Gateway {
	if exec != nil {
		return exec
	}
	return fallback
}
