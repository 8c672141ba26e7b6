package stmthandler

import (
	"errors"
	"strings"
)

// ConstraintKind classifies a driver error returned from Update as one of the
// constraint violations an Executor may need to react to differently than a
// generic ExecutionError (e.g. retrying an upsert, or surfacing a friendlier
// duplicate-key message).
type ConstraintKind int

const (
	NoConstraint ConstraintKind = iota
	UniqueConstraint
	ForeignKeyConstraint
	CheckConstraint
)

// errorCoder is implemented by drivers that expose a string SQLSTATE-style
// code, e.g. pgx's pgconn.PgError.
type errorCoder interface {
	Code() string
}

// errorNumberer is implemented by drivers that expose a numeric error code,
// e.g. go-sql-driver/mysql's *mysql.MySQLError.
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is implemented by drivers that expose a SQLSTATE code under
// a distinct method name from errorCoder, e.g. lib/pq's *pq.Error.
type sqlStateError interface {
	SQLState() string
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
)

// ClassifyConstraint inspects err (returned from Update, possibly wrapped in
// an ExecutionError) and reports which kind of constraint violation it is,
// if any. It recognizes the driver error shapes used by pgx/lib/pq,
// go-sql-driver/mysql, and modernc.org/sqlite/mattn/go-sqlite3, falling back
// to substring matching for drivers that expose none of those interfaces.
func ClassifyConstraint(err error) ConstraintKind {
	if err == nil {
		return NoConstraint
	}
	if code, ok := stateCode(err); ok {
		switch code {
		case pgUniqueViolation:
			return UniqueConstraint
		case pgForeignKeyViolation:
			return ForeignKeyConstraint
		case pgCheckViolation:
			return CheckConstraint
		}
	}
	if num, ok := errorNumber(err); ok {
		switch {
		case num == mysqlDuplicateEntry:
			return UniqueConstraint
		case num == mysqlForeignKeyParent || num == mysqlForeignKeyChild:
			return ForeignKeyConstraint
		case num == mysqlCheckConstraintViolate:
			return CheckConstraint
		}
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "Error 1062", "violates unique constraint", "UNIQUE constraint failed"):
		return UniqueConstraint
	case containsAny(msg, "Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"):
		return ForeignKeyConstraint
	case containsAny(msg, "Error 3819", "violates check constraint", "CHECK constraint failed"):
		return CheckConstraint
	}
	return NoConstraint
}

// IsConstraintError reports whether err resulted from any recognized
// constraint violation.
func IsConstraintError(err error) bool {
	return ClassifyConstraint(err) != NoConstraint
}

func stateCode(err error) (string, bool) {
	if e, ok := asError[sqlStateError](err); ok {
		return e.SQLState(), true
	}
	if e, ok := asError[errorCoder](err); ok {
		return e.Code(), true
	}
	return "", false
}

func errorNumber(err error) (uint16, bool) {
	if e, ok := asError[errorNumberer](err); ok {
		return e.Number(), true
	}
	return 0, false
}

func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
