// Package sql adapts database/sql to the stmthandler.Conn capability the
// rest of the module is built against: a thin Driver
// wrapping *sql.DB that lends out connections, session variables applied
// per statement, and a StatsConn decorator for query statistics.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/veloxsql/veloxsql/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores,
// dots for schema.name) before splicing one into a SET/RESET statement.
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string value for safe splicing into a SET
// statement: doubles single quotes, escapes backslashes (MySQL
// compatibility). Session variable values go through this, never through a
// bound parameter, because SET/RESET accept no placeholders on most
// dialects.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// Driver wraps a *sql.DB and lends it out as a Conn. Its Borrow and Return
// take this package's Conn rather than stmthandler.Conn, so *Driver is not
// itself a veloxsql.DataSource. Borrow returns the pool itself — database/sql already multiplexes a single *DB
// across goroutines — and BeginTx starts a transaction. Return is a
// no-op for the pool; database/sql reclaims a connection automatically
// once the statement or rows using it are closed.
type Driver struct {
	db      *sql.DB
	dialect string
}

// Open opens a database/sql connection pool under driverName (one of the
// dialect package's constants, or a registered third-party driver name)
// and wraps it as a Driver.
func Open(driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(driverName, db), nil
}

// OpenDB wraps an already-open *sql.DB as a Driver.
func OpenDB(driverName string, db *sql.DB) *Driver {
	return &Driver{db: db, dialect: driverName}
}

// DB returns the underlying *sql.DB.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect returns the dialect name Driver was opened under.
func (d *Driver) Dialect() string {
	for _, name := range []string{dialect.MySQL, dialect.SQLite, dialect.Postgres} {
		if strings.HasPrefix(d.dialect, name) {
			return name
		}
	}
	return d.dialect
}

// Borrow returns the connection pool itself for an autocommit session.
// The returned Conn applies any
// session variables set via WithVar before each statement.
func (d *Driver) Borrow(ctx context.Context) (Conn, error) {
	return Conn{execQuerier: d.db, dialect: d.dialect}, nil
}

// Return is a no-op for the pool-backed Conn: database/sql reclaims the
// physical connection on its own once statements/rows are closed.
func (d *Driver) Return(Conn) {}

// BeginTx starts a transaction and wraps it as a Conn.
func (d *Driver) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{Conn: Conn{execQuerier: tx, dialect: d.dialect}, tx: tx}, nil
}

// Close closes the underlying connection pool.
func (d *Driver) Close() error { return d.db.Close() }

// Tx is a Conn bound to an open database/sql transaction.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit commits the underlying transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback rolls back the underlying transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// ctxVarsKey is the context key session variables are attached under.
type ctxVarsKey struct{}

type sessionVar struct{ name, value string }

type sessionVars struct{ vars []sessionVar }

// WithVar returns a context carrying a session variable (e.g. a tenant id)
// to be set on the borrowed connection before every statement executed
// with it, and reset when that statement's connection is released.
func WithVar(ctx context.Context, name, value string) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	sv.vars = append(sv.vars, sessionVar{name, value})
	return context.WithValue(ctx, ctxVarsKey{}, sv)
}

// WithIntVar is WithVar for an integer value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// VarFromContext returns the session variable value set for name, if any.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for _, v := range sv.vars {
		if v.name == name {
			return v.value, true
		}
	}
	return "", false
}

// execQuerier is the subset of *sql.DB / *sql.Tx / *sql.Conn that Conn
// delegates plain statement execution to.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Conn implements stmthandler.Conn over a database/sql handle, applying
// any WithVar session variables before Exec/Query.
type Conn struct {
	execQuerier
	dialect string
}

// ExecContext applies pending session variables (if any) on a dedicated
// connection, runs query, and resets them before returning.
func (c Conn) ExecContext(ctx context.Context, query string, args ...any) (res sql.Result, rerr error) {
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	return ex.ExecContext(ctx, query, args...)
}

// QueryContext is ExecContext's query counterpart.
func (c Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return nil, err
	}
	if cf != nil {
		return rows, nil // database/sql keeps the borrowed conn pinned via rows until rows.Close
	}
	return rows, nil
}

// PrepareContext prepares query without applying session variables: a
// prepared statement usually outlives a single call (the Reuse executor
// keeps it for the life of the session), so there is no single point at
// which resetting a per-statement variable would be correct.
func (c Conn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return c.execQuerier.PrepareContext(ctx, query)
}

// maySetVars borrows a dedicated *sql.Conn (so SET takes effect on the
// connection the statement itself will run on) and applies every pending
// session variable before returning it, along with a cleanup function that
// resets them and releases the dedicated connection.
func (c Conn) maySetVars(ctx context.Context) (execQuerier, func() error, error) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return c.execQuerier, nil, nil
	}

	var (
		ex    execQuerier
		cf    func() error
		reset []string
		seen  = make(map[string]struct{}, len(sv.vars))
	)
	switch e := c.execQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, cf = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("dialect/sql: unsupported connection type %T for session variables", c.execQuerier)
	}

	for _, v := range sv.vars {
		if !isValidIdentifier(v.name) {
			if cf != nil {
				_ = cf()
			}
			return nil, nil, fmt.Errorf("dialect/sql: invalid session variable name %q", v.name)
		}
		if _, ok := seen[v.name]; !ok {
			switch c.dialect {
			case dialect.Postgres:
				reset = append(reset, fmt.Sprintf("RESET %s", v.name))
			case dialect.MySQL:
				reset = append(reset, fmt.Sprintf("SET %s = NULL", v.name))
			}
			seen[v.name] = struct{}{}
		}
		stmt := fmt.Sprintf("SET %s = '%s'", v.name, escapeStringValue(v.value))
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			if cf != nil {
				err = errors.Join(err, cf())
			}
			return nil, nil, err
		}
	}

	if closeConn := cf; cf != nil && len(reset) > 0 {
		cf = func() error {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			var errs error
			for _, q := range reset {
				if _, err := ex.ExecContext(cleanupCtx, q); err != nil {
					errs = errors.Join(errs, err)
				}
			}
			return errors.Join(errs, closeConn())
		}
	}
	return ex, cf, nil
}
