package stmthandler

import (
	"context"
	"database/sql"
	"errors"

	"github.com/veloxsql/veloxsql/ast"
	"github.com/veloxsql/veloxsql/registry"
	"github.com/veloxsql/veloxsql/verrors"
)

var errOutParamIndex = errors.New("stmthandler: out parameter index out of range")

// Conn is the subset of *sql.DB / *sql.Tx the handler drives; both already
// satisfy it structurally, so callers pass whichever is open for the
// current unit of work without an adapter type.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Handler drives query in one of the three statement shapes a Compiled
// Statement can declare.
type Handler struct {
	Conn Conn
}

// New returns a Handler bound to conn.
func New(conn Conn) *Handler { return &Handler{Conn: conn} }

// Update runs an INSERT/UPDATE/DELETE and returns the driver's sql.Result.
// ShapePlain executes query directly; ShapePrepared/ShapeCallable prepare
// first.
func (h *Handler) Update(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (sql.Result, error) {
	if shape == registry.ShapePlain {
		res, err := h.Conn.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, h.wrap(statementID, query, args, err)
		}
		return res, nil
	}
	stmt, err := h.Conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, h.wrap(statementID, query, args, err)
	}
	defer stmt.Close()
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, h.wrap(statementID, query, args, err)
	}
	return res, nil
}

// Query runs a SELECT and returns the driver rows, which database/sql
// streams lazily as the caller iterates; it shares QueryCursor's code path.
func (h *Handler) Query(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (*sql.Rows, error) {
	return h.queryRows(ctx, shape, statementID, query, args)
}

// QueryCursor is Query's streaming counterpart: it returns the same
// *sql.Rows for the caller to range over with Next rather than collect
// eagerly, matching a Compiled Statement's resultSetType=FORWARD_ONLY
// traversal mode. database/sql already streams rows lazily
// under the hood; this method exists so callers can express the
// forward-only intent explicitly rather than relying on Query's default.
// fetchSize is accepted for API symmetry with the registry's per-statement
// setting but is advisory only — database/sql exposes no portable
// fetch-size knob, and only some drivers (e.g. lib/pq via a cursor, or
// DSN options) honor one at all.
func (h *Handler) QueryCursor(ctx context.Context, shape registry.Shape, statementID, query string, args []any, fetchSize int) (*sql.Rows, error) {
	return h.queryRows(ctx, shape, statementID, query, args)
}

func (h *Handler) queryRows(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (*sql.Rows, error) {
	if shape == registry.ShapePlain {
		rows, err := h.Conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, h.wrap(statementID, query, args, err)
		}
		return rows, nil
	}
	stmt, err := h.Conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, h.wrap(statementID, query, args, err)
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		stmt.Close()
		return nil, h.wrap(statementID, query, args, err)
	}
	// Safe to close immediately: database/sql keeps the underlying driver
	// statement alive, reference-counted against rows, until rows.Close is
	// called by the caller.
	stmt.Close()
	return rows, nil
}

// CallableOutParams implements types.OutParams over the destinations
// Parameterize wrapped in sql.Out, letting the mapper read a callable
// statement's out/in-out results back after Update/Query returns.
type CallableOutParams struct {
	dests []*any
}

// ValueByIndex returns the i-th out/in-out parameter's final value.
func (o *CallableOutParams) ValueByIndex(i int) (any, error) {
	if i < 0 || i >= len(o.dests) {
		return nil, verrors.NewExecutionError("", "", nil, errOutParamIndex)
	}
	return *o.dests[i], nil
}

// Parameterize rewrites args to (h *Handler).Parameterize using this
// handler's own args convention; see the package-level Parameterize for
// the actual rewriting logic, kept free-standing so callers that don't
// otherwise need a Handler (e.g. exec.Executor driving a reused or batched
// connection directly) can call it too.
func (h *Handler) Parameterize(args []any, modes []ast.ParamMode) ([]any, *CallableOutParams) {
	return Parameterize(args, modes)
}

// Parameterize rewrites a Callable statement's args, wrapping every
// out/in-out position in database/sql's sql.Out so a supporting driver
// (e.g. godror, go-ora) writes its result back into the returned
// CallableOutParams. A driver without sql.Out support
// surfaces its own error from Exec/Query; this function does not attempt
// to detect that in advance, since database/sql has no capability query
// for it.
func Parameterize(args []any, modes []ast.ParamMode) ([]any, *CallableOutParams) {
	out := &CallableOutParams{}
	rewritten := make([]any, len(args))
	for i, a := range args {
		mode := ast.ModeIn
		if i < len(modes) {
			mode = modes[i]
		}
		switch mode {
		case ast.ModeOut, ast.ModeInOut:
			dest := new(any)
			if mode == ast.ModeInOut {
				*dest = a
			}
			rewritten[i] = sql.Out{Dest: dest, In: mode == ast.ModeInOut}
			out.dests = append(out.dests, dest)
		default:
			rewritten[i] = a
		}
	}
	return rewritten, out
}

func (h *Handler) wrap(statementID, query string, args []any, err error) error {
	return verrors.NewExecutionError(statementID, query, args, err)
}
