package exec

import (
	"context"
	"database/sql"

	"github.com/veloxsql/veloxsql/registry"
	"github.com/veloxsql/veloxsql/verrors"
)

// reuseBackend caches a prepared statement per distinct SQL text for the
// life of the session. ShapePlain statements bypass
// the cache entirely, since there is no prepared statement to reuse.
type reuseBackend struct {
	conn  Conn
	stmts map[string]*sql.Stmt
}

func (b *reuseBackend) stmtFor(ctx context.Context, query string) (*sql.Stmt, error) {
	if s, ok := b.stmts[query]; ok {
		return s, nil
	}
	s, err := b.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	b.stmts[query] = s
	return s, nil
}

func (b *reuseBackend) update(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (sql.Result, error) {
	if shape == registry.ShapePlain {
		res, err := b.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, verrors.NewExecutionError(statementID, query, args, err)
		}
		return res, nil
	}
	stmt, err := b.stmtFor(ctx, query)
	if err != nil {
		return nil, verrors.NewExecutionError(statementID, query, args, err)
	}
	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return nil, verrors.NewExecutionError(statementID, query, args, err)
	}
	return res, nil
}

func (b *reuseBackend) query(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (*sql.Rows, error) {
	if shape == registry.ShapePlain {
		rows, err := b.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, verrors.NewExecutionError(statementID, query, args, err)
		}
		return rows, nil
	}
	stmt, err := b.stmtFor(ctx, query)
	if err != nil {
		return nil, verrors.NewExecutionError(statementID, query, args, err)
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, verrors.NewExecutionError(statementID, query, args, err)
	}
	return rows, nil
}

func (b *reuseBackend) flush(ctx context.Context) ([]sql.Result, error) {
	return nil, nil
}

func (b *reuseBackend) close() error {
	var errs []error
	for query, stmt := range b.stmts {
		if err := stmt.Close(); err != nil {
			errs = append(errs, verrors.NewExecutionError("", query, nil, err))
		}
	}
	b.stmts = make(map[string]*sql.Stmt)
	return verrors.NewAggregateError(errs...)
}
