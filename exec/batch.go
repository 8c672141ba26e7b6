package exec

import (
	"context"
	"database/sql"

	"github.com/veloxsql/veloxsql/registry"
	"github.com/veloxsql/veloxsql/stmthandler"
	"github.com/veloxsql/veloxsql/verrors"
)

// batchPendingResult is returned by batchBackend.update while the call's
// statement is still sitting in the open batch, mirroring JDBC's
// Statement.SUCCESS_NO_INFO (-2) convention for a batched update whose
// real affected-row count isn't known until executeBatch runs.
type batchPendingResult struct{}

func (batchPendingResult) LastInsertId() (int64, error) { return -2, nil }
func (batchPendingResult) RowsAffected() (int64, error) { return -2, nil }

// batchBackend appends consecutive updates sharing identical SQL text to
// one open batch; a differing SQL text, any query, or an explicit flush
// executes it.
type batchBackend struct {
	conn Conn

	openStatementID string
	openSQL         string
	openShape       registry.Shape
	openArgs        [][]any

	flushed []sql.Result
}

func (b *batchBackend) update(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (sql.Result, error) {
	if b.openSQL != "" && b.openSQL != query {
		if err := b.executeOpen(ctx); err != nil {
			return nil, err
		}
	}
	b.openStatementID = statementID
	b.openSQL = query
	b.openShape = shape
	b.openArgs = append(b.openArgs, args)
	return batchPendingResult{}, nil
}

func (b *batchBackend) query(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (*sql.Rows, error) {
	if err := b.executeOpen(ctx); err != nil {
		return nil, err
	}
	if shape == registry.ShapePlain {
		rows, err := b.conn.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, verrors.NewExecutionError(statementID, query, args, err)
		}
		return rows, nil
	}
	stmt, err := b.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, verrors.NewExecutionError(statementID, query, args, err)
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		stmt.Close()
		return nil, verrors.NewExecutionError(statementID, query, args, err)
	}
	stmt.Close()
	return rows, nil
}

func (b *batchBackend) executeOpen(ctx context.Context) error {
	if b.openSQL == "" || len(b.openArgs) == 0 {
		b.reset()
		return nil
	}
	result, err := b.runBatch(ctx)
	if err != nil {
		b.reset()
		return err
	}
	b.flushed = append(b.flushed, result)
	b.reset()
	return nil
}

func (b *batchBackend) runBatch(ctx context.Context) (sql.Result, error) {
	if b.openShape == registry.ShapePlain {
		agg := &stmthandler.BatchResult{}
		for _, args := range b.openArgs {
			res, err := b.conn.ExecContext(ctx, b.openSQL, args...)
			if err != nil {
				return nil, verrors.NewExecutionError(b.openStatementID, b.openSQL, args, err)
			}
			if err := agg.Accumulate(res); err != nil {
				return nil, verrors.NewExecutionError(b.openStatementID, b.openSQL, args, err)
			}
		}
		return agg, nil
	}

	stmt, err := b.conn.PrepareContext(ctx, b.openSQL)
	if err != nil {
		return nil, verrors.NewExecutionError(b.openStatementID, b.openSQL, nil, err)
	}
	defer stmt.Close()

	agg := &stmthandler.BatchResult{}
	for _, args := range b.openArgs {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return nil, verrors.NewExecutionError(b.openStatementID, b.openSQL, args, err)
		}
		if err := agg.Accumulate(res); err != nil {
			return nil, verrors.NewExecutionError(b.openStatementID, b.openSQL, args, err)
		}
	}
	return agg, nil
}

func (b *batchBackend) reset() {
	b.openStatementID = ""
	b.openSQL = ""
	b.openArgs = nil
}

func (b *batchBackend) flush(ctx context.Context) ([]sql.Result, error) {
	if err := b.executeOpen(ctx); err != nil {
		return nil, err
	}
	out := b.flushed
	b.flushed = nil
	return out, nil
}

func (b *batchBackend) close() error {
	b.reset()
	b.flushed = nil
	return nil
}
