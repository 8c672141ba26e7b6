package stmthandler

import (
	"context"
	"database/sql"
	"errors"

	"github.com/veloxsql/veloxsql/verrors"
)

// ErrBatchSkip lets a caller's row-level error recovery (e.g. a
// PreProcessor/retry layer above Executor) signal that one row of a batch
// insert should be skipped rather than aborting the whole batch. Wrap it with
// fmt.Errorf("%w:...", ErrBatchSkip) to add detail; errors.Is still matches.
var ErrBatchSkip = errors.New("stmthandler: skip batch chunk and continue")

// BatchResult implements sql.Result over a run of batched inserts,
// accumulating RowsAffected across every execution and reporting the last
// LastInsertId an execution reported, matching the convention a multi-row INSERT's driver
// result already uses for a single execution.
type BatchResult struct {
	rowsAffected int64
	lastInsertID int64
	haveID       bool
}

func (b *BatchResult) LastInsertId() (int64, error) {
	if !b.haveID {
		return 0, nil
	}
	return b.lastInsertID, nil
}

func (b *BatchResult) RowsAffected() (int64, error) {
	return b.rowsAffected, nil
}

// Accumulate folds one execution's sql.Result into the running total: rows
// affected adds up, and the last successfully reported insert id wins,
// matching how a single multi-row INSERT's own driver result already
// behaves.
func (b *BatchResult) Accumulate(res sql.Result) error {
	return b.accumulate(res)
}

func (b *BatchResult) accumulate(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	b.rowsAffected += affected
	if id, err := res.LastInsertId(); err == nil {
		b.lastInsertID = id
		b.haveID = true
	}
	return nil
}

// Batch prepares query once and executes it once per row of rowArgs,
// reusing that single prepared statement for every row the way
// preparedStatementHandler is reused across a juice batch run, rather than
// preparing fresh for each. rowArgs is walked in chunks of chunkSize rows
// (all rows when chunkSize <= 0), but each row is still its own execution.
// A row whose error satisfies errors.Is(err, ErrBatchSkip) is recorded and
// skipped rather than aborting the run; all other rows still execute, and
// the skipped errors are joined into the returned error.
func (h *Handler) Batch(ctx context.Context, statementID, query string, rowArgs [][]any, chunkSize int) (sql.Result, error) {
	if len(rowArgs) == 0 {
		return &BatchResult{}, nil
	}
	if chunkSize <= 0 {
		chunkSize = len(rowArgs)
	}
	if len(rowArgs) <= chunkSize {
		stmt, err := h.Conn.PrepareContext(ctx, query)
		if err != nil {
			return nil, h.wrap(statementID, query, nil, err)
		}
		defer stmt.Close()
		return h.execChunks(ctx, statementID, query, stmt, rowArgs)
	}

	stmt, err := h.Conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, h.wrap(statementID, query, nil, err)
	}
	defer stmt.Close()

	aggregate := &BatchResult{}
	var skipped error
	for start := 0; start < len(rowArgs); start += chunkSize {
		end := start + chunkSize
		if end > len(rowArgs) {
			end = len(rowArgs)
		}
		for _, args := range rowArgs[start:end] {
			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				if errors.Is(err, ErrBatchSkip) {
					skipped = errors.Join(skipped, err)
					continue
				}
				return nil, h.wrap(statementID, query, args, err)
			}
			if err := aggregate.accumulate(res); err != nil {
				return nil, h.wrap(statementID, query, args, err)
			}
		}
	}
	if skipped != nil {
		return aggregate, verrors.NewExecutionError(statementID, query, nil, skipped)
	}
	return aggregate, nil
}

func (h *Handler) execChunks(ctx context.Context, statementID, query string, stmt *sql.Stmt, rowArgs [][]any) (sql.Result, error) {
	aggregate := &BatchResult{}
	var skipped error
	for _, args := range rowArgs {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			if errors.Is(err, ErrBatchSkip) {
				skipped = errors.Join(skipped, err)
				continue
			}
			return nil, h.wrap(statementID, query, args, err)
		}
		if err := aggregate.accumulate(res); err != nil {
			return nil, h.wrap(statementID, query, args, err)
		}
	}
	if skipped != nil {
		return aggregate, verrors.NewExecutionError(statementID, query, nil, skipped)
	}
	return aggregate, nil
}
