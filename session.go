package veloxsql

import (
	"context"
	"database/sql"
	"sync"

	"github.com/veloxsql/veloxsql/mapping"
	"github.com/veloxsql/veloxsql/stmthandler"
	"github.com/veloxsql/veloxsql/verrors"
)

// sessionExecutor is the narrow surface Session drives: both *exec.Executor
// and *exec.CachingExecutor satisfy it, so Session doesn't care which
// second-level-cache wrapping the owning Client configured.
type sessionExecutor interface {
	Query(ctx context.Context, statementID string, arg any, rr mapping.RowRange, consumer mapping.Consumer) ([]any, error)
	Update(ctx context.Context, statementID string, arg any) (int64, error)
	Commit(ctx context.Context, force bool) error
	Rollback(ctx context.Context, force bool) error
	Flush(ctx context.Context) ([]sql.Result, error)
	Close() error
}

// Session is the conversational scope callers drive:
// SelectOne/SelectList/SelectMap/SelectCursor, Insert/Update/Delete,
// Commit/Rollback/Flush/Close. A Session is not safe
// for concurrent use by more than one goroutine; the mutex below only
// guards against accidental concurrent Close/Commit races, not full
// reentrancy.
type Session struct {
	client   *Client
	conn     stmthandler.Conn
	executor sessionExecutor
	tx       transactional

	mu     sync.Mutex
	closed bool
}

// SelectOne runs statementID expecting exactly one row. Zero rows returns
// ErrNotFound; more than one returns ErrNotSingular. Both are
// caller-ergonomics sentinels layered on top of a normally-successful
// query, the same role ent's NotFoundError plays for Query.Only.
func (s *Session) SelectOne(ctx context.Context, statementID string, arg any) (any, error) {
	rows, err := s.executor.Query(ctx, statementID, arg, mapping.RowRange{}, nil)
	if err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, verrors.ErrNotFound
	case 1:
		return rows[0], nil
	default:
		return nil, verrors.ErrNotSingular
	}
}

// SelectList runs statementID and returns every row in [offset,
// offset+limit).
func (s *Session) SelectList(ctx context.Context, statementID string, arg any, rr mapping.RowRange) ([]any, error) {
	return s.executor.Query(ctx, statementID, arg, rr, nil)
}

// SelectMap runs statementID and returns its rows keyed by the value of
// mapKeyProperty read off each row via the bean accessor.
func (s *Session) SelectMap(ctx context.Context, statementID string, arg any, rr mapping.RowRange, mapKeyProperty string) (map[any]any, error) {
	rows, err := s.executor.Query(ctx, statementID, arg, rr, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[any]any, len(rows))
	for _, row := range rows {
		key, err := s.client.accessor.Get(row, mapKeyProperty)
		if err != nil {
			return nil, verrors.NewMappingError(mapKeyProperty, "selectMap: read map key property", err)
		}
		out[key] = row
	}
	return out, nil
}

// SelectCursor runs statementID and returns a Cursor that materializes rows
// on demand rather than all at once. The underlying query
// runs on a background goroutine, handing rows to the Cursor one at a time
// through the mapper's Consumer callback; Close
// must be called (even after exhausting Next) to let that goroutine exit.
func (s *Session) SelectCursor(ctx context.Context, statementID string, arg any, rr mapping.RowRange) *Cursor {
	return newCursor(func(consumer mapping.Consumer) error {
		_, err := s.executor.Query(ctx, statementID, arg, rr, consumer)
		return err
	})
}

// Insert runs an Insert-kind statement.
func (s *Session) Insert(ctx context.Context, statementID string, arg any) (int64, error) {
	return s.executor.Update(ctx, statementID, arg)
}

// Update runs an Update-kind statement.
func (s *Session) Update(ctx context.Context, statementID string, arg any) (int64, error) {
	return s.executor.Update(ctx, statementID, arg)
}

// Delete runs a Delete-kind statement.
func (s *Session) Delete(ctx context.Context, statementID string, arg any) (int64, error) {
	return s.executor.Update(ctx, statementID, arg)
}

// Commit flushes any pending batch, clears local (and, with a second-level
// cache, staged namespace) caches, and, for a Session opened over an
// explicit transaction, commits it.
func (s *Session) Commit(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.executor.Commit(ctx, force); err != nil {
		return err
	}
	if s.tx != nil {
		if err := s.tx.Commit(); err != nil {
			return verrors.NewTransactionError("commit", err)
		}
	}
	return nil
}

// Rollback discards any pending batch and clears the local cache.
func (s *Session) Rollback(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.executor.Rollback(ctx, force); err != nil {
		return err
	}
	if s.tx != nil {
		if err := s.tx.Rollback(); err != nil {
			return verrors.NewTransactionError("rollback", err)
		}
	}
	return nil
}

// Flush executes pending batches and returns their results.
func (s *Session) Flush(ctx context.Context) ([]sql.Result, error) {
	return s.executor.Flush(ctx)
}

// FlushAffected is Flush, summing RowsAffected across every batch result —
// the common case where a caller using ExecutorBatch just wants a single
// total rather than per-batch sql.Result values.
func (s *Session) FlushAffected(ctx context.Context) (int64, error) {
	results, err := s.executor.Flush(ctx)
	if err != nil {
		return 0, err
	}
	return sqlResultsToAffected(results), nil
}

// Close releases the Executor's resources (e.g. a Reuse executor's cached
// prepared statements) and returns the connection to the Client's
// DataSource. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.executor.Close()
	s.client.dataSource.Return(s.conn)
	return err
}
