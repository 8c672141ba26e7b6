package exec

import (
	"context"
	"database/sql"

	"github.com/veloxsql/veloxsql/registry"
	"github.com/veloxsql/veloxsql/stmthandler"
)

// simpleBackend creates a fresh statement per call and closes it on
// return; *stmthandler.Handler already has exactly
// that lifecycle, so this backend is a thin pass-through.
type simpleBackend struct {
	handler *stmthandler.Handler
}

func (b *simpleBackend) update(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (sql.Result, error) {
	return b.handler.Update(ctx, shape, statementID, query, args)
}

func (b *simpleBackend) query(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (*sql.Rows, error) {
	return b.handler.Query(ctx, shape, statementID, query, args)
}

func (b *simpleBackend) flush(ctx context.Context) ([]sql.Result, error) {
	return nil, nil
}

func (b *simpleBackend) close() error { return nil }
