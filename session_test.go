package veloxsql

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/veloxsql/veloxsql/bean"
	"github.com/veloxsql/veloxsql/mapping"
	"github.com/veloxsql/veloxsql/stmthandler"
	"github.com/veloxsql/veloxsql/verrors"
)

// fakeExecutor is a minimal sessionExecutor for driving Session in
// isolation, without wiring a real registry/binder/mapper/DB.
type fakeExecutor struct {
	rows          []any
	queryErr      error
	updateAffected int64
	updateErr     error
	committed     bool
	commitErr     error
	rolledBack    bool
	rollbackErr   error
	flushResults  []sql.Result
	flushErr      error
	closed        bool
	closeErr      error

	lastStatementID string
}

func (f *fakeExecutor) Query(ctx context.Context, statementID string, arg any, rr mapping.RowRange, consumer mapping.Consumer) ([]any, error) {
	f.lastStatementID = statementID
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if consumer != nil {
		for _, r := range f.rows {
			if !consumer(r) {
				break
			}
		}
		return nil, nil
	}
	return f.rows, nil
}

func (f *fakeExecutor) Update(ctx context.Context, statementID string, arg any) (int64, error) {
	f.lastStatementID = statementID
	return f.updateAffected, f.updateErr
}

func (f *fakeExecutor) Commit(ctx context.Context, force bool) error {
	f.committed = true
	return f.commitErr
}

func (f *fakeExecutor) Rollback(ctx context.Context, force bool) error {
	f.rolledBack = true
	return f.rollbackErr
}

func (f *fakeExecutor) Flush(ctx context.Context) ([]sql.Result, error) {
	return f.flushResults, f.flushErr
}

func (f *fakeExecutor) Close() error {
	f.closed = true
	return f.closeErr
}

type fakeResult struct{ affected int64 }

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

type fakeConn struct{}

func (fakeConn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}
func (fakeConn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}
func (fakeConn) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	return nil, nil
}

var _ stmthandler.Conn = fakeConn{}

type fakeDataSource struct {
	conn     stmthandler.Conn
	returned stmthandler.Conn
}

func (ds *fakeDataSource) Borrow(ctx context.Context) (stmthandler.Conn, error) {
	return ds.conn, nil
}

func (ds *fakeDataSource) Return(conn stmthandler.Conn) { ds.returned = conn }

func newTestSession(exec *fakeExecutor) (*Session, *fakeDataSource) {
	ds := &fakeDataSource{conn: fakeConn{}}
	c := &Client{accessor: bean.NewDefault(), dataSource: ds}
	return &Session{client: c, conn: fakeConn{}, executor: exec}, ds
}

func TestSessionSelectOneNotFound(t *testing.T) {
	s, _ := newTestSession(&fakeExecutor{rows: nil})
	_, err := s.SelectOne(context.Background(), "stmt.one", nil)
	if !errors.Is(err, verrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionSelectOneNotSingular(t *testing.T) {
	s, _ := newTestSession(&fakeExecutor{rows: []any{"a", "b"}})
	_, err := s.SelectOne(context.Background(), "stmt.one", nil)
	if !errors.Is(err, verrors.ErrNotSingular) {
		t.Fatalf("expected ErrNotSingular, got %v", err)
	}
}

func TestSessionSelectOneSingleRow(t *testing.T) {
	s, _ := newTestSession(&fakeExecutor{rows: []any{"a"}})
	row, err := s.SelectOne(context.Background(), "stmt.one", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row != "a" {
		t.Fatalf("expected row 'a', got %v", row)
	}
}

func TestSessionSelectList(t *testing.T) {
	s, _ := newTestSession(&fakeExecutor{rows: []any{"a", "b", "c"}})
	rows, err := s.SelectList(context.Background(), "stmt.list", nil, mapping.RowRange{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

type keyedRow struct {
	ID   int
	Name string
}

func TestSessionSelectMap(t *testing.T) {
	rows := []any{keyedRow{ID: 1, Name: "x"}, keyedRow{ID: 2, Name: "y"}}
	s, _ := newTestSession(&fakeExecutor{rows: rows})
	out, err := s.SelectMap(context.Background(), "stmt.map", nil, mapping.RowRange{}, "ID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out[1].(keyedRow).Name != "x" {
		t.Fatalf("expected key 1 to map to row x, got %v", out[1])
	}
}

func TestSessionSelectCursor(t *testing.T) {
	s, _ := newTestSession(&fakeExecutor{rows: []any{"a", "b"}})
	cur := s.SelectCursor(context.Background(), "stmt.cursor", nil, mapping.RowRange{})
	var got []any
	for cur.Next() {
		got = append(got, cur.Row())
	}
	if err := cur.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if err := cur.Close(); err != nil {
		t.Fatalf("unexpected error on close: %v", err)
	}
}

func TestSessionInsertUpdateDelete(t *testing.T) {
	fe := &fakeExecutor{updateAffected: 1}
	s, _ := newTestSession(fe)

	if n, err := s.Insert(context.Background(), "stmt.insert", nil); err != nil || n != 1 {
		t.Fatalf("Insert: n=%d err=%v", n, err)
	}
	if fe.lastStatementID != "stmt.insert" {
		t.Fatalf("expected statement id forwarded, got %q", fe.lastStatementID)
	}
	if n, err := s.Update(context.Background(), "stmt.update", nil); err != nil || n != 1 {
		t.Fatalf("Update: n=%d err=%v", n, err)
	}
	if n, err := s.Delete(context.Background(), "stmt.delete", nil); err != nil || n != 1 {
		t.Fatalf("Delete: n=%d err=%v", n, err)
	}
}

func TestSessionCommitRollback(t *testing.T) {
	fe := &fakeExecutor{}
	s, _ := newTestSession(fe)

	if err := s.Commit(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fe.committed {
		t.Fatalf("expected executor Commit to be called")
	}

	if err := s.Rollback(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fe.rolledBack {
		t.Fatalf("expected executor Rollback to be called")
	}
}

func TestSessionFlushAffected(t *testing.T) {
	fe := &fakeExecutor{flushResults: []sql.Result{fakeResult{affected: 2}, fakeResult{affected: 3}}}
	s, _ := newTestSession(fe)

	n, err := s.FlushAffected(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected total of 5, got %d", n)
	}
}

func TestSessionCloseReturnsConnectionAndIsIdempotent(t *testing.T) {
	fe := &fakeExecutor{}
	s, ds := newTestSession(fe)

	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fe.closed {
		t.Fatalf("expected executor Close to be called")
	}
	if ds.returned == nil {
		t.Fatalf("expected connection to be returned to the data source")
	}

	fe.closed = false
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error on second Close: %v", err)
	}
	if fe.closed {
		t.Fatalf("expected second Close to be a no-op")
	}
}
