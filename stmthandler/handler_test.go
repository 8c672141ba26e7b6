package stmthandler

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxsql/veloxsql/ast"
	"github.com/veloxsql/veloxsql/registry"
)

func TestHandler_UpdatePlain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))
	h := New(db)
	res, err := h.Update(context.Background(), registry.ShapePlain, "User.insert", "INSERT INTO users VALUES (?)", []any{"alice"})
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_UpdatePrepared(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("INSERT INTO users").ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	h := New(db)
	_, err = h.Update(context.Background(), registry.ShapePrepared, "User.insert", "INSERT INTO users VALUES (?)", []any{"bob"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_UpdateWrapsExecutionError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").WillReturnError(assert.AnError)
	h := New(db)
	_, err = h.Update(context.Background(), registry.ShapePlain, "User.insert", "INSERT INTO users VALUES (?)", []any{"alice"})
	assert.Error(t, err)
}

func TestHandler_QueryPlain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM users").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	h := New(db)
	rows, err := h.Query(context.Background(), registry.ShapePlain, "User.findAll", "SELECT id FROM users", nil)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_QueryPrepared(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPrepare("SELECT id FROM users WHERE id = ?").
		ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	h := New(db)
	rows, err := h.QueryCursor(context.Background(), registry.ShapePrepared, "User.findByID", "SELECT id FROM users WHERE id = ?", []any{1}, 0)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParameterize_RewritesOutAndInOutParams(t *testing.T) {
	modes := []ast.ParamMode{ast.ModeIn, ast.ModeOut, ast.ModeInOut}
	rewritten, out := Parameterize([]any{"x", nil, 5}, modes)
	require.Len(t, rewritten, 3)

	assert.Equal(t, "x", rewritten[0])
	outParam, ok := rewritten[1].(sql.Out)
	require.True(t, ok, "ModeOut argument must be wrapped in sql.Out")
	assert.False(t, outParam.In)
	inOutParam, ok := rewritten[2].(sql.Out)
	require.True(t, ok, "ModeInOut argument must be wrapped in sql.Out")
	assert.True(t, inOutParam.In)
	assert.Len(t, out.dests, 2)
}

func TestCallableOutParams_ValueByIndexOutOfRange(t *testing.T) {
	out := &CallableOutParams{}
	_, err := out.ValueByIndex(0)
	assert.Error(t, err)
}

func TestParameterize_InOutCarriesInitialValue(t *testing.T) {
	rewritten, out := Parameterize([]any{7}, []ast.ParamMode{ast.ModeInOut})
	inOutParam, ok := rewritten[0].(sql.Out)
	require.True(t, ok)
	assert.Equal(t, 7, *(inOutParam.Dest.(*any)))

	v, err := out.ValueByIndex(0)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
