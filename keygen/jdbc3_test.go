package keygen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxsql/veloxsql/bean"
)

type fakeResult struct {
	lastInsertID int64
}

func (r fakeResult) LastInsertId() (int64, error) { return r.lastInsertID, nil }
func (r fakeResult) RowsAffected() (int64, error) { return 1, nil }

func TestJdbc3Generator_AssignsContiguousIDsInSubmissionOrder(t *testing.T) {
	type User struct {
		ID   int64
		Name string
	}
	accessor := bean.NewDefault()
	gen := NewJdbc3("ID")

	args := []any{&User{Name: "a"}, &User{Name: "b"}, &User{Name: "c"}}
	err := gen.GenerateAfter(context.Background(), accessor, args, fakeResult{lastInsertID: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(10), args[0].(*User).ID)
	assert.Equal(t, int64(11), args[1].(*User).ID)
	assert.Equal(t, int64(12), args[2].(*User).ID)
}

func TestJdbc3Generator_NoKeyPropertyIsNoop(t *testing.T) {
	gen := NewJdbc3("")
	err := gen.GenerateAfter(context.Background(), bean.NewDefault(), []any{&struct{}{}}, fakeResult{lastInsertID: 1})
	assert.NoError(t, err)
}

func TestJdbc3Generator_GenerateBeforeIsNoop(t *testing.T) {
	gen := NewJdbc3("ID")
	err := gen.GenerateBefore(context.Background(), bean.NewDefault(), nil)
	assert.NoError(t, err)
}
