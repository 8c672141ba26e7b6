package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxsql/veloxsql/eval"
)

func TestTruthy(t *testing.T) {
	assert.False(t, eval.Truthy(nil))
	assert.False(t, eval.Truthy(false))
	assert.True(t, eval.Truthy(true))
	assert.False(t, eval.Truthy(0))
	assert.True(t, eval.Truthy(1))
	assert.False(t, eval.Truthy(int64(0)))
	assert.True(t, eval.Truthy(""))
	assert.True(t, eval.Truthy("x"))
}

func TestExpression_PropertyAccess(t *testing.T) {
	type Arg struct {
		Name string
		Age  int
	}
	ctx := eval.NewContext(Arg{Name: "a", Age: 0}, "")

	e, err := eval.Compile("Name != nil && Name != \"\"")
	require.NoError(t, err)
	ok, err := e.Test(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	e2, err := eval.Compile("Age > 0")
	require.NoError(t, err)
	ok, err = e2.Test(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExpression_MapParameter(t *testing.T) {
	ctx := eval.NewContext(map[string]any{"ids": []int{1, 2, 3}}, "")
	e, err := eval.Compile("len(ids) > 0")
	require.NoError(t, err)
	ok, err := e.Test(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestContext_BindShadowsParent(t *testing.T) {
	root := eval.NewContext(map[string]any{"x": 1}, "")
	child := root.Push()
	child.Bind("x", 2)

	v, ok := child.Get("x")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = root.Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestContext_NextIsMonotonic(t *testing.T) {
	root := eval.NewContext(nil, "")
	a := root.Push().Next()
	b := root.Push().Next()
	assert.NotEqual(t, a, b)
}

func TestCompile_CachesBySource(t *testing.T) {
	e1, err := eval.Compile("1 == 1")
	require.NoError(t, err)
	e2, err := eval.Compile("1 == 1")
	require.NoError(t, err)
	assert.Equal(t, e1.Source(), e2.Source())
}
