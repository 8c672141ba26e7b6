package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticText(t *testing.T) {
	sql, params, dynamic, err := Render(StaticText("SELECT * FROM users"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users", sql)
	assert.Empty(t, params)
	assert.False(t, dynamic)
}

func TestDynamicText_SubstitutesAndMarksDynamic(t *testing.T) {
	node := DynamicText("SELECT * FROM ${table}")
	sql, _, dynamic, err := Render(node, map[string]any{"table": "users"}, "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users", sql)
	assert.True(t, dynamic)
}

func TestVariable_ResolvesPropertyAndAddsParam(t *testing.T) {
	v := ParseVariable("id,jdbcType=BIGINT")
	sql, params, _, err := Render(v, map[string]any{"id": int64(7)}, "")
	require.NoError(t, err)
	assert.Equal(t, "?", sql)
	require.Len(t, params, 1)
	assert.Equal(t, int64(7), params[0].Value)
	assert.EqualValues(t, "BIGINT", params[0].JdbcType)
}

func TestIf_RendersChildOnlyWhenTruthy(t *testing.T) {
	node := If{Test: "age > 18", Child: StaticText("AND adult = true")}

	sql, _, _, err := Render(node, map[string]any{"age": 20}, "")
	require.NoError(t, err)
	assert.Equal(t, "AND adult = true", sql)

	sql, _, _, err = Render(node, map[string]any{"age": 10}, "")
	require.NoError(t, err)
	assert.Empty(t, sql)
}

func TestChoose_FirstTruthyWhenWins(t *testing.T) {
	node := Choose{
		Whens: []When{
			{Test: "status == \"a\"", Child: StaticText("A")},
			{Test: "status == \"b\"", Child: StaticText("B")},
		},
		Otherwise: StaticText("C"),
	}

	sql, _, _, err := Render(node, map[string]any{"status": "b"}, "")
	require.NoError(t, err)
	assert.Equal(t, "B", sql)

	sql, _, _, err = Render(node, map[string]any{"status": "z"}, "")
	require.NoError(t, err)
	assert.Equal(t, "C", sql)
}

func TestWhere_StripsLeadingConjunction(t *testing.T) {
	node := Where{Children: Mixed{StaticText("AND name = 'a'")}}
	sql, _, _, err := Render(node, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "WHERE name = 'a'", sql)
}

func TestWhere_EmptyBodyRendersNothing(t *testing.T) {
	node := Where{Children: Mixed{StaticText("")}}
	sql, _, _, err := Render(node, nil, "")
	require.NoError(t, err)
	assert.Empty(t, sql)
}

func TestWhere_DynamicConditions(t *testing.T) {
	node := Mixed{
		StaticText("SELECT * FROM u "),
		Where{Children: Mixed{
			If{Test: "name != nil", Child: Mixed{StaticText("AND name = "), ParseVariable("name")}},
			If{Test: "age > 0", Child: Mixed{StaticText(" AND age = "), ParseVariable("age")}},
		}},
	}

	sql, params, _, err := Render(node, map[string]any{"name": "a", "age": 0}, "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM u WHERE name = ?", sql)
	require.Len(t, params, 1)
	assert.Equal(t, "a", params[0].Value)
}

func TestSet_StripsTrailingComma(t *testing.T) {
	node := Set{Children: Mixed{StaticText("name = 'a',")}}
	sql, _, _, err := Render(node, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "SET name = 'a'", sql)
}

func TestTrim_StripsOverridesAndWraps(t *testing.T) {
	node := Trim{
		Children:        Mixed{StaticText("AND x = 1 AND ")},
		Prefix:          "(",
		Suffix:          ")",
		PrefixOverrides: []string{"AND "},
		SuffixOverrides: []string{"AND "},
	}
	sql, _, _, err := Render(node, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "(x = 1)", sql)
}

func TestForEach_JoinsWithOpenCloseSeparator(t *testing.T) {
	node := ForEach{
		Collection: "ids",
		Item:       "id",
		Open:       "(",
		Close:      ")",
		Separator:  ",",
		Child:      Variable{Property: "id"},
	}
	sql, params, _, err := Render(node, map[string]any{"ids": []int64{1, 2, 3}}, "")
	require.NoError(t, err)
	assert.Equal(t, "(?,?,?)", sql)
	require.Len(t, params, 3)
	assert.Equal(t, int64(1), params[0].Value)
	assert.Equal(t, int64(2), params[1].Value)
	assert.Equal(t, int64(3), params[2].Value)
}

func TestForEach_EmptyCollectionRendersNothing(t *testing.T) {
	node := ForEach{Collection: "ids", Item: "id", Open: "(", Close: ")", Child: Variable{Property: "id"}}
	sql, _, _, err := Render(node, map[string]any{"ids": []int64{}}, "")
	require.NoError(t, err)
	assert.Empty(t, sql)
}

func TestForEach_MapYieldsKeyAndValue(t *testing.T) {
	node := ForEach{
		Collection: "tags",
		Item:       "value",
		Index:      "key",
		Separator:  ",",
		Child:      Mixed{Variable{Property: "key"}, StaticText("="), Variable{Property: "value"}},
	}
	sql, params, _, err := Render(node, map[string]any{"tags": map[string]any{"a": 1}}, "")
	require.NoError(t, err)
	assert.Equal(t, "?=?", sql)
	require.Len(t, params, 2)
	assert.Equal(t, "a", params[0].Value)
	assert.Equal(t, 1, params[1].Value)
}

func TestBind_MakesValueAvailableToLaterNodes(t *testing.T) {
	node := Mixed{
		Bind{Name: "upperName", Expr: "upper(name)"},
		Variable{Property: "upperName"},
	}
	_, params, _, err := Render(node, map[string]any{"name": "al"}, "")
	require.NoError(t, err)
	require.Len(t, params, 1)
	assert.Equal(t, "AL", params[0].Value)
}

func TestInclude_RendersTarget(t *testing.T) {
	fragment := StaticText("id, name")
	node := Mixed{StaticText("SELECT "), Include{Target: fragment}, StaticText(" FROM users")}
	sql, _, _, err := Render(node, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, name FROM users", sql)
}

func TestMixed_RendersChildrenInOrder(t *testing.T) {
	node := Mixed{StaticText("SELECT "), StaticText("1")}
	sql, _, _, err := Render(node, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", sql)
}
