package bean

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string
}

type person struct {
	Name    string
	Age     int
	Address address
}

func TestDefault_GetNestedField(t *testing.T) {
	a := NewDefault()
	p := &person{Name: "alice", Address: address{City: "nyc"}}

	v, err := a.Get(p, "Name")
	require.NoError(t, err)
	assert.Equal(t, "alice", v)

	v, err = a.Get(p, "Address.City")
	require.NoError(t, err)
	assert.Equal(t, "nyc", v)
}

func TestDefault_SetField(t *testing.T) {
	a := NewDefault()
	p := &person{}
	require.NoError(t, a.Set(p, "Name", "bob"))
	assert.Equal(t, "bob", p.Name)

	require.NoError(t, a.Set(p, "Address.City", "sf"))
	assert.Equal(t, "sf", p.Address.City)
}

func TestDefault_SetMapKey(t *testing.T) {
	a := NewDefault()
	m := map[string]any{}
	require.NoError(t, a.Set(m, "name", "alice"))
	assert.Equal(t, "alice", m["name"])
}

func TestDefault_HasSetterAndSetterType(t *testing.T) {
	a := NewDefault()
	assert.True(t, a.HasSetter(reflect.TypeOf(person{}), "Name"))
	assert.False(t, a.HasSetter(reflect.TypeOf(person{}), "Missing"))

	typ, ok := a.SetterType(reflect.TypeOf(person{}), "Age")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf(0), typ)
}

func TestDefault_IsCollection(t *testing.T) {
	a := NewDefault()
	assert.True(t, a.IsCollection(reflect.TypeOf([]int{})))
	assert.True(t, a.IsCollection(reflect.TypeOf(map[string]int{})))
	assert.False(t, a.IsCollection(reflect.TypeOf(person{})))
}

func TestDefault_Fields(t *testing.T) {
	a := NewDefault()
	fields := a.Fields(reflect.TypeOf(person{}))
	assert.ElementsMatch(t, []string{"Name", "Age", "Address"}, fields)
}

func TestDefault_CreateNoArgs(t *testing.T) {
	a := NewDefault()
	v, err := a.Create(reflect.TypeOf(person{}), nil, nil)
	require.NoError(t, err)
	_, ok := v.(*person)
	assert.True(t, ok)
}

func TestDefault_CreateByFieldPosition(t *testing.T) {
	a := NewDefault()
	v, err := a.Create(reflect.TypeOf(person{}), nil, []any{"carol", 40})
	require.NoError(t, err)
	p, ok := v.(*person)
	require.True(t, ok)
	assert.Equal(t, "carol", p.Name)
	assert.Equal(t, 40, p.Age)
}
