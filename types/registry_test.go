package types

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	byName  map[string]any
	byIndex map[int]any
}

func (r *fakeRow) ScanByIndex(i int, dest any) error {
	return assignAny(dest, r.byIndex[i])
}

func (r *fakeRow) ScanByName(column string, dest any) error {
	return assignAny(dest, r.byName[column])
}

func assignAny(dest any, v any) error {
	p := dest.(*any)
	*p = v
	return nil
}

func TestRegistry_ExactMatch(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	r.Register(reflect.TypeOf(""), ColumnVarchar, StringHandler)

	h, err := r.Resolve(reflect.TypeOf(""), ColumnVarchar)
	require.NoError(t, err)
	assert.Same(t, StringHandler, h)
}

func TestRegistry_HostNullFallback(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	h, err := r.Resolve(reflect.TypeOf(int64(0)), ColumnBigInt)
	require.NoError(t, err)
	assert.Same(t, Int64Handler, h)
}

func TestRegistry_SoleHandlerForHost(t *testing.T) {
	r := NewRegistry()
	type Widget struct{}
	custom := NewJSONHandler(reflect.TypeOf(Widget{}))
	r.RegisterHost(reflect.TypeOf(Widget{}), custom)

	h, err := r.Resolve(reflect.TypeOf(Widget{}), ColumnUnknown)
	require.NoError(t, err)
	assert.Same(t, custom, h)
}

func TestRegistry_InterfaceChain(t *testing.T) {
	r := NewRegistry()
	stringer := reflect.TypeOf((*interface{ String() string })(nil)).Elem()
	r.Register(stringer, ColumnVarchar, StringHandler)

	h, err := r.Resolve(reflect.TypeOf(stringerType{}), ColumnVarchar)
	require.NoError(t, err)
	assert.Same(t, StringHandler, h)
}

type stringerType struct{}

func (stringerType) String() string { return "stringer" }

func TestRegistry_EnumDefault(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	type Status string
	h, err := r.Resolve(reflect.TypeOf(Status("")), ColumnVarchar)
	require.NoError(t, err)
	require.NotNil(t, h)

	row := &fakeRow{byName: map[string]any{"status": "active"}}
	v, err := h.GetByName(row, "status")
	require.NoError(t, err)
	assert.Equal(t, Status("active"), v)
}

func TestRegistry_UnknownFallback(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	type Unregistered struct{ X int }
	h, err := r.Resolve(reflect.TypeOf(Unregistered{}), ColumnUnknown)
	require.NoError(t, err)
	assert.Same(t, UnknownHandler, h)
}

func TestRegistry_NoHandlerError(t *testing.T) {
	r := NewRegistry()
	type Unregistered struct{}
	_, err := r.Resolve(reflect.TypeOf(Unregistered{}), ColumnUnknown)
	assert.Error(t, err)
}

func TestRegistry_PointerHostDereferenced(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	h, err := r.Resolve(reflect.TypeOf(new(string)), ColumnVarchar)
	require.NoError(t, err)
	assert.Same(t, StringHandler, h)
}

func TestRegistry_ByClass(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	h, ok := r.ByClass(reflect.TypeOf(StringHandler))
	require.True(t, ok)
	assert.Same(t, StringHandler, h)
}

func TestStringHandler_SetAndGet(t *testing.T) {
	driverValue, err := StringHandler.Set("hello", ColumnVarchar)
	require.NoError(t, err)
	assert.Equal(t, "hello", driverValue)

	row := &fakeRow{byIndex: map[int]any{0: []byte("world")}}
	v, err := StringHandler.GetByIndex(row, 0)
	require.NoError(t, err)
	assert.Equal(t, "world", v)
}

func TestInt64Handler_FromBytes(t *testing.T) {
	row := &fakeRow{byName: map[string]any{"count": []byte("42")}}
	v, err := Int64Handler.GetByName(row, "count")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestBoolHandler_FromInt(t *testing.T) {
	row := &fakeRow{byName: map[string]any{"active": int64(1)}}
	v, err := BoolHandler.GetByName(row, "active")
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestJSONHandler_RoundTrip(t *testing.T) {
	type Payload struct {
		Name string `json:"name"`
	}
	h := NewJSONHandler(reflect.TypeOf(Payload{}))

	driverValue, err := h.Set(Payload{Name: "a"}, ColumnJSON)
	require.NoError(t, err)

	row := &fakeRow{byName: map[string]any{"payload": driverValue}}
	v, err := h.GetByName(row, "payload")
	require.NoError(t, err)
	assert.Equal(t, Payload{Name: "a"}, v)
}

func TestBasicHandler_SetNilIsNil(t *testing.T) {
	v, err := StringHandler.Set(nil, ColumnVarchar)
	require.NoError(t, err)
	assert.Nil(t, v)
}
