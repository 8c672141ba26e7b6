package registry

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veloxsql/veloxsql/mapping"
	"github.com/veloxsql/veloxsql/types"
)

func newTestRegistry() *Registry {
	handlers := types.NewRegistry()
	types.RegisterDefaults(handlers)
	return New(DefaultSettings(), mapping.NewRegistry(mapping.AutoMapPartial), handlers)
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := newTestRegistry()
	stmt := &Statement{ID: "User.findByID", Kind: Select}
	require.NoError(t, r.Register(stmt))

	got, err := r.Statement("User.findByID")
	require.NoError(t, err)
	assert.Same(t, stmt, got)
	assert.Equal(t, "User", got.Namespace())
}

func TestRegistry_StatementUnknownIsBindingError(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Statement("User.missing")
	assert.Error(t, err)
}

func TestRegistry_DuplicateRegisterFails(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(&Statement{ID: "User.findByID"}))
	err := r.Register(&Statement{ID: "User.findByID"})
	assert.Error(t, err)
}

func TestRegistry_FreezeRejectsFurtherRegistration(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(&Statement{ID: "User.findByID"}))
	require.NoError(t, r.Freeze())

	err := r.Register(&Statement{ID: "User.other"})
	assert.Error(t, err)

	err = r.RegisterNamespaceCache("User", nil)
	assert.Error(t, err)
}

func TestRegistry_FreezeIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.Register(&Statement{ID: "User.findByID"}))
	require.NoError(t, r.Freeze())
	require.NoError(t, r.Freeze())
}

// TestRegistry_FreezeValidatesNestedSelectReference exercises the
// cross-reference validation path that walks a statement's ResultMaps
// looking up other registered statements by id while Freeze still holds
// the registry's write lock — Statement's own RLock must not be taken on
// that path, or this test deadlocks instead of failing.
func TestRegistry_FreezeValidatesNestedSelectReference(t *testing.T) {
	r := newTestRegistry()

	type Order struct {
		ID     int64
		UserID int64
	}
	rm := &mapping.ResultMap{
		ID:     "order",
		Target: reflect.TypeOf(Order{}),
		Mappings: []mapping.Mapping{
			{Column: "user_id", Property: "UserID", NestedSelect: "User.findByID"},
		},
	}
	require.NoError(t, r.Register(&Statement{ID: "Order.findByID", ResultMaps: []*mapping.ResultMap{rm}}))

	err := r.Freeze()
	assert.Error(t, err, "nested select references a statement that was never registered")
}

func TestRegistry_FreezeAcceptsResolvedNestedSelectReference(t *testing.T) {
	r := newTestRegistry()

	type Order struct {
		ID     int64
		UserID int64
	}
	rm := &mapping.ResultMap{
		ID:     "order",
		Target: reflect.TypeOf(Order{}),
		Mappings: []mapping.Mapping{
			{Column: "user_id", Property: "UserID", NestedSelect: "User.findByID"},
		},
	}
	require.NoError(t, r.Register(&Statement{ID: "User.findByID"}))
	require.NoError(t, r.Register(&Statement{ID: "Order.findByID", ResultMaps: []*mapping.ResultMap{rm}}))

	assert.NoError(t, r.Freeze())
}

func TestRegistry_NamespaceCache(t *testing.T) {
	r := newTestRegistry()
	_, ok := r.NamespaceCache("User")
	assert.False(t, ok)

	require.NoError(t, r.RegisterNamespaceCache("User", nil))
	_, ok = r.NamespaceCache("User")
	assert.True(t, ok)
}

func TestNew_PanicsOnNilCollaborators(t *testing.T) {
	handlers := types.NewRegistry()
	assert.Panics(t, func() {
		New(DefaultSettings(), nil, handlers)
	})
	assert.Panics(t, func() {
		New(DefaultSettings(), mapping.NewRegistry(mapping.AutoMapPartial), nil)
	})
}

func newResultSetFixture(t *testing.T) (*Registry, *mapping.Registry) {
	t.Helper()
	handlers := types.NewRegistry()
	types.RegisterDefaults(handlers)
	resultMaps := mapping.NewRegistry(mapping.AutoMapPartial)
	resultMaps.Register(&mapping.ResultMap{ID: "order", Target: reflect.TypeOf(struct{}{})})
	resultMaps.Register(&mapping.ResultMap{ID: "archivedOrder", Target: reflect.TypeOf(struct{}{})})
	return New(DefaultSettings(), resultMaps, handlers), resultMaps
}

func TestRegistry_FreezeCollectsResultSetBindings(t *testing.T) {
	r, resultMaps := newResultSetFixture(t)
	resultMaps.Register(&mapping.ResultMap{
		ID:     "user",
		Target: reflect.TypeOf(struct{}{}),
		Mappings: []mapping.Mapping{
			{Column: "id", Property: "ID", Flags: mapping.MappingFlags{ID: true}},
			{
				Property:          "Orders",
				NestedResultMapID: "order",
				ResultSet:         "orders",
				Column:            "id",
				ForeignColumn:     "uid",
			},
		},
	})
	userRM, ok := resultMaps.Get("user")
	require.True(t, ok)

	require.NoError(t, r.Register(&Statement{
		ID:         "User.findWithOrders",
		Kind:       Select,
		Shape:      ShapeCallable,
		ResultMaps: []*mapping.ResultMap{userRM},
		ResultSets: []string{"users", "orders"},
	}))
	require.NoError(t, r.Freeze())

	b, ok := r.ResultSetBinding("User.findWithOrders", "orders")
	require.True(t, ok)
	assert.Equal(t, "order", b.ChildResultMapID)
	assert.Equal(t, "id", b.Column)
	assert.Equal(t, "uid", b.ForeignColumn)
}

func TestRegistry_FreezeRejectsAmbiguousResultSetBinding(t *testing.T) {
	r, resultMaps := newResultSetFixture(t)
	resultMaps.Register(&mapping.ResultMap{
		ID:     "user",
		Target: reflect.TypeOf(struct{}{}),
		Mappings: []mapping.Mapping{
			{
				Property:          "Orders",
				NestedResultMapID: "order",
				ResultSet:         "orders",
				Column:            "id",
				ForeignColumn:     "uid",
			},
			{
				Property:          "Archived",
				NestedResultMapID: "archivedOrder",
				ResultSet:         "orders",
				Column:            "id",
				ForeignColumn:     "uid",
			},
		},
	})
	userRM, ok := resultMaps.Get("user")
	require.True(t, ok)

	require.NoError(t, r.Register(&Statement{
		ID:         "User.findWithOrders",
		Kind:       Select,
		Shape:      ShapeCallable,
		ResultMaps: []*mapping.ResultMap{userRM},
		ResultSets: []string{"users", "orders"},
	}))

	err := r.Freeze()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already bound")
}

func TestRegistry_FreezeRejectsResultSetWithoutResultMap(t *testing.T) {
	r, resultMaps := newResultSetFixture(t)
	resultMaps.Register(&mapping.ResultMap{
		ID:     "user",
		Target: reflect.TypeOf(struct{}{}),
		Mappings: []mapping.Mapping{
			{Property: "Orders", ResultSet: "orders", Column: "id"},
		},
	})
	userRM, ok := resultMaps.Get("user")
	require.True(t, ok)

	require.NoError(t, r.Register(&Statement{
		ID:         "User.findWithOrders",
		Kind:       Select,
		ResultMaps: []*mapping.ResultMap{userRM},
		ResultSets: []string{"users", "orders"},
	}))

	err := r.Freeze()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without a resultMap")
}

func TestRegistry_FreezeRejectsUndeclaredResultSet(t *testing.T) {
	r, resultMaps := newResultSetFixture(t)
	resultMaps.Register(&mapping.ResultMap{
		ID:     "user",
		Target: reflect.TypeOf(struct{}{}),
		Mappings: []mapping.Mapping{
			{
				Property:          "Orders",
				NestedResultMapID: "order",
				ResultSet:         "archive",
				Column:            "id",
			},
		},
	})
	userRM, ok := resultMaps.Get("user")
	require.True(t, ok)

	require.NoError(t, r.Register(&Statement{
		ID:         "User.findWithOrders",
		Kind:       Select,
		ResultMaps: []*mapping.ResultMap{userRM},
		ResultSets: []string{"users", "orders"},
	}))

	err := r.Freeze()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared result set")
}
