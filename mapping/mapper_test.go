package mapping

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/veloxsql/veloxsql/bean"
	"github.com/veloxsql/veloxsql/types"
)

// fakeRowSource feeds MapRows from an in-memory table, standing in for a
// driver result set without a live database.
type fakeRowSource struct {
	columns []string
	rows    []map[string]any
	idx     int
}

func newFakeRowSource(columns []string, rows ...map[string]any) *fakeRowSource {
	return &fakeRowSource{columns: columns, rows: rows, idx: -1}
}

func (f *fakeRowSource) Next() bool {
	f.idx++
	return f.idx < len(f.rows)
}

func (f *fakeRowSource) Columns() ([]string, error) { return f.columns, nil }

func (f *fakeRowSource) ScanByIndex(i int, dest any) error {
	return f.ScanByName(f.columns[i], dest)
}

func (f *fakeRowSource) ScanByName(column string, dest any) error {
	p, ok := dest.(*any)
	if ok {
		*p = f.rows[f.idx][column]
	}
	return nil
}

func (f *fakeRowSource) Err() error   { return nil }
func (f *fakeRowSource) Close() error { return nil }

// fakeSession satisfies the narrow mapping.Session capability; neither
// scenario below declares a nested sub-query mapping, so both methods are
// unreached and only need to exist to satisfy the interface.
type fakeSession struct{}

func (fakeSession) QueryNested(context.Context, string, any) (any, error) { return nil, nil }
func (fakeSession) DeferLoad(DeferredLoad)                                {}

func newTestMapper(t *testing.T, resultMaps *Registry) *Mapper {
	t.Helper()
	handlers := types.NewRegistry()
	types.RegisterDefaults(handlers)
	return NewMapper(MapperConfig{
		TypeHandlers: handlers,
		Accessor:     bean.NewDefault(),
		ResultMaps:   resultMaps,
	})
}

// Three rows sharing two outer identities fold into two outer objects,
// each carrying its own Items collection.
func TestMapRows_NestedResultMapWithID(t *testing.T) {
	type Item struct {
		ID    int64
		Label string
	}
	type Outer struct {
		ID    int64
		Name  string
		Items []Item
	}

	resultMaps := NewRegistry(AutoMapNone)
	resultMaps.Register(&ResultMap{
		ID:     "item",
		Target: reflect.TypeOf(Item{}),
		Mappings: []Mapping{
			{Column: "item_id", Property: "ID", Flags: MappingFlags{ID: true}},
			{Column: "item_label", Property: "Label"},
		},
	})
	resultMaps.Register(&ResultMap{
		ID:     "outer",
		Target: reflect.TypeOf(Outer{}),
		Mappings: []Mapping{
			{Column: "id", Property: "ID", Flags: MappingFlags{ID: true}},
			{Column: "name", Property: "Name"},
			{Property: "Items", NestedResultMapID: "item"},
		},
	})
	rm, ok := resultMaps.Get("outer")
	require.True(t, ok)

	rs := newFakeRowSource(
		[]string{"id", "name", "item_id", "item_label"},
		map[string]any{"id": int64(1), "name": "a", "item_id": int64(10), "item_label": "x"},
		map[string]any{"id": int64(1), "name": "a", "item_id": int64(11), "item_label": "y"},
		map[string]any{"id": int64(2), "name": "b", "item_id": int64(12), "item_label": "z"},
	)

	m := newTestMapper(t, resultMaps)
	out, err := m.MapRows(context.Background(), rs, []*ResultMap{rm}, RowRange{}, nil, fakeSession{})
	require.NoError(t, err)

	want := []any{
		&Outer{ID: 1, Name: "a", Items: []Item{{10, "x"}, {11, "y"}}},
		&Outer{ID: 2, Name: "b", Items: []Item{{12, "z"}}},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("mapped rows mismatch (-want +got):\n%s", diff)
	}
}

// A discriminator on "kind" routes the row to result map TA, which only
// knows about Alpha; the row's Beta column is never touched.
func TestMapRows_Discriminator(t *testing.T) {
	type TA struct {
		Kind  string
		Alpha int64
	}
	type TB struct {
		Kind string
		Beta int64
	}

	resultMaps := NewRegistry(AutoMapNone)
	resultMaps.Register(&ResultMap{
		ID:     "TA",
		Target: reflect.TypeOf(TA{}),
		Mappings: []Mapping{
			{Column: "kind", Property: "Kind"},
			{Column: "alpha", Property: "Alpha"},
		},
	})
	resultMaps.Register(&ResultMap{
		ID:     "TB",
		Target: reflect.TypeOf(TB{}),
		Mappings: []Mapping{
			{Column: "kind", Property: "Kind"},
			{Column: "beta", Property: "Beta"},
		},
	})
	resultMaps.Register(&ResultMap{
		ID:     "T",
		Target: reflect.TypeOf(TA{}),
		Discriminator: &Discriminator{
			Column: "kind",
			Cases:  map[string]string{"A": "TA", "B": "TB"},
		},
	})
	rm, ok := resultMaps.Get("T")
	require.True(t, ok)

	rs := newFakeRowSource(
		[]string{"kind", "alpha", "beta"},
		map[string]any{"kind": "A", "alpha": int64(7), "beta": int64(9)},
	)

	m := newTestMapper(t, resultMaps)
	out, err := m.MapRows(context.Background(), rs, []*ResultMap{rm}, RowRange{}, nil, fakeSession{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	got, ok := out[0].(*TA)
	require.True(t, ok, "discriminator should have routed to TA, got %T", out[0])
	if diff := cmp.Diff(&TA{Kind: "A", Alpha: 7}, got); diff != "" {
		t.Fatalf("discriminated row mismatch (-want +got):\n%s", diff)
	}
}

// Cyclic discriminators must terminate with a MappingError, not loop
// forever.
func TestMapRows_DiscriminatorCycleIsRejected(t *testing.T) {
	type Row struct{ Kind string }

	resultMaps := NewRegistry(AutoMapNone)
	a := &ResultMap{ID: "A", Target: reflect.TypeOf(Row{})}
	b := &ResultMap{ID: "B", Target: reflect.TypeOf(Row{})}
	a.Discriminator = &Discriminator{Column: "kind", Cases: map[string]string{"x": "B"}}
	b.Discriminator = &Discriminator{Column: "kind", Cases: map[string]string{"x": "A"}}
	resultMaps.Register(a)
	resultMaps.Register(b)

	rs := newFakeRowSource([]string{"kind"}, map[string]any{"kind": "x"})
	m := newTestMapper(t, resultMaps)
	_, err := m.MapRows(context.Background(), rs, []*ResultMap{a}, RowRange{}, nil, fakeSession{})
	require.Error(t, err)
}
