package mapping

import (
	"reflect"

	"github.com/veloxsql/veloxsql/types"
)

// AutoMapSetting controls whether unmapped result-set columns are matched
// to target properties by name.
type AutoMapSetting int

const (
	// AutoMapUnset inherits the registry's global default.
	AutoMapUnset AutoMapSetting = iota
	AutoMapNone
	AutoMapPartial
	AutoMapFull
)

// LazyMode controls whether a nested sub-query mapping is resolved through
// the deferred-load queue or immediately. LazyUnset inherits
// the registry-wide LazyLoadingEnabled default; LazyForce/LazyEager pin a single
// mapping regardless of that default.
type LazyMode int

const (
	LazyUnset LazyMode = iota
	LazyForce
	LazyEager
)

// MappingFlags records whether a mapping participates in row-key identity
// (ID) or constructor argument assembly (Constructor).
type MappingFlags struct {
	ID          bool
	Constructor bool
}

// Mapping is one column-to-property binding inside a ResultMap. It may
// additionally be a nested sub-query (NestedSelect set) or a nested result
// map (NestedResultMapID set) — never both.
type Mapping struct {
	Column       string
	Property     string
	ColumnPrefix string
	Flags        MappingFlags

	JdbcType    types.ColumnType
	TypeHandler string

	// NestedSelect is the referenced compiled statement id for a nested
	// sub-query mapping.
	NestedSelect       string
	NestedSelectColumn []string
	Lazy               LazyMode

	// NestedResultMapID is the referenced ResultMap id for inline nested
	// object composition.
	NestedResultMapID string
	NotNullColumns    []string

	// ResultSet names the later result set of a multi-result-set
	// (callable) statement that supplies this mapping's child rows.
	// Column then names the driving row's join column(s) and
	// ForeignColumn the matching column(s) in the child result set, both
	// comma-separated. A ResultSet mapping composes through
	// NestedResultMapID; its rows are mapped by MapResultSets when that
	// result set arrives, never from the driving row itself.
	ResultSet     string
	ForeignColumn string
}

// Discriminator resolves a column's value to the id of the ResultMap that
// should actually apply to the row.
type Discriminator struct {
	Column  string
	Cases   map[string]string // stringified column value -> result-map id
	Default string            // result-map id used when no case matches; "" means stay on the current map
}

// ResultMap is the immutable result-map tree.
type ResultMap struct {
	ID              string
	Target          reflect.Type
	ConstructorArgs []Mapping // ordered, Flags.Constructor == true
	Mappings        []Mapping // ordered, non-constructor
	Discriminator   *Discriminator
	AutoMap         AutoMapSetting
	ResultOrdered   bool
	// CallSettersOnNulls mirrors the per-map override of the same global
	// setting.
	CallSettersOnNulls     bool
	ReturnInstanceForEmptyRow bool
}

// IDMappings returns the subset of Mappings flagged Id, used to compute a
// row key.
func (m *ResultMap) IDMappings() []Mapping {
	var out []Mapping
	for _, mp := range m.Mappings {
		if mp.Flags.ID {
			out = append(out, mp)
		}
	}
	return out
}

// Registry holds every configured ResultMap by id. Unlike the Statement
// Registry it has no freeze step.
type Registry struct {
	maps          map[string]*ResultMap
	globalAutoMap AutoMapSetting
}

// NewRegistry returns an empty result-map registry. globalAutoMap is the
// default applied to a ResultMap whose own AutoMap is AutoMapUnset.
func NewRegistry(globalAutoMap AutoMapSetting) *Registry {
	return &Registry{maps: make(map[string]*ResultMap), globalAutoMap: globalAutoMap}
}

// Register adds rm to the registry, keyed by its id.
func (r *Registry) Register(rm *ResultMap) {
	r.maps[rm.ID] = rm
}

// Get returns the ResultMap registered under id.
func (r *Registry) Get(id string) (*ResultMap, bool) {
	rm, ok := r.maps[id]
	return rm, ok
}

// EffectiveAutoMap resolves rm's AutoMap setting against the registry's
// global default, and applies the PARTIAL/non-nested-only rule:
// nested is true when rm is being resolved as a nested result map rather
// than a statement's top-level result map.
func (r *Registry) EffectiveAutoMap(rm *ResultMap, nested bool) AutoMapSetting {
	setting := rm.AutoMap
	if setting == AutoMapUnset {
		setting = r.globalAutoMap
	}
	if setting == AutoMapPartial && nested {
		return AutoMapNone
	}
	return setting
}
