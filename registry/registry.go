package registry

import (
	"context"
	"database/sql"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/veloxsql/veloxsql/ast"
	"github.com/veloxsql/veloxsql/bean"
	"github.com/veloxsql/veloxsql/cache"
	"github.com/veloxsql/veloxsql/mapping"
	"github.com/veloxsql/veloxsql/types"
	"github.com/veloxsql/veloxsql/verrors"
)

// StatementKind is the Compiled Statement's kind.
type StatementKind int

const (
	Select StatementKind = iota
	Insert
	Update
	Delete
	Flush
)

func (k StatementKind) String() string {
	switch k {
	case Select:
		return "SELECT"
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	case Flush:
		return "FLUSH"
	default:
		return "UNKNOWN"
	}
}

// Shape is the statement's driver-level execution shape.
type Shape int

const (
	ShapePlain Shape = iota
	ShapePrepared
	ShapeCallable
)

// ResultSetType is the result-set traversal mode requested of the driver.
type ResultSetType int

const (
	ResultSetForwardOnly ResultSetType = iota
	ResultSetScrollInsensitive
	ResultSetScrollSensitive
)

// LocalCacheScope controls when the first-level (session) cache is
// cleared: at the end of every statement, or only at
// commit/rollback/close.
type LocalCacheScope int

const (
	LocalCacheSession LocalCacheScope = iota
	LocalCacheStatement
)

// Flags are the Compiled Statement's boolean knobs.
type Flags struct {
	FlushCache    bool
	UseCache      bool
	ResultOrdered bool
}

// KeyGenerator is implemented by package keygen's Jdbc3 and SelectKey
// generators. Declared here, rather than in keygen, so that a
// Statement can reference one without keygen importing registry.
type KeyGenerator interface {
	// GenerateBefore runs before the insert executes (SelectKey
	// before=true); a no-op generator does nothing here.
	GenerateBefore(ctx context.Context, accessor bean.Accessor, arg any) error
	// GenerateAfter runs after the insert executes, given the driver
	// result and (for batch inserts) every argument in submission order.
	GenerateAfter(ctx context.Context, accessor bean.Accessor, args []any, result sql.Result) error
}

// Statement is the immutable Compiled Statement: created at
// configuration time, never mutated afterward.
type Statement struct {
	ID            string
	Kind          StatementKind
	AST           ast.Node
	ParameterType reflect.Type
	ResultMaps    []*mapping.ResultMap
	Flags         Flags
	KeyGenerator  KeyGenerator
	Timeout       time.Duration
	FetchSize     int
	Shape         Shape
	ResultSetType ResultSetType
	DatabaseID    string
	// BatchSize, when > 0, lets the Executor fan a slice/map Insert
	// argument out into batched prepared-statement executions instead of
	// requiring the caller to loop.
	BatchSize int
	// ResultSets names a multi-result-set (callable) statement's result
	// sets in arrival order; ResultSets[0] is the driving set. Later
	// names are matched against the ResultSet declared on mappings of
	// the driving result map.
	ResultSets []string
}

// Namespace is the portion of the statement id before its final ".",
// matching MyBatis-family convention for grouping statements and their
// second-level cache under a shared namespace.
func (s *Statement) Namespace() string {
	if i := strings.LastIndex(s.ID, "."); i >= 0 {
		return s.ID[:i]
	}
	return s.ID
}

// Settings are the registry-wide defaults every statement renders and maps
// under, unless overridden per-statement or per-ResultMap.
type Settings struct {
	DefaultAutoMap           mapping.AutoMapSetting
	LocalCacheScope          LocalCacheScope
	CallSettersOnNulls       bool
	MapUnderscoreToCamelCase bool
	JdbcTypeForNull          types.ColumnType
	SafeRowBounds            bool
	LazyLoadingEnabled       bool
	AggressiveLazyLoading    bool
}

// DefaultSettings returns the registry defaults a freshly built Registry
// uses unless overridden.
func DefaultSettings() Settings {
	return Settings{
		DefaultAutoMap:  mapping.AutoMapPartial,
		LocalCacheScope: LocalCacheSession,
		JdbcTypeForNull: types.ColumnOther,
	}
}

// Registry is the Statement Registry: build-then-freeze,
// shared-immutable once frozen, and safe for concurrent reads from many
// Sessions afterward.
type Registry struct {
	mu         sync.RWMutex
	frozen     bool
	statements map[string]*Statement
	resultMaps *mapping.Registry
	namespaces map[string]cache.Store
	handlers   *types.Registry
	resultSets *mapping.ResultSetRegistry
	settings   Settings
}

// New returns an empty, mutable Registry. ResultMaps and TypeHandlers
// panic if nil — both are required collaborators for every statement this
// registry will hold.
func New(settings Settings, resultMaps *mapping.Registry, handlers *types.Registry) *Registry {
	if resultMaps == nil {
		panic("registry: resultMaps must not be nil")
	}
	if handlers == nil {
		panic("registry: handlers must not be nil")
	}
	return &Registry{
		statements: make(map[string]*Statement),
		resultMaps: resultMaps,
		namespaces: make(map[string]cache.Store),
		handlers:   handlers,
		resultSets: mapping.NewResultSetRegistry(),
		settings:   settings,
	}
}

// Register adds stmt, keyed by its id. Returns a ConfigurationError if the
// registry is already frozen or stmt.ID is already registered.
func (r *Registry) Register(stmt *Statement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return verrors.NewConfigurationError(stmt.ID, "registry is frozen", nil)
	}
	if _, exists := r.statements[stmt.ID]; exists {
		return verrors.NewConfigurationError(stmt.ID, "duplicate statement id", nil)
	}
	r.statements[stmt.ID] = stmt
	return nil
}

// RegisterNamespaceCache installs store as namespace's second-level cache.
func (r *Registry) RegisterNamespaceCache(namespace string, store cache.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return verrors.NewConfigurationError(namespace, "registry is frozen", nil)
	}
	r.namespaces[namespace] = store
	return nil
}

// NamespaceCache returns the second-level cache registered for namespace.
func (r *Registry) NamespaceCache(namespace string) (cache.Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.namespaces[namespace]
	return s, ok
}

// Statement returns the compiled statement registered under id, or a
// BindingError if none exists.
func (r *Registry) Statement(id string) (*Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.statements[id]
	if !ok {
		return nil, verrors.NewBindingError(id, "unknown statement id")
	}
	return s, nil
}

// Statements returns every registered statement, for iteration during
// validation or introspection.
func (r *Registry) Statements() []*Statement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Statement, 0, len(r.statements))
	for _, s := range r.statements {
		out = append(out, s)
	}
	return out
}

// ResultMaps returns the shared Result Map registry.
func (r *Registry) ResultMaps() *mapping.Registry { return r.resultMaps }

// ResultSetBinding returns the binding Freeze collected for statementID's
// named result set, if any.
func (r *Registry) ResultSetBinding(statementID, resultSet string) (mapping.ResultSetBinding, bool) {
	return r.resultSets.Lookup(statementID, resultSet)
}

// TypeHandlers returns the shared Type Handler Registry.
func (r *Registry) TypeHandlers() *types.Registry { return r.handlers }

// Settings returns the registry-wide defaults.
func (r *Registry) Settings() Settings { return r.settings }

// Freeze validates every statement's cross-references (nested sub-query
// and nested/discriminator result-map ids), collects each declared
// result-set binding — rejecting a second distinct child result map for
// the same parent/result-set pair — and marks the registry immutable.
// Subsequent Register/RegisterNamespaceCache calls fail. Only the first
// call has effect; a later call is a no-op returning nil.
func (r *Registry) Freeze() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return nil
	}
	var errs []error
	for _, stmt := range r.statements {
		for _, rm := range stmt.ResultMaps {
			errs = append(errs, r.validateResultMap(stmt.ID, rm, map[string]bool{})...)
			errs = append(errs, r.bindResultSets(stmt, rm)...)
		}
	}
	r.frozen = true
	return verrors.NewAggregateError(errs...)
}

func (r *Registry) validateResultMap(statementID string, rm *mapping.ResultMap, visited map[string]bool) []error {
	if rm == nil {
		return nil
	}
	if visited[rm.ID] {
		return nil
	}
	visited[rm.ID] = true

	var errs []error
	validateMappings := func(mappings []mapping.Mapping) {
		for _, m := range mappings {
			if m.NestedSelect != "" && m.NestedResultMapID != "" {
				errs = append(errs, verrors.NewConfigurationError(statementID,
					"mapping for column "+m.Column+" sets both select and resultMap", nil))
				continue
			}
			if m.NestedSelect != "" {
				if _, ok := r.statements[m.NestedSelect]; !ok {
					errs = append(errs, verrors.NewConfigurationError(statementID,
						"nested select references unknown statement "+m.NestedSelect, nil))
				}
			}
			if m.NestedResultMapID != "" {
				nested, ok := r.resultMaps.Get(m.NestedResultMapID)
				if !ok {
					errs = append(errs, verrors.NewConfigurationError(statementID,
						"nested resultMap references unknown id "+m.NestedResultMapID, nil))
					continue
				}
				errs = append(errs, r.validateResultMap(statementID, nested, visited)...)
			}
		}
	}
	validateMappings(rm.ConstructorArgs)
	validateMappings(rm.Mappings)

	if d := rm.Discriminator; d != nil {
		for _, id := range d.Cases {
			nested, ok := r.resultMaps.Get(id)
			if !ok {
				errs = append(errs, verrors.NewConfigurationError(statementID,
					"discriminator references unknown resultMap "+id, nil))
				continue
			}
			errs = append(errs, r.validateResultMap(statementID, nested, visited)...)
		}
	}
	return errs
}

// bindResultSets collects rm's ResultSet mappings into the result-set
// binding registry. A mapping declaring a result set must compose through
// a result map, must name one of stmt's declared result sets, and must
// not claim a result set another mapping already bound to a different
// child map — the ambiguity is rejected here rather than resolved by
// whichever mapping happens to map the rows last.
func (r *Registry) bindResultSets(stmt *Statement, rm *mapping.ResultMap) []error {
	var errs []error
	for _, mp := range rm.Mappings {
		if mp.ResultSet == "" {
			continue
		}
		if mp.NestedSelect != "" {
			errs = append(errs, verrors.NewConfigurationError(stmt.ID,
				"mapping for property "+mp.Property+" declares resultSet with select; bind a resultMap instead", nil))
			continue
		}
		if mp.NestedResultMapID == "" {
			errs = append(errs, verrors.NewConfigurationError(stmt.ID,
				"mapping for property "+mp.Property+" declares resultSet without a resultMap", nil))
			continue
		}
		if len(stmt.ResultSets) > 0 && !slices.Contains(stmt.ResultSets, mp.ResultSet) {
			errs = append(errs, verrors.NewConfigurationError(stmt.ID,
				"mapping for property "+mp.Property+" references undeclared result set \""+mp.ResultSet+"\"", nil))
			continue
		}
		if err := r.resultSets.Bind(mapping.ResultSetBinding{
			ParentStatementID: stmt.ID,
			ResultSet:         mp.ResultSet,
			ChildResultMapID:  mp.NestedResultMapID,
			Column:            mp.Column,
			ForeignColumn:     mp.ForeignColumn,
		}); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
