package mapping

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/veloxsql/veloxsql/bean"
	"github.com/veloxsql/veloxsql/cachekey"
	"github.com/veloxsql/veloxsql/types"
	"github.com/veloxsql/veloxsql/verrors"
)

// Session is the narrow capability the mapper needs from its caller to
// resolve a nested sub-query, without importing package exec
// (which itself depends on mapping to turn rows into objects).
type Session interface {
	// QueryNested executes statementID with arg and returns the already-
	// mapped result: a single value for a result map expected to produce
	// one row, or a []any for a multi-row nested select. The session-cache
	// lookup (hit, defer, or execute) lives inside this call, not in the
	// mapper.
	QueryNested(ctx context.Context, statementID string, arg any) (any, error)
	// DeferLoad enqueues load to run after the current top-level query's
	// row processing completes.
	DeferLoad(load DeferredLoad)
}

// DeferredLoad is a queued property assignment: resolve a nested
// sub-query and assign its result into the property it was discovered
// against, preserving queue order.
type DeferredLoad func(ctx context.Context, sess Session) error

// RowSource is defined in rowsource.go, together with the concrete
// *sql.Rows adapter.

// RowRange is the caller-supplied (offset, limit) slice of rows to
// materialize.
type RowRange struct {
	Offset int
	Limit  int
}

func (rr RowRange) normalize() (offset, limit int) {
	offset = rr.Offset
	if offset < 0 {
		offset = 0
	}
	limit = rr.Limit
	if limit <= 0 {
		limit = -1 // unbounded
	}
	return
}

// Consumer receives one mapped row at a time; returning false stops row
// processing early.
type Consumer func(row any) bool

// MapperConfig are the Mapper's fixed collaborators and global settings.
type MapperConfig struct {
	TypeHandlers             *types.Registry
	Accessor                 bean.Accessor
	ResultMaps               *Registry
	MapUnderscoreToCamelCase bool
	SafeRowBounds            bool
	// LazyLoadingEnabled is the registry-wide default a mapping's
	// LazyUnset inherits.
	//
	// AggressiveLazyLoading has no distinct effect here: MyBatis's
	// aggressive mode trades "load on first proxy access" for "load
	// everything once any lazy property is touched", a distinction that
	// only exists because MyBatis can intercept property access through a
	// CGLIB proxy. This module has no such proxy; every deferred load already
	// drains together at the end of the top-level query, which is
	// already the "aggressive" behavior regardless of this flag.
	LazyLoadingEnabled    bool
	AggressiveLazyLoading bool
}

// effectiveLazy resolves mp's LazyMode against the registry-wide default
//: a mapping that doesn't pin LazyForce/LazyEager explicitly
// follows MapperConfig.LazyLoadingEnabled.
func (m *Mapper) effectiveLazy(mp Mapping) bool {
	switch mp.Lazy {
	case LazyForce:
		return true
	case LazyEager:
		return false
	default:
		return m.cfg.LazyLoadingEnabled
	}
}

// Mapper is the Result-Set Mapper: stateless and shared across
// sessions, since every piece of per-call state (identity maps, ancestor
// tracking) is scoped to a single MapRows invocation.
type Mapper struct {
	cfg MapperConfig
}

// NewMapper returns a Mapper using cfg.
func NewMapper(cfg MapperConfig) *Mapper { return &Mapper{cfg: cfg} }

// MapRows turns rs's rows into objects under resultMaps[0]; a statement
// declares more than one result map only for multi-result procedures, and
// callers needing the later result sets call MapRows again against the
// next RowSource.
// If consumer is non-nil, rows are fed to it instead of materialized into
// the returned slice, which is then nil.
func (m *Mapper) MapRows(ctx context.Context, rs RowSource, resultMaps []*ResultMap, rr RowRange, consumer Consumer, sess Session) ([]any, error) {
	if len(resultMaps) == 0 {
		return nil, verrors.NewMappingError("", "no result map configured for statement", nil)
	}
	rm := resultMaps[0]
	var deferred []DeferredLoad
	var out []any
	var err error
	if m.hasNestedResultMap(rm) {
		if (rr.Offset != 0 || rr.Limit > 0) && m.cfg.SafeRowBounds {
			return nil, verrors.NewMappingError(rm.ID, "caller-supplied row bounds rejected: safeRowBounds is enabled for nested result maps", nil)
		}
		out, err = m.mapNested(ctx, rs, rm, rr, consumer, sess, &deferred)
	} else {
		out, err = m.mapSimple(ctx, rs, rm, rr, consumer, sess, &deferred)
	}
	if err != nil {
		return nil, err
	}
	for _, load := range deferred {
		sess.DeferLoad(load)
	}
	return out, nil
}

// MapResultSets maps a multi-result-set statement: the driving rows come
// from rs under rm, and each later result set — obtained from next, which
// returns (nil, nil) once the driver has no more — is mapped under the
// child result map its plan binding names, with every child object linked
// onto the driving objects whose binding Column values match the child
// row's ForeignColumn values. A driving result map composes its children
// through result-set bindings, not same-row nested maps, so the driving
// set is processed as simple rows.
func (m *Mapper) MapResultSets(ctx context.Context, rs RowSource, next func() (RowSource, error), rm *ResultMap, plan *ResultSetPlan, rr RowRange, consumer Consumer, sess Session) ([]any, error) {
	var relations []Mapping
	for _, mp := range rm.Mappings {
		if mp.ResultSet != "" {
			relations = append(relations, mp)
		}
	}

	type relTarget struct {
		mapping Mapping
		obj     any
	}
	// result set name -> join-key -> driving objects awaiting children
	pending := make(map[string]map[string][]relTarget)

	var out []any
	drive := func(obj any) bool {
		if obj != nil {
			for _, mp := range relations {
				key := joinKey(rs, mp.Column)
				byKey := pending[mp.ResultSet]
				if byKey == nil {
					byKey = make(map[string][]relTarget)
					pending[mp.ResultSet] = byKey
				}
				byKey[key] = append(byKey[key], relTarget{mapping: mp, obj: obj})
			}
		}
		if consumer != nil {
			return consumer(obj)
		}
		out = append(out, obj)
		return true
	}

	var deferred []DeferredLoad
	if _, err := m.mapSimple(ctx, rs, rm, rr, drive, sess, &deferred); err != nil {
		return nil, err
	}

	for i := 1; i < len(plan.Names); i++ {
		crs, err := next()
		if err != nil {
			return nil, err
		}
		if crs == nil {
			break
		}
		name := plan.Names[i]
		binding, ok := plan.Bindings[name]
		childRM := plan.ChildMaps[name]
		if !ok || childRM == nil {
			// A declared result set nothing binds to is drained by the
			// driver's cursor advance; there is nowhere to map it.
			continue
		}
		targets := pending[name]
		var assignErr error
		link := func(child any) bool {
			if child == nil {
				return true
			}
			for _, t := range targets[joinKey(crs, binding.ForeignColumn)] {
				if err := m.assignNested(t.obj, t.mapping, child); err != nil {
					assignErr = err
					return false
				}
			}
			return true
		}
		if _, err := m.mapSimple(ctx, crs, childRM, RowRange{}, link, sess, &deferred); err != nil {
			return nil, err
		}
		if assignErr != nil {
			return nil, assignErr
		}
	}

	for _, load := range deferred {
		sess.DeferLoad(load)
	}
	if consumer != nil {
		return nil, nil
	}
	return out, nil
}

// joinKey folds the current row's values for a comma-separated column
// list into a string key, so driving and child rows meet in a plain map.
func joinKey(rs RowSource, columns string) string {
	key := cachekey.New()
	for _, col := range strings.Split(columns, ",") {
		key.Update(readRaw(rs, strings.TrimSpace(col)))
	}
	return key.String()
}

func (m *Mapper) hasNestedResultMap(rm *ResultMap) bool {
	for _, mp := range rm.Mappings {
		// A ResultSet mapping composes through a result map too, but its
		// rows live in a later result set, not in the driving rows.
		if mp.NestedResultMapID != "" && mp.ResultSet == "" {
			return true
		}
	}
	return false
}

// --- simple row processing ----------------------------------------------

func (m *Mapper) mapSimple(ctx context.Context, rs RowSource, rm *ResultMap, rr RowRange, consumer Consumer, sess Session, deferred *[]DeferredLoad) ([]any, error) {
	offset, limit := rr.normalize()
	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}

	var out []any
	idx := -1
	produced := 0
	for rs.Next() {
		idx++
		if idx < offset {
			continue
		}
		if limit >= 0 && produced >= limit {
			break
		}
		effective, err := m.resolveResultMap(rm, rs, "", map[string]bool{})
		if err != nil {
			return nil, err
		}
		obj, nonNull, err := m.instantiateRow(ctx, effective, rs, cols, "", sess, deferred)
		if err != nil {
			return nil, err
		}
		if !nonNull && !effective.ReturnInstanceForEmptyRow {
			obj = nil
		}
		produced++
		if consumer != nil {
			if !consumer(obj) {
				break
			}
			continue
		}
		out = append(out, obj)
	}
	if consumer != nil {
		return nil, nil
	}
	return out, nil
}

// resolveResultMap walks rm's discriminator chain,
// bounding recursion with visited so a cycle surfaces as a MappingError
// instead of looping forever.
func (m *Mapper) resolveResultMap(rm *ResultMap, rs RowSource, prefix string, visited map[string]bool) (*ResultMap, error) {
	for rm.Discriminator != nil {
		if visited[rm.ID] {
			return nil, verrors.NewMappingError(rm.ID, "discriminator resolution cycle", nil)
		}
		visited[rm.ID] = true

		raw := readRaw(rs, prefix+rm.Discriminator.Column)
		key := fmt.Sprintf("%v", raw)
		nextID, ok := rm.Discriminator.Cases[key]
		if !ok {
			if rm.Discriminator.Default == "" {
				break
			}
			nextID = rm.Discriminator.Default
		}
		next, ok := m.cfg.ResultMaps.Get(nextID)
		if !ok {
			return nil, verrors.NewMappingError(rm.ID, "discriminator case references unknown resultMap "+nextID, nil)
		}
		rm = next
	}
	return rm, nil
}

// instantiateRow builds the target object for one row under rm: scalar
// shortcut, constructor mapping, auto-map, then explicit mappings. It
// reports whether any non-null value was produced.
// A mapping whose nested select is lazy is queued onto deferred instead of
// resolved inline; deferred closures reference obj directly, so lazy
// assignment never needs a sentinel value routed through Accessor.Set.
func (m *Mapper) instantiateRow(ctx context.Context, rm *ResultMap, rs RowSource, cols []string, prefix string, sess Session, deferred *[]DeferredLoad) (any, bool, error) {
	// Scalar shortcut: a single-column result with a handler registered
	// for the target type is read directly, bypassing bean construction.
	if len(cols) == 1 && len(rm.ConstructorArgs) == 0 {
		if h, err := m.cfg.TypeHandlers.Resolve(rm.Target, types.ColumnUnknown); err == nil {
			v, err := h.GetByIndex(rs, 0)
			if err != nil {
				return nil, false, verrors.NewMappingError(rm.ID, "scalar read", err)
			}
			return v, v != nil, nil
		}
	}

	var obj any
	nonNull := false

	if len(rm.ConstructorArgs) > 0 {
		argTypes := make([]reflect.Type, len(rm.ConstructorArgs))
		args := make([]any, len(rm.ConstructorArgs))
		for i, carg := range rm.ConstructorArgs {
			// Constructor arguments are always resolved eagerly: the
			// object cannot exist until every argument does, so no
			// deferred queue is passed here and a lazy nested select used
			// as a constructor arg executes immediately instead.
			v, nn, err := m.resolveMappingValue(ctx, rm.Target, carg, rs, prefix, sess, true, nil)
			if err != nil {
				return nil, false, err
			}
			args[i] = v
			if nn {
				nonNull = true
			}
			if v != nil {
				argTypes[i] = reflect.TypeOf(v)
			}
		}
		built, err := m.cfg.Accessor.Create(rm.Target, argTypes, args)
		if err != nil {
			return nil, false, verrors.NewMappingError(rm.ID, "no applicable constructor", err)
		}
		obj = built
	} else {
		built, err := m.cfg.Accessor.Create(rm.Target, nil, nil)
		if err != nil {
			return nil, false, verrors.NewMappingError(rm.ID, "instantiate", err)
		}
		obj = built
	}

	autoNonNull, err := m.autoMap(obj, rm, rs, cols, prefix, false)
	if err != nil {
		return nil, false, err
	}
	nonNull = nonNull || autoNonNull

	for _, mp := range rm.Mappings {
		if mp.ResultSet != "" {
			// Supplied by a later result set; MapResultSets links the
			// child objects in once that set arrives.
			continue
		}
		if mp.NestedResultMapID != "" {
			// Nested result maps are handled by the caller (mapNested);
			// a simple (non-nested) result map never declares one, since
			// hasNestedResultMap would have routed here via mapNested.
			continue
		}
		if mp.NestedSelect != "" && m.effectiveLazy(mp) && deferred != nil {
			arg := m.buildNestedArg(mp, rs)
			target, property, rmTarget := obj, mp.Property, rm.Target
			statementID := mp.NestedSelect
			*deferred = append(*deferred, func(ctx context.Context, sess Session) error {
				v, err := sess.QueryNested(ctx, statementID, arg)
				if err != nil {
					return verrors.NewMappingError(property, "deferred nested select "+statementID, err)
				}
				v = m.adaptNestedResult(v, rmTarget, property)
				return m.cfg.Accessor.Set(target, property, v)
			})
			nonNull = true
			continue
		}
		v, nn, err := m.resolveMappingValue(ctx, rm.Target, mp, rs, prefix, sess, false, deferred)
		if err != nil {
			return nil, false, err
		}
		if nn {
			nonNull = true
		}
		if v == nil && !rm.CallSettersOnNulls {
			continue
		}
		if v == nil {
			if t, ok := m.cfg.Accessor.SetterType(rm.Target, mp.Property); ok && isPrimitiveKind(t) {
				continue
			}
		}
		if err := m.cfg.Accessor.Set(obj, mp.Property, v); err != nil {
			return nil, false, verrors.NewMappingError(rm.ID, "set "+mp.Property, err)
		}
	}
	return obj, nonNull, nil
}

func isPrimitiveKind(t reflect.Type) bool {
	if t == nil {
		return false
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return false
	default:
		return true
	}
}

// autoMap matches unmapped result-set columns to target properties by
// name, honoring underscore-to-camel-case and a
// configured column prefix.
func (m *Mapper) autoMap(obj any, rm *ResultMap, rs RowSource, cols []string, prefix string, nested bool) (bool, error) {
	setting := m.cfg.ResultMaps.EffectiveAutoMap(rm, nested)
	if setting == AutoMapNone {
		return false, nil
	}
	explicit := make(map[string]bool, len(rm.Mappings))
	for _, mp := range rm.Mappings {
		explicit[strings.ToLower(mp.Column)] = true
	}

	nonNull := false
	for _, col := range cols {
		name := col
		if prefix != "" {
			if len(col) <= len(prefix) || !strings.EqualFold(col[:len(prefix)], prefix) {
				continue
			}
			name = col[len(prefix):]
		}
		if explicit[strings.ToLower(col)] {
			continue
		}
		prop := name
		if m.cfg.MapUnderscoreToCamelCase {
			prop = inflect.Camelize(strings.ToLower(name))
		}
		setterType, ok := m.cfg.Accessor.SetterType(rm.Target, prop)
		if !ok {
			continue
		}
		h, err := m.cfg.TypeHandlers.Resolve(setterType, types.ColumnUnknown)
		if err != nil {
			continue
		}
		v, err := h.GetByName(rs, col)
		if err != nil {
			return nonNull, verrors.NewMappingError(rm.ID, "auto-map "+col, err)
		}
		if v == nil {
			continue
		}
		nonNull = true
		if err := m.cfg.Accessor.Set(obj, prop, v); err != nil {
			return nonNull, verrors.NewMappingError(rm.ID, "auto-map set "+prop, err)
		}
	}
	return nonNull, nil
}

// resolveMappingValue computes one Mapping's value: a nested sub-query, or
// a direct column read via the resolved type handler. Nested result maps are handled by the caller, never here. A
// lazy nested select is only reached with forceEager=true (constructor
// arguments); instantiateRow queues every other lazy mapping itself before
// calling this.
func (m *Mapper) resolveMappingValue(ctx context.Context, target reflect.Type, mp Mapping, rs RowSource, prefix string, sess Session, forceEager bool, _ *[]DeferredLoad) (any, bool, error) {
	if mp.NestedSelect != "" {
		arg := m.buildNestedArg(mp, rs)
		v, err := sess.QueryNested(ctx, mp.NestedSelect, arg)
		if err != nil {
			return nil, false, verrors.NewMappingError(mp.Property, "nested select "+mp.NestedSelect, err)
		}
		v = m.adaptNestedResult(v, target, mp.Property)
		return v, v != nil, nil
	}

	column := prefix + mp.Column
	setterType, _ := m.cfg.Accessor.SetterType(target, mp.Property)
	var handler types.Handler
	var err error
	if mp.TypeHandler != "" {
		var ok bool
		handler, ok = m.cfg.TypeHandlers.ByName(mp.TypeHandler)
		if !ok {
			return nil, false, verrors.NewMappingError(mp.Property, "unknown typeHandler "+mp.TypeHandler, nil)
		}
	} else {
		handler, err = m.cfg.TypeHandlers.Resolve(setterType, mp.JdbcType)
		if err != nil {
			return nil, false, verrors.NewMappingError(mp.Property, "resolve handler for "+column, err)
		}
	}
	v, err := handler.GetByName(rs, column)
	if err != nil {
		return nil, false, verrors.NewMappingError(mp.Property, "read column "+column, err)
	}
	return v, v != nil, nil
}

func (m *Mapper) buildNestedArg(mp Mapping, rs RowSource) any {
	if len(mp.NestedSelectColumn) == 1 {
		return readRaw(rs, mp.NestedSelectColumn[0])
	}
	out := make(map[string]any, len(mp.NestedSelectColumn))
	for _, col := range mp.NestedSelectColumn {
		out[col] = readRaw(rs, col)
	}
	return out
}

func readRaw(rs RowSource, column string) any {
	var v any
	_ = rs.ScanByName(column, &v)
	return v
}

// adaptNestedResult converts the []any a Session.QueryNested call always
// returns into the shape the destination property on target actually
// needs: a typed slice for a collection-typed property, or the first row for a scalar property. A
// non-[]any v (e.g. a scalar statement's single mapped object, or nil)
// passes through unchanged.
func (m *Mapper) adaptNestedResult(v any, target reflect.Type, property string) any {
	rows, ok := v.([]any)
	if !ok {
		return v
	}
	setterType, ok := m.cfg.Accessor.SetterType(target, property)
	if !ok {
		return v
	}
	if m.cfg.Accessor.IsCollection(setterType) {
		return buildTypedCollection(rows, setterType)
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

func buildTypedCollection(rows []any, setterType reflect.Type) any {
	t := setterType
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Slice {
		// Map-typed nested-select targets aren't a standard MyBatis shape;
		// return the raw rows rather than guess at a key.
		return rows
	}
	out := reflect.MakeSlice(t, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		rv := reflect.ValueOf(r)
		switch {
		case rv.Type().AssignableTo(t.Elem()):
			out = reflect.Append(out, rv)
		case rv.Type().ConvertibleTo(t.Elem()):
			out = reflect.Append(out, rv.Convert(t.Elem()))
		}
	}
	return out.Interface()
}

// --- nested result map processing ---------------------------------------

type rowIdentity struct {
	outer map[string]any            // outer row key -> outer object
	child map[any]map[string]any    // parent object -> (child row key -> child object)
}

func newRowIdentity() *rowIdentity {
	return &rowIdentity{outer: map[string]any{}, child: map[any]map[string]any{}}
}

func (m *Mapper) mapNested(ctx context.Context, rs RowSource, rm *ResultMap, rr RowRange, consumer Consumer, sess Session, deferred *[]DeferredLoad) ([]any, error) {
	offset, _ := rr.normalize()
	cols, err := rs.Columns()
	if err != nil {
		return nil, err
	}

	ident := newRowIdentity()
	var order []any
	idx := -1
	var lastKey string

	for rs.Next() {
		idx++
		if idx < offset {
			continue
		}
		effective, err := m.resolveResultMap(rm, rs, "", map[string]bool{})
		if err != nil {
			return nil, err
		}

		rowKey, hasIdentity := m.computeRowKey(effective, rs, cols, "")
		var keyStr string
		var obj any
		fresh := true
		if hasIdentity {
			keyStr = rowKey.String()
			if existing, ok := ident.outer[keyStr]; ok {
				obj, fresh = existing, false
			}
		}

		ancestors := map[string]any{}
		if fresh {
			ancestors[effective.ID] = nil
			built, _, err := m.instantiateRow(ctx, effective, rs, cols, "", sess, deferred)
			if err != nil {
				return nil, err
			}
			obj = built
			if hasIdentity {
				ident.outer[keyStr] = obj
			}
			order = append(order, obj)
		}
		ancestors[effective.ID] = obj

		if err := m.applyNestedMappings(ctx, effective, rs, cols, "", obj, ancestors, ident, sess, deferred); err != nil {
			return nil, err
		}

		if rm.ResultOrdered && hasIdentity && keyStr != lastKey && lastKey != "" {
			// Bound the identity map's growth for a stream ordered by the
			// outer identity columns; the still-open
			// outer object (keyStr) is deliberately kept.
			for k := range ident.outer {
				if k != keyStr {
					delete(ident.outer, k)
				}
			}
		}
		lastKey = keyStr
	}

	if rr.Limit > 0 && len(order) > rr.Limit {
		order = order[:rr.Limit]
	}

	if consumer != nil {
		for _, o := range order {
			if !consumer(o) {
				break
			}
		}
		return nil, nil
	}
	return order, nil
}

func (m *Mapper) applyNestedMappings(ctx context.Context, rm *ResultMap, rs RowSource, cols []string, prefix string, obj any, ancestors map[string]any, ident *rowIdentity, sess Session, deferred *[]DeferredLoad) error {
	for _, mp := range rm.Mappings {
		if mp.NestedResultMapID == "" || mp.ResultSet != "" {
			continue
		}
		if len(mp.NotNullColumns) > 0 && !m.anyNonNull(rs, prefix, mp.NotNullColumns) {
			continue
		}
		if existing, ok := ancestors[mp.NestedResultMapID]; ok && existing != nil {
			if err := m.assignNested(obj, mp, existing); err != nil {
				return err
			}
			continue
		}

		nested, ok := m.cfg.ResultMaps.Get(mp.NestedResultMapID)
		if !ok {
			return verrors.NewMappingError(rm.ID, "nested resultMap references unknown id "+mp.NestedResultMapID, nil)
		}
		childPrefix := prefix + mp.ColumnPrefix
		effectiveChild, err := m.resolveResultMap(nested, rs, childPrefix, map[string]bool{})
		if err != nil {
			return err
		}

		childKey, hasIdentity := m.computeRowKey(effectiveChild, rs, cols, childPrefix)
		scope := ident.child[obj]
		if scope == nil {
			scope = map[string]any{}
			ident.child[obj] = scope
		}

		var childObj any
		fresh := true
		var keyStr string
		if hasIdentity {
			keyStr = childKey.String()
			if existing, ok := scope[keyStr]; ok {
				childObj, fresh = existing, false
			}
		}

		childAncestors := make(map[string]any, len(ancestors)+1)
		for k, v := range ancestors {
			childAncestors[k] = v
		}
		if fresh {
			childAncestors[effectiveChild.ID] = nil
			built, _, err := m.instantiateRow(ctx, effectiveChild, rs, cols, childPrefix, sess, deferred)
			if err != nil {
				return err
			}
			childObj = built
			if hasIdentity {
				scope[keyStr] = childObj
			}
			if err := m.assignNested(obj, mp, childObj); err != nil {
				return err
			}
		}
		childAncestors[effectiveChild.ID] = childObj

		if err := m.applyNestedMappings(ctx, effectiveChild, rs, cols, childPrefix, childObj, childAncestors, ident, sess, deferred); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) anyNonNull(rs RowSource, prefix string, columns []string) bool {
	for _, c := range columns {
		if readRaw(rs, prefix+c) != nil {
			return true
		}
	}
	return false
}

// assignNested sets child on obj at mp.Property, appending to a
// collection-typed property instead of overwriting it.
func (m *Mapper) assignNested(obj any, mp Mapping, child any) error {
	if child == nil {
		return nil
	}
	target := reflect.TypeOf(obj)
	setterType, ok := m.cfg.Accessor.SetterType(target, mp.Property)
	if !ok {
		return verrors.NewMappingError(mp.NestedResultMapID, "no setter for "+mp.Property, nil)
	}
	if !m.cfg.Accessor.IsCollection(setterType) {
		return m.cfg.Accessor.Set(obj, mp.Property, fitValue(child, setterType))
	}

	cur, _ := m.cfg.Accessor.Get(obj, mp.Property)
	sliceVal := reflect.ValueOf(cur)
	elemType := setterType
	for elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if !sliceVal.IsValid() || sliceVal.Kind() != reflect.Slice || sliceVal.IsNil() {
		sliceVal = reflect.MakeSlice(elemType, 0, 4)
	}
	sliceVal = reflect.Append(sliceVal, reflect.ValueOf(fitValue(child, sliceVal.Type().Elem())))
	return m.cfg.Accessor.Set(obj, mp.Property, sliceVal.Interface())
}

// fitValue dereferences an instantiated child (always a pointer, per
// Accessor.Create) down to what the destination type actually holds, so a
// *Item child lands in both a []Item element and an Item field.
func fitValue(child any, dest reflect.Type) any {
	if dest == nil {
		return child
	}
	v := reflect.ValueOf(child)
	for v.Kind() == reflect.Ptr && !v.Type().AssignableTo(dest) && !v.IsNil() {
		v = v.Elem()
	}
	return v.Interface()
}

// computeRowKey folds rm's id mappings (or, absent any, every
// non-constructor mapping column) into a row key; a false second result
// (no columns to fold) is the sentinel meaning "no identity".
func (m *Mapper) computeRowKey(rm *ResultMap, rs RowSource, _ []string, prefix string) (*cachekey.CacheKey, bool) {
	cols := rm.IDMappings()
	if len(cols) == 0 {
		for _, mp := range rm.Mappings {
			if mp.NestedResultMapID == "" {
				cols = append(cols, mp)
			}
		}
	}
	if len(cols) == 0 {
		return nil, false
	}
	key := cachekey.New(rm.ID)
	for _, mp := range cols {
		key.Update(readRaw(rs, prefix+mp.Column))
	}
	return key, true
}

// --- output parameters ---------------------------------------------------

// OutParamMapping describes one callable-statement out/in-out parameter
// to resolve after row processing, mirroring ast.ParamRef's shape without
// importing package ast (which does not depend on mapping).
type OutParamMapping struct {
	Property    string
	Property2   string // reserved for future (name,value) pair readers; unused
	JdbcType    types.ColumnType
	TypeHandler string
	ResultMap   string // set only for cursor-typed output parameters
	IsOut       bool
}

// MapOutParameters reads each out/in-out mapping from out by ordinal and
// assigns it through the bean accessor onto arg.
func (m *Mapper) MapOutParameters(_ context.Context, out types.OutParams, params []OutParamMapping, arg any) error {
	for i, p := range params {
		if !p.IsOut {
			continue
		}
		if p.JdbcType == types.ColumnCursor {
			return verrors.NewMappingError(p.ResultMap, "cursor-typed output parameters require a driver-specific cursor binding not modeled by database/sql's OutParams", nil)
		}
		var handler types.Handler
		var err error
		if p.TypeHandler != "" {
			var ok bool
			handler, ok = m.cfg.TypeHandlers.ByName(p.TypeHandler)
			if !ok {
				return verrors.NewMappingError(p.Property, "unknown typeHandler "+p.TypeHandler, nil)
			}
		} else {
			handler, err = m.cfg.TypeHandlers.Resolve(nil, p.JdbcType)
			if err != nil {
				return verrors.NewMappingError(p.Property, "resolve out-parameter handler", err)
			}
		}
		v, err := handler.GetOutByIndex(out, i)
		if err != nil {
			return verrors.NewMappingError(p.Property, "read out parameter", err)
		}
		if err := m.cfg.Accessor.Set(arg, p.Property, v); err != nil {
			return verrors.NewMappingError(p.Property, "assign out parameter", err)
		}
	}
	return nil
}
