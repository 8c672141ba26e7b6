package exec

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/veloxsql/veloxsql/ast"
	"github.com/veloxsql/veloxsql/bean"
	"github.com/veloxsql/veloxsql/bind"
	"github.com/veloxsql/veloxsql/cache"
	"github.com/veloxsql/veloxsql/cachekey"
	"github.com/veloxsql/veloxsql/mapping"
	"github.com/veloxsql/veloxsql/registry"
	"github.com/veloxsql/veloxsql/stmthandler"
	"github.com/veloxsql/veloxsql/verrors"
)

// Conn is the subset of *sql.Tx (or *sql.DB, for an autocommit session) an
// Executor drives statements against.
type Conn = stmthandler.Conn

// backend is where the three concrete executors differ: how a
// rendered, bound statement actually reaches the driver. Everything else
// (caching, deferred loads, key generation, mapping) lives in Executor and
// is shared across all three.
type backend interface {
	update(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (sql.Result, error)
	query(ctx context.Context, shape registry.Shape, statementID, query string, args []any) (*sql.Rows, error)
	flush(ctx context.Context) ([]sql.Result, error)
	close() error
}

// placeholder marks a local-cache entry mid-flight, guarding against a
// nested select recursing back into its own statement id with the same
// argument.
type placeholder struct{}

// Executor is a Session's owned Executor. It implements
// mapping.Session and keygen.StatementRunner so the mapper's nested
// selects and a Compiled Statement's SelectKeyGenerator both call back
// into it without depending on package exec.
type Executor struct {
	registry *registry.Registry
	binder   *bind.Binder
	mapper   *mapping.Mapper
	accessor bean.Accessor
	conn     Conn
	backend  backend

	localCache cache.Store
	deferred   []mapping.DeferredLoad
	depth      int

	// session is the mapping.Session passed to the mapper and to deferred
	// loads; it defaults to the Executor itself, but CachingExecutor
	// rewires it to itself via UseSession so a nested select dispatched
	// during mapping also benefits from second-level cache wrapping
	// instead of bypassing straight to the base Executor.
	session mapping.Session
}

// New returns an Executor using the Simple strategy — the default unless a
// Session is configured for Reuse or Batch.
func New(reg *registry.Registry, binder *bind.Binder, mapper *mapping.Mapper, accessor bean.Accessor, conn Conn) *Executor {
	return newWithBackend(reg, binder, mapper, accessor, conn, &simpleBackend{handler: stmthandler.New(conn)})
}

// NewReuse returns an Executor that caches prepared statements by SQL text
// for the life of the session.
func NewReuse(reg *registry.Registry, binder *bind.Binder, mapper *mapping.Mapper, accessor bean.Accessor, conn Conn) *Executor {
	return newWithBackend(reg, binder, mapper, accessor, conn, &reuseBackend{conn: conn, stmts: make(map[string]*sql.Stmt)})
}

// NewBatch returns an Executor that appends same-SQL updates to a single
// open batch, executing it when the SQL text changes, a query runs, or
// Flush/Commit is invoked.
func NewBatch(reg *registry.Registry, binder *bind.Binder, mapper *mapping.Mapper, accessor bean.Accessor, conn Conn) *Executor {
	return newWithBackend(reg, binder, mapper, accessor, conn, &batchBackend{conn: conn})
}

func newWithBackend(reg *registry.Registry, binder *bind.Binder, mapper *mapping.Mapper, accessor bean.Accessor, conn Conn, b backend) *Executor {
	e := &Executor{
		registry:   reg,
		binder:     binder,
		mapper:     mapper,
		accessor:   accessor,
		conn:       conn,
		backend:    b,
		localCache: cache.NewMapStore("local"),
	}
	e.session = e
	return e
}

// UseSession rewires e's mapping.Session to s. CachingExecutor calls this
// with itself so a nested select discovered while mapping a row (or a
// deferred load drained afterward) is dispatched back through the second-
// level cache instead of bypassing straight to this base Executor.
func (e *Executor) UseSession(s mapping.Session) { e.session = s }

// Query resolves statementID, renders and binds its SQL against arg, and
// maps the result. rr bounds which rows are
// materialized; consumer, if non-nil, receives rows one at a time instead
// of a materialized slice.
func (e *Executor) Query(ctx context.Context, statementID string, arg any, rr mapping.RowRange, consumer mapping.Consumer) ([]any, error) {
	stmt, err := e.registry.Statement(statementID)
	if err != nil {
		return nil, err
	}

	sqlText, params, _, err := ast.Render(stmt.AST, arg, stmt.DatabaseID)
	if err != nil {
		return nil, err
	}

	key := e.createCacheKey(stmt.ID, rr, sqlText, params)
	keyStr := key.String()

	if stmt.Flags.UseCache {
		if v, ok := e.localCache.Get(keyStr); ok {
			if _, isPlaceholder := v.(placeholder); isPlaceholder {
				return nil, verrors.NewMappingError(stmt.ID, "nested select recursed into its own cache key", nil)
			}
			return v.([]any), nil
		}
		e.localCache.Put(keyStr, placeholder{})
	}

	e.depth++
	out, err := e.execQuery(ctx, stmt, sqlText, params, arg, rr, consumer)
	e.depth--

	if err != nil {
		if stmt.Flags.UseCache {
			e.localCache.Remove(keyStr)
		}
		return nil, err
	}

	if stmt.Flags.UseCache {
		e.localCache.Put(keyStr, out)
	}

	if e.depth == 0 {
		if err := e.drainDeferred(ctx); err != nil {
			return nil, err
		}
		if e.registry.Settings().LocalCacheScope == registry.LocalCacheStatement {
			e.localCache.Clear()
		}
	}
	return out, nil
}

func (e *Executor) execQuery(ctx context.Context, stmt *registry.Statement, sqlText string, params []ast.ParamRef, arg any, rr mapping.RowRange, consumer mapping.Consumer) ([]any, error) {
	args, err := e.binder.Bind(params)
	if err != nil {
		return nil, err
	}

	queryArgs := args
	var outParams *stmthandler.CallableOutParams
	if stmt.Shape == registry.ShapeCallable {
		queryArgs, outParams = stmthandler.Parameterize(args, paramModes(params))
	}

	rows, err := e.backend.query(ctx, stmt.Shape, stmt.ID, sqlText, queryArgs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rs, err := mapping.NewSQLRowSource(rows)
	if err != nil {
		return nil, verrors.NewExecutionError(stmt.ID, sqlText, queryArgs, err)
	}

	var out []any
	if len(stmt.ResultSets) > 1 && len(stmt.ResultMaps) > 0 {
		var plan *mapping.ResultSetPlan
		plan, err = e.resultSetPlan(stmt)
		if err != nil {
			return nil, err
		}
		next := func() (mapping.RowSource, error) {
			if !rows.NextResultSet() {
				return nil, nil
			}
			nrs, err := mapping.NewSQLRowSource(rows)
			if err != nil {
				return nil, verrors.NewExecutionError(stmt.ID, sqlText, queryArgs, err)
			}
			return nrs, nil
		}
		out, err = e.mapper.MapResultSets(ctx, rs, next, stmt.ResultMaps[0], plan, rr, consumer, e.session)
	} else {
		out, err = e.mapper.MapRows(ctx, rs, stmt.ResultMaps, rr, consumer, e.session)
	}
	if err != nil {
		return nil, err
	}
	if err := rs.Err(); err != nil {
		return nil, verrors.NewExecutionError(stmt.ID, sqlText, queryArgs, err)
	}

	if outParams != nil {
		if mappings := outParamMappings(params); len(mappings) > 0 {
			if err := e.mapper.MapOutParameters(ctx, outParams, mappings, arg); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// Update runs an Insert/Update/Delete statement and returns affected
// rows. A Flush-kind statement skips rendering entirely
// and just drains any pending batch. An Insert declaring a positive
// BatchSize whose argument is a slice or map fans out through
// updateBatchSize instead.
func (e *Executor) Update(ctx context.Context, statementID string, arg any) (int64, error) {
	stmt, err := e.registry.Statement(statementID)
	if err != nil {
		return 0, err
	}

	if stmt.Kind == registry.Flush {
		_, err := e.backend.flush(ctx)
		return 0, err
	}

	if stmt.Kind == registry.Insert && stmt.BatchSize > 0 {
		if t := derefType(reflect.TypeOf(arg)); t != nil && e.accessor.IsCollection(t) {
			return e.updateBatchSize(ctx, stmt, arg)
		}
	}

	if stmt.KeyGenerator != nil {
		if err := stmt.KeyGenerator.GenerateBefore(ctx, e.accessor, arg); err != nil {
			return 0, err
		}
	}

	sqlText, params, _, err := ast.Render(stmt.AST, arg, stmt.DatabaseID)
	if err != nil {
		return 0, err
	}
	args, err := e.binder.Bind(params)
	if err != nil {
		return 0, err
	}

	e.localCache.Clear()

	result, err := e.backend.update(ctx, stmt.Shape, stmt.ID, sqlText, args)
	if err != nil {
		return 0, err
	}

	if stmt.KeyGenerator != nil && !isPending(result) {
		// The Batch executor strategy defers real execution until a flush
		// boundary; per-row key assignment isn't meaningful against the
		// pending sentinel result, matching JDBC's own BatchExecutor, which
		// likewise can't honor generated keys until executeBatch runs.
		if err := stmt.KeyGenerator.GenerateAfter(ctx, e.accessor, []any{arg}, result); err != nil {
			return 0, err
		}
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

func (e *Executor) updateBatchSize(ctx context.Context, stmt *registry.Statement, arg any) (int64, error) {
	rows, err := collectionElements(arg)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	rowArgs := make([][]any, len(rows))
	var sqlText string
	for i, row := range rows {
		if stmt.KeyGenerator != nil {
			if err := stmt.KeyGenerator.GenerateBefore(ctx, e.accessor, row); err != nil {
				return 0, err
			}
		}
		text, params, _, err := ast.Render(stmt.AST, row, stmt.DatabaseID)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			sqlText = text
		}
		args, err := e.binder.Bind(params)
		if err != nil {
			return 0, err
		}
		rowArgs[i] = args
	}

	e.localCache.Clear()

	handler := stmthandler.New(e.conn)
	result, err := handler.Batch(ctx, stmt.ID, sqlText, rowArgs, stmt.BatchSize)
	if err != nil {
		return 0, err
	}

	if stmt.KeyGenerator != nil {
		if err := stmt.KeyGenerator.GenerateAfter(ctx, e.accessor, rows, result); err != nil {
			return 0, err
		}
	}
	affected, _ := result.RowsAffected()
	return affected, nil
}

// Commit flushes any pending batch and clears the local cache. Committing
// the underlying database/sql transaction itself is the caller's
// (session-level) responsibility; Executor has no Conn.Commit to call.
func (e *Executor) Commit(ctx context.Context, force bool) error {
	if _, err := e.backend.flush(ctx); err != nil {
		return verrors.NewTransactionError("commit", err)
	}
	e.localCache.Clear()
	return nil
}

// Rollback discards any pending batch state and clears the local cache.
func (e *Executor) Rollback(ctx context.Context, force bool) error {
	e.localCache.Clear()
	return e.backend.close()
}

// Flush executes pending batches and returns their results.
func (e *Executor) Flush(ctx context.Context) ([]sql.Result, error) {
	return e.backend.flush(ctx)
}

// Close releases any resources the backend is holding (e.g. a Reuse
// executor's cached prepared statements).
func (e *Executor) Close() error {
	return e.backend.close()
}

// DeferLoad implements mapping.Session: load runs once the current
// top-level Query call completes.
func (e *Executor) DeferLoad(load mapping.DeferredLoad) {
	e.deferred = append(e.deferred, load)
}

// QueryNested implements mapping.Session: it always returns
// a []any of the nested statement's mapped rows; the mapper adapts that
// into a scalar or a typed collection against the destination property.
func (e *Executor) QueryNested(ctx context.Context, statementID string, arg any) (any, error) {
	return e.Query(ctx, statementID, arg, mapping.RowRange{}, nil)
}

// RunSelectKey implements keygen.StatementRunner: it
// runs the `{parent-id}!selectKey` statement and returns its first (only
// expected) row.
func (e *Executor) RunSelectKey(ctx context.Context, statementID string, arg any) (any, error) {
	rows, err := e.Query(ctx, statementID, arg, mapping.RowRange{}, nil)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, verrors.ErrNotFound
	}
	return rows[0], nil
}

// resultSetPlan assembles the bindings Freeze collected for stmt's later
// result sets into the plan MapResultSets consumes. A declared result set
// no mapping bound is left out of the plan; MapResultSets drains it
// unmapped.
func (e *Executor) resultSetPlan(stmt *registry.Statement) (*mapping.ResultSetPlan, error) {
	plan := &mapping.ResultSetPlan{
		Names:     stmt.ResultSets,
		Bindings:  make(map[string]mapping.ResultSetBinding),
		ChildMaps: make(map[string]*mapping.ResultMap),
	}
	for _, name := range stmt.ResultSets[1:] {
		b, ok := e.registry.ResultSetBinding(stmt.ID, name)
		if !ok {
			continue
		}
		rm, ok := e.registry.ResultMaps().Get(b.ChildResultMapID)
		if !ok {
			return nil, verrors.NewMappingError(b.ChildResultMapID,
				"result set \""+name+"\" references unknown resultMap", nil)
		}
		plan.Bindings[name] = b
		plan.ChildMaps[name] = rm
	}
	return plan, nil
}

// createCacheKey folds statement id, offset, limit, rendered SQL, and each
// parameter's resolved value into a CacheKey.
func (e *Executor) createCacheKey(statementID string, rr mapping.RowRange, sqlText string, params []ast.ParamRef) *cachekey.CacheKey {
	return CreateCacheKey(statementID, rr, sqlText, params)
}

// CreateCacheKey is Executor.createCacheKey's package-level form, reused by
// CachingExecutor so both the first-level and second-level caches fold a
// statement id/row-range/SQL/parameters tuple into a CacheKey the exact
// same way.
func CreateCacheKey(statementID string, rr mapping.RowRange, sqlText string, params []ast.ParamRef) *cachekey.CacheKey {
	key := cachekey.New(statementID, rr.Offset, rr.Limit, sqlText)
	for _, p := range params {
		key.Update(p.Value)
	}
	return key
}

func (e *Executor) drainDeferred(ctx context.Context) error {
	for len(e.deferred) > 0 {
		load := e.deferred[0]
		e.deferred = e.deferred[1:]
		if err := load(ctx, e.session); err != nil {
			return err
		}
	}
	return nil
}

func paramModes(params []ast.ParamRef) []ast.ParamMode {
	modes := make([]ast.ParamMode, len(params))
	for i, p := range params {
		modes[i] = p.Mode
	}
	return modes
}

func outParamMappings(params []ast.ParamRef) []mapping.OutParamMapping {
	out := make([]mapping.OutParamMapping, len(params))
	for i, p := range params {
		out[i] = mapping.OutParamMapping{
			Property:    p.Property,
			JdbcType:    p.JdbcType,
			TypeHandler: p.TypeHandler,
			ResultMap:   p.ResultMap,
			IsOut:       p.Mode == ast.ModeOut || p.Mode == ast.ModeInOut,
		}
	}
	return out
}

func derefType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

func collectionElements(arg any) ([]any, error) {
	v := reflect.ValueOf(arg)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, v.Len())
		for i := range out {
			out[i] = v.Index(i).Interface()
		}
		return out, nil
	case reflect.Map:
		out := make([]any, 0, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out = append(out, iter.Value().Interface())
		}
		return out, nil
	default:
		return nil, verrors.NewBindingError("", "batch insert argument is not a slice, array, or map")
	}
}

func isPending(result sql.Result) bool {
	_, ok := result.(batchPendingResult)
	return ok
}
