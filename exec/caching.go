package exec

import (
	"context"
	"database/sql"
	"sync"

	"github.com/veloxsql/veloxsql/ast"
	"github.com/veloxsql/veloxsql/cache"
	"github.com/veloxsql/veloxsql/mapping"
	"github.com/veloxsql/veloxsql/registry"
)

// transactionalCache stages a namespace's second-level cache writes for the
// lifetime of one transaction: a value is visible to other
// sessions only after the owning session commits, and a query that hits a
// value staged earlier in the *same* transaction must still be treated as a
// hit (read-your-writes).
type transactionalCache struct {
	mu            sync.Mutex
	delegate      cache.Store
	pendingPuts   map[string]any
	entriesMissed map[string]struct{} // keys that missed delegate this transaction; rollback unlocks them (Blocking decorator compatibility)
	clearOnCommit bool
}

func newTransactionalCache(delegate cache.Store) *transactionalCache {
	return &transactionalCache{
		delegate:      delegate,
		pendingPuts:   make(map[string]any),
		entriesMissed: make(map[string]struct{}),
	}
}

// get checks the staged puts first, then the delegate. A delegate miss is
// recorded in entriesMissed so Rollback can release any lock a Blocking
// decorator further down the chain retained for it.
func (tc *transactionalCache) get(key string) (any, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if v, ok := tc.pendingPuts[key]; ok {
		return v, true
	}
	if tc.clearOnCommit {
		// An update on this namespace already ran in this transaction;
		// the namespace cache will be cleared at commit, so reads against
		// it for the remainder of the transaction must not observe stale
		// pre-update entries.
		return nil, false
	}
	v, ok := tc.delegate.Get(key)
	if !ok {
		tc.entriesMissed[key] = struct{}{}
	}
	return v, ok
}

func (tc *transactionalCache) stagePut(key string, value any) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.pendingPuts[key] = value
	delete(tc.entriesMissed, key)
}

func (tc *transactionalCache) requireClearOnCommit() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.clearOnCommit = true
}

// commit flushes every staged put to the delegate, honoring a pending
// clear first so the invalidation from an update earlier in the
// transaction takes effect before the transaction's own fresh reads are
// written back.
func (tc *transactionalCache) commit() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.clearOnCommit {
		tc.delegate.Clear()
	}
	for k, v := range tc.pendingPuts {
		tc.delegate.Put(k, v)
	}
	tc.reset()
}

// rollback discards every staged put and releases any lock a Blocking
// decorator retained for a key this transaction queried but never
// committed a value for.
func (tc *transactionalCache) rollback() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	for k := range tc.entriesMissed {
		tc.delegate.Remove(k)
	}
	tc.reset()
}

func (tc *transactionalCache) reset() {
	tc.pendingPuts = make(map[string]any)
	tc.entriesMissed = make(map[string]struct{})
	tc.clearOnCommit = false
}

// CachingExecutor wraps a base Executor with the second-level (namespace)
// cache. It is itself a mapping.Session: UseSession rewires
// the base Executor to dispatch nested selects and deferred loads back
// through this wrapper, so a row's nested sub-query benefits from the
// second-level cache instead of bypassing straight to the base Executor.
type CachingExecutor struct {
	base     *Executor
	registry *registry.Registry

	mu   sync.Mutex
	tcms map[string]*transactionalCache
}

// NewCaching wraps base with a second-level cache layer looked up from reg's
// registered namespace caches (registry.RegisterNamespaceCache).
func NewCaching(base *Executor, reg *registry.Registry) *CachingExecutor {
	ce := &CachingExecutor{base: base, registry: reg, tcms: make(map[string]*transactionalCache)}
	base.UseSession(ce)
	return ce
}

func (ce *CachingExecutor) tcmFor(namespace string, store cache.Store) *transactionalCache {
	ce.mu.Lock()
	defer ce.mu.Unlock()
	tc, ok := ce.tcms[namespace]
	if !ok {
		tc = newTransactionalCache(store)
		ce.tcms[namespace] = tc
	}
	return tc
}

// Query consults the namespace's second-level cache before delegating to
// the base Executor. Statements without use-cache, without a namespace cache
// registered, or invoked with a streaming row consumer (nothing to cache:
// rows are handed to the caller one at a time, never materialized as a
// single cacheable value) bypass the second-level cache entirely.
func (ce *CachingExecutor) Query(ctx context.Context, statementID string, arg any, rr mapping.RowRange, consumer mapping.Consumer) ([]any, error) {
	stmt, err := ce.registry.Statement(statementID)
	if err != nil {
		return nil, err
	}
	if !stmt.Flags.UseCache || consumer != nil {
		return ce.base.Query(ctx, statementID, arg, rr, consumer)
	}
	store, ok := ce.registry.NamespaceCache(stmt.Namespace())
	if !ok {
		return ce.base.Query(ctx, statementID, arg, rr, consumer)
	}

	sqlText, params, _, err := ast.Render(stmt.AST, arg, stmt.DatabaseID)
	if err != nil {
		return nil, err
	}
	key := CreateCacheKey(stmt.ID, rr, sqlText, params).String()

	tc := ce.tcmFor(stmt.Namespace(), store)
	if v, ok := tc.get(key); ok {
		return v.([]any), nil
	}

	out, err := ce.base.Query(ctx, statementID, arg, rr, consumer)
	if err != nil {
		return nil, err
	}
	tc.stagePut(key, out)
	return out, nil
}

// Update marks the statement's namespace cache for invalidation at commit
// when the statement declares flush-cache, then delegates.
func (ce *CachingExecutor) Update(ctx context.Context, statementID string, arg any) (int64, error) {
	stmt, err := ce.registry.Statement(statementID)
	if err != nil {
		return 0, err
	}
	if stmt.Flags.FlushCache {
		if store, ok := ce.registry.NamespaceCache(stmt.Namespace()); ok {
			ce.tcmFor(stmt.Namespace(), store).requireClearOnCommit()
		}
	}
	return ce.base.Update(ctx, statementID, arg)
}

// Commit runs the base Executor's own commit, then flushes every
// namespace's staged second-level cache writes.
func (ce *CachingExecutor) Commit(ctx context.Context, force bool) error {
	if err := ce.base.Commit(ctx, force); err != nil {
		return err
	}
	ce.mu.Lock()
	tcms := make([]*transactionalCache, 0, len(ce.tcms))
	for _, tc := range ce.tcms {
		tcms = append(tcms, tc)
	}
	ce.mu.Unlock()
	for _, tc := range tcms {
		tc.commit()
	}
	return nil
}

// Rollback discards every namespace's staged second-level cache writes,
// then runs the base Executor's own rollback.
func (ce *CachingExecutor) Rollback(ctx context.Context, force bool) error {
	ce.mu.Lock()
	tcms := make([]*transactionalCache, 0, len(ce.tcms))
	for _, tc := range ce.tcms {
		tcms = append(tcms, tc)
	}
	ce.mu.Unlock()
	for _, tc := range tcms {
		tc.rollback()
	}
	return ce.base.Rollback(ctx, force)
}

// Flush delegates to the base Executor; the second-
// level cache has no batch state of its own to flush.
func (ce *CachingExecutor) Flush(ctx context.Context) ([]sql.Result, error) {
	return ce.base.Flush(ctx)
}

// Close delegates to the base Executor.
func (ce *CachingExecutor) Close() error { return ce.base.Close() }

// DeferLoad implements mapping.Session by forwarding to the base Executor's
// own deferred-load queue; the queue itself is session-scoped regardless
// of which Session resolves each entry.
func (ce *CachingExecutor) DeferLoad(load mapping.DeferredLoad) { ce.base.DeferLoad(load) }

// QueryNested implements mapping.Session: nested sub-queries
// discovered while mapping a row are routed back through Query, so they
// participate in the second-level cache exactly like a top-level call.
func (ce *CachingExecutor) QueryNested(ctx context.Context, statementID string, arg any) (any, error) {
	rows, err := ce.Query(ctx, statementID, arg, mapping.RowRange{}, nil)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RunSelectKey implements keygen.StatementRunner by forwarding to the base
// Executor: key generation never participates in the second-level cache.
func (ce *CachingExecutor) RunSelectKey(ctx context.Context, statementID string, arg any) (any, error) {
	return ce.base.RunSelectKey(ctx, statementID, arg)
}

// Namespace is re-exported for callers that only import exec and need to
// compute a statement's namespace the same way the registry does.
func Namespace(stmt *registry.Statement) string { return stmt.Namespace() }
