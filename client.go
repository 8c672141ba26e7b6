package veloxsql

import (
	"context"
	"database/sql"

	"github.com/veloxsql/veloxsql/bean"
	"github.com/veloxsql/veloxsql/bind"
	"github.com/veloxsql/veloxsql/exec"
	"github.com/veloxsql/veloxsql/mapping"
	"github.com/veloxsql/veloxsql/registry"
	"github.com/veloxsql/veloxsql/stmthandler"
	"github.com/veloxsql/veloxsql/types"
	"github.com/veloxsql/veloxsql/verrors"
)

// DataSource lends connections to Sessions and takes them back when the
// Session closes. Package dialect/sql's *Driver does not satisfy it as is:
// its Borrow and Return use that package's own Conn type (which itself
// satisfies stmthandler.Conn). Tests substitute a fake.
type DataSource interface {
	Borrow(ctx context.Context) (stmthandler.Conn, error)
	Return(conn stmthandler.Conn)
}

// ExecutorType selects which of the three concrete Executor strategies a
// Session opened with it uses.
type ExecutorType int

const (
	// ExecutorSimple creates a fresh statement per call. The default.
	ExecutorSimple ExecutorType = iota
	// ExecutorReuse caches prepared statements by SQL text for the
	// session's life.
	ExecutorReuse
	// ExecutorBatch appends same-SQL updates to an open batch.
	ExecutorBatch
)

// Client is the long-lived, build-then-freeze entry point: one Client per
// application, wrapping a frozen Registry and the collaborators every
// Session it opens shares.
type Client struct {
	registry        *registry.Registry
	dataSource      DataSource
	accessor        bean.Accessor
	binder          *bind.Binder
	mapper          *mapping.Mapper
	secondLevel     bool
	defaultExecutor ExecutorType
}

// ClientOption configures NewClient.
type ClientOption func(*Client)

// WithAccessor overrides the default bean.Accessor (bean.NewDefault()).
func WithAccessor(a bean.Accessor) ClientOption {
	return func(c *Client) { c.accessor = a }
}

// WithSecondLevelCache enables the Caching Executor wrapper
// for every Session this Client opens.
func WithSecondLevelCache() ClientOption {
	return func(c *Client) { c.secondLevel = true }
}

// WithDefaultExecutor sets the ExecutorType OpenSession uses when the
// caller doesn't pick one explicitly.
func WithDefaultExecutor(t ExecutorType) ClientOption {
	return func(c *Client) { c.defaultExecutor = t }
}

// NewClient returns a Client over reg (which must already be Frozen — see
// registry.Registry.Freeze) and ds. handlers is the same Type Handler
// Registry reg was built with; the binder needs it directly rather than
// reaching through reg, so callers don't have to export it from registry.
func NewClient(reg *registry.Registry, handlers *types.Registry, ds DataSource, opts ...ClientOption) *Client {
	accessor := bean.NewDefault()
	c := &Client{
		registry:        reg,
		dataSource:      ds,
		accessor:        accessor,
		defaultExecutor: ExecutorSimple,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.binder = bind.New(handlers)
	c.mapper = mapping.NewMapper(mapping.MapperConfig{
		TypeHandlers:             handlers,
		Accessor:                 c.accessor,
		ResultMaps:               reg.ResultMaps(),
		MapUnderscoreToCamelCase: reg.Settings().MapUnderscoreToCamelCase,
		SafeRowBounds:            reg.Settings().SafeRowBounds,
		LazyLoadingEnabled:       reg.Settings().LazyLoadingEnabled,
		AggressiveLazyLoading:    reg.Settings().AggressiveLazyLoading,
	})
	return c
}

// OpenSession borrows a connection from the DataSource and returns a new
// Session over it using the Client's default ExecutorType.
func (c *Client) OpenSession(ctx context.Context) (*Session, error) {
	return c.OpenSessionWithExecutor(ctx, c.defaultExecutor)
}

// OpenSessionWithExecutor is OpenSession with an explicit ExecutorType.
func (c *Client) OpenSessionWithExecutor(ctx context.Context, execType ExecutorType) (*Session, error) {
	conn, err := c.dataSource.Borrow(ctx)
	if err != nil {
		return nil, verrors.NewTransactionError("open session: borrow connection", err)
	}
	return c.newSession(conn, execType), nil
}

// OpenSessionTx is OpenSession, but conn is expected to be an already-open
// transaction (e.g. *sql.Tx via a DataSource that returns one from
// BeginTx). Session.Commit/Rollback then drive the transaction's own
// Commit/Rollback in addition to the Executor's batch/cache bookkeeping.
func (c *Client) OpenSessionTx(conn stmthandler.Conn, tx transactional, execType ExecutorType) *Session {
	s := c.newSession(conn, execType)
	s.tx = tx
	return s
}

// transactional is the subset of *sql.Tx (or dialect/sql.Tx) a Session
// needs to end an explicit transaction.
type transactional interface {
	Commit() error
	Rollback() error
}

func (c *Client) newSession(conn stmthandler.Conn, execType ExecutorType) *Session {
	var base *exec.Executor
	switch execType {
	case ExecutorReuse:
		base = exec.NewReuse(c.registry, c.binder, c.mapper, c.accessor, conn)
	case ExecutorBatch:
		base = exec.NewBatch(c.registry, c.binder, c.mapper, c.accessor, conn)
	default:
		base = exec.New(c.registry, c.binder, c.mapper, c.accessor, conn)
	}

	var sessExec sessionExecutor = base
	if c.secondLevel {
		sessExec = exec.NewCaching(base, c.registry)
	}

	return &Session{
		client:   c,
		conn:     conn,
		executor: sessExec,
	}
}

// sqlResultsToAffected sums a []sql.Result's RowsAffected, used by the
// Batch executor's Flush, which returns one Result per accumulated batch.
func sqlResultsToAffected(results []sql.Result) int64 {
	var total int64
	for _, r := range results {
		n, _ := r.RowsAffected()
		total += n
	}
	return total
}
