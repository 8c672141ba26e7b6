package veloxsql

import "github.com/veloxsql/veloxsql/verrors"

// The seven error kinds live in package verrors (so every
// internal package can construct and recognize them without importing this
// root package); these aliases let callers of the top-level façade write
// veloxsql.ExecutionError instead of reaching into verrors directly.
type (
	ConfigurationError = verrors.ConfigurationError
	BindingError       = verrors.BindingError
	RenderError        = verrors.RenderError
	ExecutionError     = verrors.ExecutionError
	CacheError         = verrors.CacheError
	MappingError       = verrors.MappingError
	TransactionError   = verrors.TransactionError
	AggregateError     = verrors.AggregateError
)

var (
	// ErrNotFound is returned when selectOne finds no row.
	ErrNotFound = verrors.ErrNotFound
	// ErrNotSingular is returned when selectOne finds more than one row.
	ErrNotSingular = verrors.ErrNotSingular
	// ErrTxStarted reports an already-open transaction; nothing in this module returns it.
	ErrTxStarted = verrors.ErrTxStarted
	// ErrBlockingTimeout is returned by the Blocking cache decorator.
	ErrBlockingTimeout = verrors.ErrBlockingTimeout
)
