// Package verrors defines the error kinds shared across every veloxsql
// package. It is deliberately leaf-level (no imports of sibling veloxsql
// packages) so that ast, eval, types, cache, mapping, exec, etc. can all
// construct and recognize these errors without import cycles; the root
// package re-exports the common names for callers who only import
// "github.com/veloxsql/veloxsql".
//
// The seven kinds: ConfigurationError, BindingError,
// RenderError (see eval.RenderError, which satisfies the same shape),
// ExecutionError, CacheError, MappingError, TransactionError.
package verrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a Select statement expected at least one
// row and got none.
var ErrNotFound = errors.New("veloxsql: no rows in result")

// ErrNotSingular is returned when selectOne receives more than one row.
var ErrNotSingular = errors.New("veloxsql: more than one row for singular select")

// ErrTxStarted reports that a transaction is already open on a session. No
// function in this module returns it.
var ErrTxStarted = errors.New("veloxsql: transaction already started")

// ConfigurationError reports a malformed mapping: an unresolved statement
// or result-map reference, a nested mapping that sets both `select` and
// `resultMap`, a missing data-source/transaction factory, or an ambiguous
// resultSets binding.
type ConfigurationError struct {
	Resource string // statement id, result-map id, or file being configured
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("veloxsql: configuration: %s: %s: %v", e.Resource, e.Reason, e.Err)
	}
	return fmt.Sprintf("veloxsql: configuration: %s: %s", e.Resource, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError builds a ConfigurationError.
func NewConfigurationError(resource, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Resource: resource, Reason: reason, Err: err}
}

// Incomplete is the internal, locally-caught signal raised during
// configuration when a reference cannot yet be resolved (the target may be
// registered later in the same load pass). Callers of the configuration
// loader retry objects that raised Incomplete in a second pass; only an
// error that survives the retry becomes a real
// ConfigurationError.
type Incomplete struct {
	Resource string
	Reason   string
}

func (e *Incomplete) Error() string {
	return fmt.Sprintf("veloxsql: incomplete: %s: %s", e.Resource, e.Reason)
}

// RenderError reports that expression evaluation failed while rendering
// dynamic SQL: a compile error, an iterable expected but a scalar given,
// or a null where a value was required.
type RenderError struct {
	Op   string // "compile" or "eval"
	Expr string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("veloxsql: render: %s %q: %v", e.Op, e.Expr, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// NewRenderError builds a RenderError.
func NewRenderError(op, expr string, err error) *RenderError {
	return &RenderError{Op: op, Expr: expr, Err: err}
}

// BindingError reports that a caller invoked an unknown statement id, or
// that a mapper-interface method has no corresponding statement.
type BindingError struct {
	Statement string
	Reason    string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("veloxsql: binding: %s: %s", e.Statement, e.Reason)
}

// NewBindingError builds a BindingError.
func NewBindingError(statement, reason string) *BindingError {
	return &BindingError{Statement: statement, Reason: reason}
}

// ExecutionError wraps a driver failure during prepare/execute/fetch with
// the statement id, rendered SQL, and bound parameters that produced it.
type ExecutionError struct {
	Statement string
	SQL       string
	Args      []any
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("veloxsql: execution: statement %q: %v\nsql: %s\nargs: %v", e.Statement, e.Err, e.SQL, e.Args)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// NewExecutionError builds an ExecutionError.
func NewExecutionError(statement, sql string, args []any, err error) *ExecutionError {
	return &ExecutionError{Statement: statement, SQL: sql, Args: args, Err: err}
}

// CacheError reports a blocking-cache acquisition timeout or a
// deserialization failure in the Serialized cache decorator.
type CacheError struct {
	Cache  string
	Key    string
	Reason string
	Err    error
}

func (e *CacheError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("veloxsql: cache %s: %s: key=%s: %v", e.Cache, e.Reason, e.Key, e.Err)
	}
	return fmt.Sprintf("veloxsql: cache %s: %s: key=%s", e.Cache, e.Reason, e.Key)
}

func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError builds a CacheError.
func NewCacheError(cache, key, reason string, err error) *CacheError {
	return &CacheError{Cache: cache, Key: key, Reason: reason, Err: err}
}

// ErrBlockingTimeout is returned by the Blocking cache decorator when a
// key's lock could not be acquired before the configured timeout.
var ErrBlockingTimeout = errors.New("veloxsql: blocking cache: lock acquisition timed out")

// MappingError reports a failure inside the result-set mapper: no
// applicable constructor, a discriminator cycle, or an ambiguous
// getter/setter during bean access.
type MappingError struct {
	ResultMap string
	Reason    string
	Err       error
}

func (e *MappingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("veloxsql: mapping: %s: %s: %v", e.ResultMap, e.Reason, e.Err)
	}
	return fmt.Sprintf("veloxsql: mapping: %s: %s", e.ResultMap, e.Reason)
}

func (e *MappingError) Unwrap() error { return e.Err }

// NewMappingError builds a MappingError.
func NewMappingError(resultMap, reason string, err error) *MappingError {
	return &MappingError{ResultMap: resultMap, Reason: reason, Err: err}
}

// TransactionError reports a commit/rollback/close failure.
type TransactionError struct {
	Op  string // "commit", "rollback", "close"
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("veloxsql: transaction %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// NewTransactionError builds a TransactionError.
func NewTransactionError(op string, err error) *TransactionError {
	return &TransactionError{Op: op, Err: err}
}

// AggregateError represents multiple errors collected during an operation
// (e.g. a batch flush where several statements failed).
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "veloxsql: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := fmt.Sprintf("veloxsql: %d errors occurred:", len(e.Errors))
	for i, err := range e.Errors {
		msg += fmt.Sprintf("\n  [%d] %v", i+1, err)
	}
	return msg
}

// NewAggregateError returns an AggregateError for the non-nil errors
// given, nil if none, or the single error itself if only one.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &AggregateError{Errors: filtered}
	}
}
