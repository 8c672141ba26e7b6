package mapping

import "github.com/veloxsql/veloxsql/verrors"

// ResultSetBinding pairs a driving (parent) statement with the ResultMap
// that maps one of its later result sets, for a multi-result-set callable
// statement (resultSets="..." with column/foreignColumn join columns).
// Bindings are collected from ResultSet mappings at Freeze time; a second
// mapping claiming the same result set of the same parent with a distinct
// child result map is rejected there rather than silently merged — the
// two children would otherwise compete for the same rows with no defined
// winner.
type ResultSetBinding struct {
	ParentStatementID string
	ResultSet         string
	ChildResultMapID  string
	Column            string
	ForeignColumn     string
}

// ResultSetRegistry tracks the result-set bindings declared across every
// ResultMap registered for statements with resultSets configured. Built
// during Registry.Freeze, read-only afterward.
type ResultSetRegistry struct {
	bindings map[resultSetKey]ResultSetBinding
}

type resultSetKey struct {
	parent    string
	resultSet string
}

// NewResultSetRegistry returns an empty registry.
func NewResultSetRegistry() *ResultSetRegistry {
	return &ResultSetRegistry{bindings: make(map[resultSetKey]ResultSetBinding)}
}

// Bind records binding under its (parent statement, result set) pair.
// Re-binding the same child result map is idempotent; a different child
// result map for an already-claimed pair is a ConfigurationError.
func (r *ResultSetRegistry) Bind(binding ResultSetBinding) error {
	k := resultSetKey{parent: binding.ParentStatementID, resultSet: binding.ResultSet}
	existing, ok := r.bindings[k]
	if ok && existing.ChildResultMapID != binding.ChildResultMapID {
		return verrors.NewConfigurationError(binding.ParentStatementID,
			"result set \""+binding.ResultSet+"\" already bound to resultMap "+
				existing.ChildResultMapID+", cannot also bind "+binding.ChildResultMapID, nil)
	}
	r.bindings[k] = binding
	return nil
}

// Lookup returns the binding registered for parentStatementID's named
// result set, if any.
func (r *ResultSetRegistry) Lookup(parentStatementID, resultSet string) (ResultSetBinding, bool) {
	b, ok := r.bindings[resultSetKey{parent: parentStatementID, resultSet: resultSet}]
	return b, ok
}

// ResultSetPlan tells MapResultSets which binding and child ResultMap
// serve each later result set of a multi-result-set statement. Names is
// the statement's declared result-set list in arrival order; Names[0] is
// the driving set and carries no binding.
type ResultSetPlan struct {
	Names     []string
	Bindings  map[string]ResultSetBinding
	ChildMaps map[string]*ResultMap
}
