// Package eval implements the small expression language used inside
// dynamic-SQL nodes: the `test` attribute of <if>/<when>, the `collection`
// attribute of <foreach>, and `${...}` text substitution.
//
// Expressions are compiled once and cached by source text (Compile), then
// evaluated repeatedly against a Context built from the caller's argument
// and any <bind> variables in scope. Compilation and evaluation are backed
// by github.com/expr-lang/expr rather than a hand-rolled parser: the
// language needs property/index access, arithmetic, comparison, logical
// operators and null-safety, which is exactly expr's feature set, and
// reimplementing a second parser for it would just be a worse copy of a
// library already in the dependency graph.
package eval
