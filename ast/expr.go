package ast

import "github.com/veloxsql/veloxsql/eval"

// compileCache is a thin indirection over eval.Compile so every node in
// this package shares the same call site; eval.Compile already caches
// compiled programs by source text.
func compileCache(source string) (*eval.Expression, error) {
	return eval.Compile(source)
}
