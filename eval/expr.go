package eval

import (
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/veloxsql/veloxsql/verrors"
)

// RenderError is an alias for verrors.RenderError so callers can type-switch
// on eval.RenderError without importing verrors directly.
type RenderError = verrors.RenderError

// Expression is a compiled test/collection/${...} expression, ready to be
// evaluated repeatedly against different contexts.
type Expression struct {
	source  string
	program *vm.Program
}

var programCache sync.Map // string -> *vm.Program

// Compile parses source into an Expression, reusing a previously compiled
// program for the same source text. Parses are process-wide cached by
// expression text.
func Compile(source string) (*Expression, error) {
	if cached, ok := programCache.Load(source); ok {
		return &Expression{source: source, program: cached.(*vm.Program)}, nil
	}
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, verrors.NewRenderError("compile", source, err)
	}
	programCache.Store(source, program)
	return &Expression{source: source, program: program}, nil
}

// MustCompile is Compile but panics on error; useful for statically known
// fragments built at statement-load time where a failure is a
// configuration bug, not a runtime condition.
func MustCompile(source string) *Expression {
	e, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the original expression text.
func (e *Expression) Source() string { return e.source }

// Eval runs the expression against ctx and returns the raw result.
func (e *Expression) Eval(ctx *Context) (any, error) {
	out, err := expr.Run(e.program, ctx.Env())
	if err != nil {
		return nil, verrors.NewRenderError("eval", e.source, err)
	}
	return out, nil
}

// Test evaluates the expression and applies MyBatis-style truthiness:
// booleans are themselves; numbers are truthy iff non-zero; any other
// non-nil value is truthy; nil is falsy.
func (e *Expression) Test(ctx *Context) (bool, error) {
	v, err := e.Eval(ctx)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// Truthy applies MyBatis-style truthiness to v.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int8:
		return t != 0
	case int16:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint:
		return t != 0
	case uint8:
		return t != 0
	case uint16:
		return t != 0
	case uint32:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0
	case float64:
		return t != 0
	case string:
		// A non-nil string is truthy regardless of content. Numbers get
		// the zero-check, strings do not.
		return true
	default:
		return true
	}
}
