package ast

import (
	"strings"

	"github.com/veloxsql/veloxsql/eval"
	"github.com/veloxsql/veloxsql/types"
)

// ParamRef is a single resolved `#{...}` occurrence in a rendered
// statement: its declared binding hints plus the value the renderer
// resolved for it against the evaluation scope in force at that point in
// the tree.
type ParamRef struct {
	Property    string
	Value       any
	JdbcType    types.ColumnType
	TypeHandler string
	Mode        ParamMode
	ResultMap   string // out-cursor parameters only
}

// ParamMode is a parameter's binder direction.
type ParamMode string

const (
	ModeIn    ParamMode = "in"
	ModeOut   ParamMode = "out"
	ModeInOut ParamMode = "inout"
)

// RenderContext accumulates a render's output and carries the evaluation
// scope nodes resolve expressions against. A fresh RenderContext is built
// per statement invocation.
type RenderContext struct {
	Ctx     *eval.Context
	sql     strings.Builder
	params  []ParamRef
	dynamic bool
}

// NewRenderContext builds a RenderContext for the given statement argument.
func NewRenderContext(parameter any, databaseID string) *RenderContext {
	return &RenderContext{Ctx: eval.NewContext(parameter, databaseID)}
}

// WriteString appends literal SQL text to the render output.
func (rc *RenderContext) WriteString(s string) {
	rc.sql.WriteString(s)
}

// AddParam records a resolved parameter reference in ordinal order.
func (rc *RenderContext) AddParam(p ParamRef) {
	rc.params = append(rc.params, p)
}

// MarkDynamic flags the overall statement as containing dynamic SQL (set by
// DynamicText when it substitutes a `${...}` token).
func (rc *RenderContext) MarkDynamic() {
	rc.dynamic = true
}

// Result returns the accumulated SQL text, the ordered parameter
// references, and whether any DynamicText node fired during the render.
func (rc *RenderContext) Result() (sql string, params []ParamRef, dynamic bool) {
	return rc.sql.String(), rc.params, rc.dynamic
}

// Node is the SQL AST's common element: every statement body, dynamic-SQL
// control construct, and leaf token implements it.
type Node interface {
	Render(rc *RenderContext) error
}

// Render runs root against a fresh evaluation scope for parameter and
// returns the rendered SQL, its ordered parameter references, and whether
// any dynamic substitution occurred.
func Render(root Node, parameter any, databaseID string) (string, []ParamRef, bool, error) {
	rc := NewRenderContext(parameter, databaseID)
	if err := root.Render(rc); err != nil {
		return "", nil, false, err
	}
	sql, params, dynamic := rc.Result()
	return sql, params, dynamic, nil
}
