package ast

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/veloxsql/veloxsql/verrors"
)

// StaticText renders as its literal value; it carries no `#{...}` or
// `${...}` tokens, so no scan is required.
type StaticText string

func (t StaticText) Render(rc *RenderContext) error {
	rc.WriteString(string(t))
	return nil
}

var textSubstitution = regexp.MustCompile(`\$\{([^}]+)\}`)

// DynamicText carries one or more unresolved `${...}` tokens. Each token is
// evaluated as an expression over the current scope and substituted
// literally; any substitution marks the overall render dynamic.
type DynamicText string

func (t DynamicText) Render(rc *RenderContext) error {
	matches := textSubstitution.FindAllStringSubmatchIndex(string(t), -1)
	if len(matches) == 0 {
		rc.WriteString(string(t))
		return nil
	}

	var out strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		tokStart, tokEnd := m[2], m[3]
		out.WriteString(string(t)[last:start])

		token := strings.TrimSpace(string(t)[tokStart:tokEnd])
		expr, err := compileCache(token)
		if err != nil {
			return err
		}
		v, err := expr.Eval(rc.Ctx)
		if err != nil {
			return err
		}
		if v == nil {
			return verrors.NewRenderError("eval", token, fmt.Errorf("null value cannot be substituted into SQL text"))
		}
		out.WriteString(fmt.Sprintf("%v", v))
		rc.MarkDynamic()
		last = end
	}
	out.WriteString(string(t)[last:])
	rc.WriteString(out.String())
	return nil
}

// Mixed renders an ordered list of children in sequence.
type Mixed []Node

func (m Mixed) Render(rc *RenderContext) error {
	for _, child := range m {
		if err := child.Render(rc); err != nil {
			return err
		}
	}
	return nil
}
