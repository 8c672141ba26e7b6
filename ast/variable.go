package ast

import (
	"strings"

	"github.com/veloxsql/veloxsql/eval"
	"github.com/veloxsql/veloxsql/types"
)

// Variable is a single `#{...}` token, parsed once at load time from its
// raw attribute syntax. Rendering resolves Property against the
// current evaluation scope and emits a `?` placeholder.
type Variable struct {
	Property    string
	JdbcType    types.ColumnType
	TypeHandler string
	Mode        ParamMode
	ResultMap   string
}

// ParseVariable parses the content between `#{` and `}` into a Variable.
// The first comma-free segment is the property path; subsequent
// `key=value` segments are binding hints.
func ParseVariable(raw string) Variable {
	parts := strings.Split(raw, ",")
	v := Variable{Property: strings.TrimSpace(parts[0]), Mode: ModeIn}
	for _, part := range parts[1:] {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, value := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch strings.ToLower(key) {
		case "jdbctype":
			v.JdbcType = types.ColumnType(strings.ToUpper(value))
		case "typehandler":
			v.TypeHandler = value
		case "mode":
			v.Mode = ParamMode(strings.ToLower(value))
		case "resultmap":
			v.ResultMap = value
		}
	}
	return v
}

func (v Variable) Render(rc *RenderContext) error {
	var value any
	var err error
	switch {
	case v.Mode == ModeOut:
		// Pure out parameters have nothing to resolve from the argument.
	default:
		value, err = resolveProperty(rc.Ctx, v.Property)
		if err != nil {
			return err
		}
	}
	rc.WriteString("?")
	rc.AddParam(ParamRef{
		Property:    v.Property,
		Value:       value,
		JdbcType:    v.JdbcType,
		TypeHandler: v.TypeHandler,
		Mode:        v.Mode,
		ResultMap:   v.ResultMap,
	})
	return nil
}

func resolveProperty(ctx *eval.Context, property string) (any, error) {
	expr, err := compileCache(property)
	if err != nil {
		return nil, err
	}
	return expr.Eval(ctx)
}
