package bind

import (
	"reflect"

	"github.com/veloxsql/veloxsql/ast"
	"github.com/veloxsql/veloxsql/types"
	"github.com/veloxsql/veloxsql/verrors"
)

// Binder resolves a rendered statement's ordered parameter references into
// the driver-ready values database/sql expects as bind arguments.
type Binder struct {
	registry   *types.Registry
	nullColumn types.ColumnType
}

// New returns a Binder using registry for handler resolution. Its null
// column type starts as types.ColumnOther; WithNullColumnType changes it.
// A null value is always bound as an untyped nil: the null column type is
// not passed to the driver.
func New(registry *types.Registry) *Binder {
	return &Binder{registry: registry, nullColumn: types.ColumnOther}
}

// WithNullColumnType overrides the null column type Bind picks for a null
// value that carries no explicit jdbcType hint. The bound argument is still
// an untyped nil.
func (b *Binder) WithNullColumnType(column types.ColumnType) *Binder {
	b.nullColumn = column
	return b
}

// Bind converts params into an ordered slice of driver bind arguments,
// suitable to pass straight through to *sql.Stmt's Exec/Query.
//
// A missing property already surfaces as ParamRef.Value == nil,
// since the ast renderer resolves properties via an expression evaluator
// that treats undefined references as null rather than failing; Bind
// recognizes that case and binds an untyped nil without consulting a type
// handler.
func (b *Binder) Bind(params []ast.ParamRef) ([]any, error) {
	out := make([]any, len(params))
	for i, p := range params {
		if p.Mode == ast.ModeOut {
			out[i] = nil
			continue
		}

		column := p.JdbcType
		if p.Value == nil {
			if column == types.ColumnUnknown {
				column = b.nullColumn
			}
			out[i] = nil
			continue
		}

		handler, err := b.resolveHandler(p, column)
		if err != nil {
			return nil, err
		}
		v, err := handler.Set(p.Value, column)
		if err != nil {
			return nil, verrors.NewBindingError(p.Property, err.Error())
		}
		out[i] = v
	}
	return out, nil
}

func (b *Binder) resolveHandler(p ast.ParamRef, column types.ColumnType) (types.Handler, error) {
	if p.TypeHandler != "" {
		h, ok := b.registry.ByName(p.TypeHandler)
		if !ok {
			return nil, verrors.NewBindingError(p.Property, "unknown typeHandler \""+p.TypeHandler+"\"")
		}
		return h, nil
	}
	host := reflect.TypeOf(p.Value)
	h, err := b.registry.Resolve(host, column)
	if err != nil {
		return nil, verrors.NewBindingError(p.Property, err.Error())
	}
	return h, nil
}
