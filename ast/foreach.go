package ast

import (
	"reflect"

	"github.com/veloxsql/veloxsql/verrors"
)

// ForEach resolves Collection to an iterable, renders Child once per
// element with a fresh scope binding Item (and Index, if named) to the
// current element, and joins the results with Open/Close/Separator.
// Empty collections render nothing.
type ForEach struct {
	Collection string
	Item       string
	Index      string // empty if the mapping didn't bind one
	Open       string
	Close      string
	Separator  string
	Child      Node
}

func (n ForEach) Render(rc *RenderContext) error {
	expr, err := compileCache(n.Collection)
	if err != nil {
		return err
	}
	collection, err := expr.Eval(rc.Ctx)
	if err != nil {
		return err
	}

	entries, err := iterate(collection)
	if err != nil {
		return verrors.NewRenderError("eval", n.Collection, err)
	}
	if len(entries) == 0 {
		return nil
	}

	rc.Ctx.Next() // uniqueness counter advances once per foreach render

	if n.Open != "" {
		rc.WriteString(n.Open)
	}
	for i, entry := range entries {
		if i > 0 && n.Separator != "" {
			rc.WriteString(n.Separator)
		}
		scope := rc.Ctx
		rc.Ctx = scope.Push()
		rc.Ctx.Bind(n.Item, entry.value)
		if n.Index != "" {
			rc.Ctx.Bind(n.Index, entry.key)
		}
		err := n.Child.Render(rc)
		rc.Ctx = scope
		if err != nil {
			return err
		}
	}
	if n.Close != "" {
		rc.WriteString(n.Close)
	}
	return nil
}

type entry struct {
	key   any
	value any
}

// iterate accepts slices, arrays, and maps, yielding (index, element) pairs
// in index order for slices and arrays, and (key, value) pairs for maps in
// reflect.Value.MapKeys order, which is unspecified.
func iterate(collection any) ([]entry, error) {
	if collection == nil {
		return nil, nil
	}
	v := reflect.ValueOf(collection)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]entry, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = entry{key: i, value: v.Index(i).Interface()}
		}
		return out, nil
	case reflect.Map:
		out := make([]entry, 0, v.Len())
		for _, k := range v.MapKeys() {
			out = append(out, entry{key: k.Interface(), value: v.MapIndex(k).Interface()})
		}
		return out, nil
	default:
		return nil, errNotIterable(v.Kind().String())
	}
}

type notIterableError string

func (e notIterableError) Error() string {
	return "collection expression did not resolve to a slice, array, or map: " + string(e)
}

func errNotIterable(kind string) error { return notIterableError(kind) }
