package eval

import (
	"reflect"
	"sync/atomic"
)

// Context is the evaluation environment for test/collection/${...}
// expressions. It is a chain of scopes: <bind> and <foreach> introduce a
// child scope so that inner bindings shadow outer ones without mutating
// the parent, mirroring how MyBatis-family engines scope loop variables.
type Context struct {
	parent  *Context
	vars    map[string]any
	counter *atomic.Uint64
}

// NewContext creates the root evaluation context for a single render call.
// parameter is the caller-supplied argument (_parameter); databaseID is the
// active dialect/databaseId hint.
func NewContext(parameter any, databaseID string) *Context {
	c := &Context{
		vars:    map[string]any{"_parameter": parameter, "_databaseId": databaseID},
		counter: new(atomic.Uint64),
	}
	for k, v := range flattenParameter(parameter) {
		c.vars[k] = v
	}
	return c
}

// Push returns a child scope that shares this context's uniqueness
// counter but whose bindings do not leak back into the parent.
func (c *Context) Push() *Context {
	return &Context{parent: c, vars: map[string]any{}, counter: c.counter}
}

// Bind assigns name = value in the current (innermost) scope, implementing
// the <bind> node.
func (c *Context) Bind(name string, value any) {
	c.vars[name] = value
}

// Get resolves name by walking from the innermost scope outward.
func (c *Context) Get(name string) (any, bool) {
	for s := c; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Next returns the next value of the monotonically increasing uniqueness
// counter. ForEach advances it once per render that has entries; the value
// is not used to build placeholder names.
func (c *Context) Next() uint64 {
	return c.counter.Add(1) - 1
}

// Env materializes the full variable set visible at this scope as a flat
// map suitable as an expr-lang evaluation environment.
func (c *Context) Env() map[string]any {
	env := map[string]any{}
	chain := make([]*Context, 0, 4)
	for s := c; s != nil; s = s.parent {
		chain = append(chain, s)
	}
	// Apply outermost first so inner scopes shadow outer ones.
	for i := len(chain) - 1; i >= 0; i-- {
		for k, v := range chain[i].vars {
			env[k] = v
		}
	}
	return env
}

// flattenParameter exposes a single struct/map argument's own fields at the
// top level of the environment, so `test="age > 0"` works for a lone
// parameter object the same way `test="_parameter.age > 0"` would. This is
// the one place eval falls back to reflect directly rather than the bean
// accessor capability (see bean.Accessor): the expression environment must
// be built before any statement-specific bean accessor is known, and the
// operation is a shallow, generic "spread named fields into a map" that no
// corpus library does better than reflect.
func flattenParameter(parameter any) map[string]any {
	out := map[string]any{}
	if parameter == nil {
		return out
	}
	v := reflect.ValueOf(parameter)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return out
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return out
		}
		for _, key := range v.MapKeys() {
			out[key.String()] = v.MapIndex(key).Interface()
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			out[f.Name] = v.Field(i).Interface()
		}
	}
	return out
}
