package bean

import "reflect"

// Accessor is the capability the result-set mapper and parameter binder
// use to manipulate an arbitrary target object without depending on its
// concrete type.
type Accessor interface {
	// Create instantiates t, optionally via a constructor whose parameter
	// types and argument values are given.
	Create(t reflect.Type, argTypes []reflect.Type, args []any) (any, error)
	// Get reads the value at property-path (dotted, e.g. "Address.City")
	// from object.
	Get(object any, propertyPath string) (any, error)
	// Set assigns value to the property at propertyPath on object.
	Set(object any, propertyPath string, value any) error
	// HasSetter reports whether t has a settable property named property.
	HasSetter(t reflect.Type, property string) bool
	// SetterType returns the type a setter for property on t accepts.
	SetterType(t reflect.Type, property string) (reflect.Type, bool)
	// IsCollection reports whether t is a slice, array, or map — the
	// shapes a nested result map appends multiple rows into.
	IsCollection(t reflect.Type) bool
	// Fields iterates the exported property names of t for auto-mapping.
	Fields(t reflect.Type) []string
}
