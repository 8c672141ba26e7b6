// Package bind implements the Parameter Binder: given the
// ordered parameter references a statement render produced (package ast)
// and a Type Handler Registry, it resolves each value's effective handler
// and converts it into the value database/sql will be given as a bind
// argument.
package bind
