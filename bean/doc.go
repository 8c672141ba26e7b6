// Package bean implements the Bean Accessor capability: the
// narrow surface the Result-Set Mapper and Parameter Binder use to create
// instances and read/write properties by path without depending on any
// one concrete type.
//
// Accessor is the abstract capability; Default is the reflect-based
// implementation every statement uses unless the caller supplies its
// own. Using raw reflect here is the one place in this repo
// that's justified: a bean accessor's entire contract is "operate on an
// arbitrary, not-yet-known Go type by property-path string", which is
// exactly reflect's purpose.
package bean
