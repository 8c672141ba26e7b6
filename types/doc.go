// Package types implements the Type Handler Registry: a
// read-mostly table of bidirectional converters between Go host types and
// SQL column types, used by both the Parameter Binder (bind package) and the
// Result-Set Mapper (mapping package). Registry has no freeze step:
// registration stays open after configuration, and a Register call is
// accepted at any time.
package types
