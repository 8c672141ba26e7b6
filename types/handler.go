package types

import "reflect"

// RowScanner is the minimal surface the Result-Set Mapper exposes to a
// Handler when reading a column back out of a driver row. Implementations
// wrap *sql.Rows (see mapping's sqlRows adapter in mapping/rowsource.go).
type RowScanner interface {
	ScanByIndex(i int, dest any) error
	ScanByName(column string, dest any) error
}

// OutParams is the minimal surface a Handler needs to read a callable
// statement's out/in-out parameter after row processing.
type OutParams interface {
	ValueByIndex(i int) (any, error)
}

// Handler converts between a Go host type and a SQL column type in both
// directions.
type Handler interface {
	// Set converts a bound host value into the value passed to the
	// underlying database/sql driver for the given column type.
	Set(value any, column ColumnType) (driverValue any, err error)
	// GetByName reads a named column from rs and converts it to the host
	// representation this handler owns.
	GetByName(rs RowScanner, column string) (any, error)
	// GetByIndex reads an ordinal column from rs.
	GetByIndex(rs RowScanner, i int) (any, error)
	// GetOutByIndex reads a callable statement's out parameter.
	GetOutByIndex(out OutParams, i int) (any, error)
}

// HostType is implemented by handlers that are registered for exactly one
// Go host type, letting the registry infer the host type from the handler
// itself rather than requiring an explicit registration target.
type HostType interface {
	HostType() reflect.Type
}

// EnumHost is implemented by host types the registry should treat as
// enum-like for the purposes of the enum default handler fallback; its
// IsVeloxEnum result decides. A type that does not implement it is treated
// as enum-like when it is a user-defined named string or integer kind
// (see isEnumKind).
type EnumHost interface {
	IsVeloxEnum() bool
}
