package types

// ColumnType is a declared SQL column type hint, akin to java.sql.Types in
// the source ecosystem. It is intentionally a small closed set: the
// statement-execution pipeline only needs it to disambiguate handler
// resolution and to supply a default for null binds, not to model every
// dialect's type system.
type ColumnType string

const (
	ColumnUnknown   ColumnType = ""
	ColumnVarchar   ColumnType = "VARCHAR"
	ColumnText      ColumnType = "TEXT"
	ColumnInteger   ColumnType = "INTEGER"
	ColumnBigInt    ColumnType = "BIGINT"
	ColumnFloat     ColumnType = "FLOAT"
	ColumnDouble    ColumnType = "DOUBLE"
	ColumnDecimal   ColumnType = "DECIMAL"
	ColumnBoolean   ColumnType = "BOOLEAN"
	ColumnDate      ColumnType = "DATE"
	ColumnTimestamp ColumnType = "TIMESTAMP"
	ColumnBlob      ColumnType = "BLOB"
	ColumnJSON      ColumnType = "JSON"
	ColumnUUID      ColumnType = "UUID"
	ColumnCursor    ColumnType = "CURSOR"
	// ColumnOther is the configured default jdbc-type-for-null:
	// the column type the Binder picks for a nil value that declares no
	// explicit column type. The value itself is still bound as an untyped nil.
	ColumnOther ColumnType = "OTHER"
)
