// Package dialect names the SQL dialects veloxsql's drivers and type
// handlers distinguish between. The package is intentionally tiny: dialect
// differences beyond these names (session-variable syntax, constraint-error
// classification) live next to the code that needs them (dialect/sql,
// stmthandler) rather than behind a dialect-specific abstraction layer.
package dialect

// Supported dialect names, matching the driver name database/sql callers
// register under (e.g. sql.Open("postgres", dsn)).
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)
