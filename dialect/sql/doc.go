// Package sql adapts database/sql to the stmthandler.Conn capability
// veloxsql's Session is built against:
//
//	drv, err := sql.Open(dialect.Postgres, dsn)
//	conn, _ := drv.Borrow(ctx)
//	// conn implements stmthandler.Conn
//
// Session variables (e.g. a tenant id) can be attached to a context and
// are applied before every statement run with it:
//
//	ctx = sql.WithVar(ctx, "app.tenant_id", tenantID)
//
// StatsConn and DebugConn decorate a Conn with, respectively, query
// statistics and statement-level debug logging.
package sql
