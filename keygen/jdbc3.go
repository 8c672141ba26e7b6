package keygen

import (
	"context"
	"database/sql"

	"github.com/veloxsql/veloxsql/bean"
	"github.com/veloxsql/veloxsql/verrors"
)

// Jdbc3Generator assigns a driver-generated auto-increment key back onto
// the insert argument(s) after execution, the way JDBC3's
// Statement.RETURN_GENERATED_KEYS does. database/sql has no
// equivalent of JDBC's per-row generated-keys cursor: Result.LastInsertId
// reports a single value. For a single-row insert that value is assigned
// directly; for a batch, this generator relies on the MySQL convention that
// a multi-row INSERT's auto-increment ids are contiguous starting at
// LastInsertId, and assigns id, id+1, id+2,... in submission order. A
// driver that doesn't honor that convention (e.g. a non-MySQL database
// with no contiguous-id guarantee) should use SelectKeyGenerator instead.
type Jdbc3Generator struct {
	KeyProperty string
}

// NewJdbc3 returns a generator that assigns the driver's generated key to
// keyProperty on each submitted argument.
func NewJdbc3(keyProperty string) *Jdbc3Generator {
	return &Jdbc3Generator{KeyProperty: keyProperty}
}

// GenerateBefore is a no-op: the key isn't known until after the insert
// executes.
func (g *Jdbc3Generator) GenerateBefore(ctx context.Context, accessor bean.Accessor, arg any) error {
	return nil
}

// GenerateAfter reads result.LastInsertId and assigns it across args in
// submission order.
func (g *Jdbc3Generator) GenerateAfter(ctx context.Context, accessor bean.Accessor, args []any, result sql.Result) error {
	if g.KeyProperty == "" || len(args) == 0 {
		return nil
	}
	first, err := result.LastInsertId()
	if err != nil {
		return verrors.NewExecutionError("", "", nil, err)
	}
	for i, arg := range args {
		if err := accessor.Set(arg, g.KeyProperty, first+int64(i)); err != nil {
			return verrors.NewMappingError(g.KeyProperty, "assign generated key", err)
		}
	}
	return nil
}
