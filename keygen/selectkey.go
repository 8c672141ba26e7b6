package keygen

import (
	"context"
	"database/sql"

	"github.com/veloxsql/veloxsql/bean"
	"github.com/veloxsql/veloxsql/verrors"
)

// StatementRunner is the narrow capability SelectKeyGenerator needs from
// its owning session to run the `{parent-id}!selectKey` sub-statement,
// without importing package exec (which references
// registry.KeyGenerator and would otherwise cycle back through keygen).
type StatementRunner interface {
	RunSelectKey(ctx context.Context, statementID string, arg any) (any, error)
}

// SelectKeyGenerator runs Statement against arg and assigns its scalar
// result to KeyProperty, either before the owning insert executes (for
// databases without auto-increment, e.g. a sequence-backed key fetched in
// advance) or after it (for a database whose "last identity" is read back
// via a separate statement rather than the driver's own Result).
type SelectKeyGenerator struct {
	Statement   string
	KeyProperty string
	Before      bool
	Runner      StatementRunner
}

// NewSelectKey returns a generator bound to statement, assigning its result
// to keyProperty. before selects whether it runs ahead of or after the
// owning insert.
func NewSelectKey(statement, keyProperty string, before bool, runner StatementRunner) *SelectKeyGenerator {
	return &SelectKeyGenerator{Statement: statement, KeyProperty: keyProperty, Before: before, Runner: runner}
}

func (g *SelectKeyGenerator) GenerateBefore(ctx context.Context, accessor bean.Accessor, arg any) error {
	if !g.Before {
		return nil
	}
	return g.run(ctx, accessor, arg)
}

func (g *SelectKeyGenerator) GenerateAfter(ctx context.Context, accessor bean.Accessor, args []any, _ sql.Result) error {
	if g.Before {
		return nil
	}
	for _, arg := range args {
		if err := g.run(ctx, accessor, arg); err != nil {
			return err
		}
	}
	return nil
}

func (g *SelectKeyGenerator) run(ctx context.Context, accessor bean.Accessor, arg any) error {
	v, err := g.Runner.RunSelectKey(ctx, g.Statement, arg)
	if err != nil {
		return verrors.NewExecutionError(g.Statement, "", nil, err)
	}
	if err := accessor.Set(arg, g.KeyProperty, v); err != nil {
		return verrors.NewMappingError(g.KeyProperty, "assign selectKey result", err)
	}
	return nil
}
