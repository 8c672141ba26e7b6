package stmthandler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeMySQLError stands in for go-sql-driver/mysql's *mysql.MySQLError,
// which exposes the violated constraint as a numeric error code via
// Number().
type fakeMySQLError struct{ number uint16 }

func (e fakeMySQLError) Error() string  { return fmt.Sprintf("Error %d: constraint violation", e.number) }
func (e fakeMySQLError) Number() uint16 { return e.number }

// fakePQError stands in for lib/pq's *pq.Error, which exposes a SQLSTATE
// code via SQLState().
type fakePQError struct{ code string }

func (e fakePQError) Error() string    { return "pq: constraint violation" }
func (e fakePQError) SQLState() string { return e.code }

func TestClassifyConstraint_MySQLErrorCodes(t *testing.T) {
	assert.Equal(t, UniqueConstraint, ClassifyConstraint(fakeMySQLError{number: mysqlDuplicateEntry}))
	assert.Equal(t, ForeignKeyConstraint, ClassifyConstraint(fakeMySQLError{number: mysqlForeignKeyParent}))
	assert.Equal(t, ForeignKeyConstraint, ClassifyConstraint(fakeMySQLError{number: mysqlForeignKeyChild}))
	assert.Equal(t, CheckConstraint, ClassifyConstraint(fakeMySQLError{number: mysqlCheckConstraintViolate}))
	assert.Equal(t, NoConstraint, ClassifyConstraint(fakeMySQLError{number: 9999}))
}

func TestClassifyConstraint_PostgresSQLStateCodes(t *testing.T) {
	assert.Equal(t, UniqueConstraint, ClassifyConstraint(fakePQError{code: pgUniqueViolation}))
	assert.Equal(t, ForeignKeyConstraint, ClassifyConstraint(fakePQError{code: pgForeignKeyViolation}))
	assert.Equal(t, CheckConstraint, ClassifyConstraint(fakePQError{code: pgCheckViolation}))
}

func TestClassifyConstraint_WrappedDriverError(t *testing.T) {
	err := fmt.Errorf("insert failed: %w", fakeMySQLError{number: mysqlDuplicateEntry})
	assert.Equal(t, UniqueConstraint, ClassifyConstraint(err))
}

func TestClassifyConstraint_MessageFallback(t *testing.T) {
	assert.Equal(t, UniqueConstraint, ClassifyConstraint(errors.New("UNIQUE constraint failed: users.email")))
	assert.Equal(t, ForeignKeyConstraint, ClassifyConstraint(errors.New("FOREIGN KEY constraint failed")))
	assert.Equal(t, CheckConstraint, ClassifyConstraint(errors.New("CHECK constraint failed: users.age")))
}

func TestClassifyConstraint_NilAndUnrecognized(t *testing.T) {
	assert.Equal(t, NoConstraint, ClassifyConstraint(nil))
	assert.Equal(t, NoConstraint, ClassifyConstraint(errors.New("connection reset by peer")))
}

func TestIsConstraintError(t *testing.T) {
	assert.True(t, IsConstraintError(fakePQError{code: pgUniqueViolation}))
	assert.False(t, IsConstraintError(errors.New("timeout")))
}
