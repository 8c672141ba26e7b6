package mapping

import (
	"database/sql"
	"strings"
)

// RowSource is the narrow surface the mapper needs from a driver result
// set: advance, read the declared column names, and scan either by
// ordinal or by name. It also satisfies types.RowScanner so a Handler can
// read directly from it.
type RowSource interface {
	Next() bool
	Columns() ([]string, error)
	ScanByIndex(i int, dest any) error
	ScanByName(column string, dest any) error
	Err() error
	Close() error
}

// sqlRows adapts *sql.Rows to RowSource, caching the column-name-to-index
// map and the per-row scan targets so repeated ScanByName calls against
// the same row don't re-scan the whole row each time.
type sqlRows struct {
	rows     *sql.Rows
	columns  []string
	indexOf  map[string]int
	rowCache []any
	scanned  bool
}

// NewSQLRowSource wraps rows as a RowSource.
func NewSQLRowSource(rows *sql.Rows) (RowSource, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	indexOf := make(map[string]int, len(cols))
	for i, c := range cols {
		indexOf[strings.ToLower(c)] = i
	}
	return &sqlRows{rows: rows, columns: cols, indexOf: indexOf}, nil
}

func (s *sqlRows) Next() bool {
	s.scanned = false
	return s.rows.Next()
}

func (s *sqlRows) Columns() ([]string, error) { return s.columns, nil }

func (s *sqlRows) Err() error   { return s.rows.Err() }
func (s *sqlRows) Close() error { return s.rows.Close() }

func (s *sqlRows) scanRow() error {
	if s.scanned {
		return nil
	}
	dest := make([]any, len(s.columns))
	for i := range dest {
		dest[i] = new(any)
	}
	if err := s.rows.Scan(dest...); err != nil {
		return err
	}
	s.rowCache = dest
	s.scanned = true
	return nil
}

func (s *sqlRows) ScanByIndex(i int, dest any) error {
	if err := s.scanRow(); err != nil {
		return err
	}
	if i < 0 || i >= len(s.rowCache) {
		return nil
	}
	assignAny(dest, *(s.rowCache[i].(*any)))
	return nil
}

func (s *sqlRows) ScanByName(column string, dest any) error {
	idx, ok := s.indexOf[strings.ToLower(column)]
	if !ok {
		assignAny(dest, nil)
		return nil
	}
	return s.ScanByIndex(idx, dest)
}

func assignAny(dest any, v any) {
	p, ok := dest.(*any)
	if !ok {
		return
	}
	*p = v
}
