// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wsqlite

import (
	"database/sql/driver"
	"io"

	"github.com/wsqlite/go-wsqlite/shim"
)

// rows steps a statement one row at a time. Values are surfaced the way the
// engine's text accessor reports them: NULL becomes nil, everything else a
// string copied out of the engine's borrowed pointer before the next step.
type rows struct {
	stmt    *Stmt
	columns []string
	done    bool
}

func newRowsWithStmt(s *Stmt) *rows {
	n := shim.ColumnCount(s.stmt)
	columns := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name, _ := shim.ColumnName(s.stmt, i)
		columns = append(columns, name)
	}
	return &rows{stmt: s, columns: columns}
}

func (r *rows) Columns() []string {
	return r.columns
}

func (r *rows) Next(dst []driver.Value) error {
	if r.done || r.stmt == nil {
		return io.EOF
	}

	switch rc := shim.Step(r.stmt.stmt); rc.Primary() {
	case shim.ResultRow:
	case shim.ResultDone:
		r.done = true
		return io.EOF
	default:
		r.done = true
		return engineError(r.stmt.conn.db, rc)
	}

	for i := range r.columns {
		if text, ok := shim.ColumnText(r.stmt.stmt, i); ok {
			dst[i] = text
		} else {
			dst[i] = nil
		}
	}
	return nil
}

// ColumnTypeDatabaseTypeName implements driver.RowsColumnTypeDatabaseTypeName
// using the runtime type tag of the current row's value.
func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	if r.stmt == nil {
		return ""
	}
	return shim.ColumnType(r.stmt.stmt, index).String()
}

func (r *rows) Close() error {
	if r.stmt == nil {
		return nil
	}
	s := r.stmt
	r.stmt = nil
	s.rows = false

	if s.closeOnRowsClose {
		return s.Close()
	}
	return s.clear()
}
