// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wsqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/wsqlite/go-wsqlite/shim"
)

// Stmt implements the driver.Stmt interface.
//
// All parameters are bound as TEXT. The engine's dynamic typing converts
// them back as needed, so numeric comparisons and arithmetic behave as
// expected. Parameters left unbound (nil arguments) read as NULL.
type Stmt struct {
	conn             *Conn
	stmt             shim.Stmt
	closeOnRowsClose bool
	closed           bool
	rows             bool
}

// Close finalizes the statement.
// Implements the driver.Stmt interface.
func (s *Stmt) Close() error {
	if s.rows {
		panic("database/sql/driver: misuse of wsqlite driver: Close with active Rows")
	}
	if s.closed {
		panic("database/sql/driver: misuse of wsqlite driver: double Close of Stmt")
	}

	s.closed = true
	if rc := shim.Finalize(s.stmt); rc != shim.ResultOK {
		return getError(errFinalize, engineError(s.conn.db, rc))
	}
	return nil
}

// NumInput returns the number of placeholder parameters.
// Implements the driver.Stmt interface.
func (s *Stmt) NumInput() int {
	if s.closed {
		panic("database/sql/driver: misuse of wsqlite driver: NumInput after Close")
	}
	return shim.BindParameterCount(s.stmt)
}

// String returns the SQL text the statement was prepared from.
func (s *Stmt) String() string {
	return shim.SQL(s.stmt)
}

func (s *Stmt) bind(args []driver.NamedValue) error {
	n := s.NumInput()
	if len(args) < n {
		return fmt.Errorf("incorrect argument count for command: have %d want %d", len(args), n)
	}

	for i := 0; i < n; i++ {
		arg := args[i]
		// Override with ordinal if set.
		for _, v := range args {
			if v.Ordinal == i+1 {
				arg = v
			}
		}

		text, isNull := formatBindValue(arg.Value)
		if isNull {
			// Unbound parameters read as NULL after ClearBindings.
			continue
		}
		if rc := shim.BindText(s.stmt, i+1, text); rc != shim.ResultOK {
			err := engineError(s.conn.db, rc)
			s.clear()
			return getError(errCouldNotBind, err)
		}
	}
	return nil
}

// formatBindValue renders a driver value as TEXT. isNull reports a nil
// value, which is represented by leaving the parameter unbound.
func formatBindValue(v driver.Value) (text string, isNull bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, false
	case []byte:
		return string(x), false
	case int64:
		return strconv.FormatInt(x, 10), false
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), false
	case bool:
		if x {
			return "1", false
		}
		return "0", false
	case time.Time:
		return x.Format(time.RFC3339Nano), false
	default:
		return fmt.Sprint(x), false
	}
}

// clear rewinds the statement and unbinds all parameters, readying it for
// the next execution.
func (s *Stmt) clear() error {
	if rc := shim.Reset(s.stmt); rc != shim.ResultOK {
		return getError(errResetStmt, engineError(s.conn.db, rc))
	}
	if rc := shim.ClearBindings(s.stmt); rc != shim.ResultOK {
		return getError(errResetStmt, engineError(s.conn.db, rc))
	}
	return nil
}

// Deprecated: Use ExecContext instead.
func (s *Stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), argsToNamedArgs(args))
}

// ExecContext executes a query that doesn't return rows, such as an INSERT
// or UPDATE. It implements the driver.StmtExecContext interface.
func (s *Stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	if s.closed {
		panic("database/sql/driver: misuse of wsqlite driver: ExecContext after Close")
	}
	if s.rows {
		panic("database/sql/driver: misuse of wsqlite driver: ExecContext with active Rows")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.bind(args); err != nil {
		return nil, err
	}

	if err := stepToCompletion(s.conn, s.stmt); err != nil {
		s.clear()
		return nil, err
	}

	res := &result{
		changes:      int64(shim.Changes(s.conn.db)),
		lastInsertID: shim.LastInsertRowID(s.conn.db),
	}

	if err := s.clear(); err != nil {
		return nil, err
	}
	return res, nil
}

// Deprecated: Use QueryContext instead.
func (s *Stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), argsToNamedArgs(args))
}

// QueryContext executes a query that may return rows, such as a SELECT.
// It implements the driver.StmtQueryContext interface.
func (s *Stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	if s.closed {
		panic("database/sql/driver: misuse of wsqlite driver: QueryContext after Close")
	}
	if s.rows {
		panic("database/sql/driver: misuse of wsqlite driver: QueryContext with active Rows")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.bind(args); err != nil {
		return nil, err
	}
	s.rows = true
	return newRowsWithStmt(s), nil
}

func argsToNamedArgs(values []driver.Value) []driver.NamedValue {
	args := make([]driver.NamedValue, len(values))
	for n, param := range values {
		args[n].Value = param
		args[n].Ordinal = n + 1
	}
	return args
}
