// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wsqlite

import (
	"context"
	"database/sql/driver"
	"strings"

	"github.com/wsqlite/go-wsqlite/shim"
)

// Conn is a single connection to a database. It is not safe for concurrent
// use; database/sql serializes access to it.
type Conn struct {
	db     shim.DB
	closed bool
	tx     bool
}

func (c *Conn) Close() error {
	if c.closed {
		panic("database/sql/driver: misuse of wsqlite driver: Close of already closed connection")
	}
	if rc := shim.Close(c.db); rc != shim.ResultOK {
		// Unfinalized statements keep the handle alive; report and leave
		// the connection usable.
		return getError(errClose, engineError(c.db, rc))
	}
	c.closed = true
	return nil
}

func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	if c.closed {
		panic("database/sql/driver: misuse of wsqlite driver: Prepare after Close")
	}
	return c.prepareStmt(query)
}

// PrepareContext implements driver.ConnPrepareContext.
func (c *Conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.Prepare(query)
}

// ExecContext implements driver.ExecerContext. Without arguments the query
// may contain multiple statements, which run in sequence; with arguments it
// must be a single statement.
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if c.closed {
		panic("database/sql/driver: misuse of wsqlite driver: ExecContext after Close")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return c.execSequence(query)
	}

	s, err := c.prepareStmt(query)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.ExecContext(ctx, args)
}

// QueryContext implements driver.QueryerContext.
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.closed {
		panic("database/sql/driver: misuse of wsqlite driver: QueryContext after Close")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s, err := c.prepareStmt(query)
	if err != nil {
		return nil, err
	}
	s.closeOnRowsClose = true

	r, err := s.QueryContext(ctx, args)
	if err != nil {
		s.Close()
		return nil, err
	}
	return r, nil
}

func (c *Conn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// BeginTx implements driver.ConnBeginTx. The engine supports neither
// isolation levels beyond its default nor per-transaction read-only mode.
func (c *Conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if c.tx {
		panic("database/sql/driver: misuse of wsqlite driver: multiple Tx")
	}
	if opts.Isolation != 0 {
		return nil, getError(errTxIsolation, nil)
	}
	if opts.ReadOnly {
		return nil, getError(errTxReadOnly, nil)
	}

	if _, err := c.ExecContext(ctx, "BEGIN", nil); err != nil {
		return nil, err
	}
	c.tx = true
	return &tx{c}, nil
}

// prepareStmt compiles exactly one statement. Trailing SQL past the first
// statement is rejected at this layer; use ExecContext without arguments to
// run a statement sequence.
func (c *Conn) prepareStmt(query string) (*Stmt, error) {
	s, tail, rc := shim.Prepare(c.db, query)
	if rc != shim.ResultOK {
		err := getError(errPrepare, engineError(c.db, rc))
		// The engine should not hand out a handle on failure, but if it
		// did, it must be released; a secondary error is ignored.
		if s.Valid() {
			shim.Finalize(s)
		}
		return nil, err
	}
	if !s.Valid() {
		return nil, getError(errEmptyQuery, nil)
	}
	if strings.TrimSpace(tail) != "" {
		shim.Finalize(s)
		return nil, getError(errTrailingSQL, nil)
	}
	return &Stmt{conn: c, stmt: s}, nil
}

// execSequence runs each statement in query to completion, consuming the
// prepare tail, and reports the changes of the last statement that made any.
func (c *Conn) execSequence(query string) (driver.Result, error) {
	res := &result{}
	sawStatement := false

	for q := strings.TrimSpace(query); q != ""; {
		s, tail, rc := shim.Prepare(c.db, q)
		if rc != shim.ResultOK {
			err := getError(errPrepare, engineError(c.db, rc))
			if s.Valid() {
				shim.Finalize(s)
			}
			return nil, err
		}
		q = strings.TrimSpace(tail)
		if !s.Valid() {
			// Comment or whitespace; nothing compiled.
			continue
		}
		sawStatement = true

		if err := stepToCompletion(c, s); err != nil {
			shim.Finalize(s)
			return nil, err
		}
		res.changes = int64(shim.Changes(c.db))
		res.lastInsertID = shim.LastInsertRowID(c.db)

		if rc := shim.Finalize(s); rc != shim.ResultOK {
			return nil, getError(errFinalize, engineError(c.db, rc))
		}
	}

	if !sawStatement {
		return nil, getError(errEmptyQuery, nil)
	}
	return res, nil
}

// stepToCompletion drives a statement until done, discarding any rows.
func stepToCompletion(c *Conn, s shim.Stmt) error {
	for {
		switch rc := shim.Step(s); rc.Primary() {
		case shim.ResultRow:
			// keep going
		case shim.ResultDone:
			return nil
		default:
			return engineError(c.db, rc)
		}
	}
}
