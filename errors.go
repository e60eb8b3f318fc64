// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wsqlite

import (
	"errors"
	"fmt"

	"github.com/wsqlite/go-wsqlite/shim"
)

func getError(errDriver error, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", driverErrMsg, errDriver)
	}
	return fmt.Errorf("%s: %w: %s", driverErrMsg, errDriver, err.Error())
}

// Error is a failure reported by the engine, carrying its status codes
// unchanged.
type Error struct {
	// Code is the primary status code.
	Code shim.ResultCode
	// ExtendedCode is the extended status code; equal to Code when no
	// extended information exists.
	ExtendedCode shim.ResultCode
	msg          string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", engineErrMsg, e.msg, int(e.ExtendedCode))
}

// engineError reads diagnostics for the last failure on db. rc is the code
// returned by the failing call; it is used verbatim when the handle cannot
// be queried.
func engineError(db shim.DB, rc shim.ResultCode) *Error {
	if !db.Valid() {
		return &Error{Code: rc.Primary(), ExtendedCode: rc, msg: rc.String()}
	}
	ext := shim.ExtendedErrcode(db)
	if ext == shim.ResultOK {
		ext = rc
	}
	return &Error{
		Code:         ext.Primary(),
		ExtendedCode: ext,
		msg:          shim.Errmsg(db),
	}
}

const (
	driverErrMsg = "database/sql/driver"
	engineErrMsg = "wsqlite error"
)

var (
	errParseDSN       = errors.New("could not parse DSN for database")
	errOpen           = errors.New("could not open database")
	errSetConfig      = errors.New("could not set invalid option for database config")
	errSetBusyTimeout = errors.New("could not set busy timeout")
	errExtendedCodes  = errors.New("could not enable extended result codes")
	errClose          = errors.New("could not close database")

	errPrepare      = errors.New("could not prepare statement")
	errEmptyQuery   = errors.New("empty query")
	errTrailingSQL  = errors.New("statement has trailing SQL")
	errCouldNotBind = errors.New("could not bind parameter")
	errFinalize     = errors.New("could not finalize statement")
	errResetStmt    = errors.New("could not reset statement")

	errTxIsolation = errors.New("isolation levels are not supported")
	errTxReadOnly  = errors.New("read-only transactions are not supported")
)
