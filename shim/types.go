// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shim

import (
	"fmt"

	"modernc.org/libc"
	sqlite3 "modernc.org/sqlite/lib"
)

// ResultCode is an engine status code, passed through unchanged. The named
// constants cover the codes this package's callers branch on; any engine
// code can appear, including extended codes once ExtendedResultCodes is
// enabled on a handle.
type ResultCode int32

const (
	ResultOK        = ResultCode(sqlite3.SQLITE_OK)
	ResultError     = ResultCode(sqlite3.SQLITE_ERROR)
	ResultBusy      = ResultCode(sqlite3.SQLITE_BUSY)
	ResultLocked    = ResultCode(sqlite3.SQLITE_LOCKED)
	ResultNoMem     = ResultCode(sqlite3.SQLITE_NOMEM)
	ResultInterrupt = ResultCode(sqlite3.SQLITE_INTERRUPT)
	ResultCantOpen  = ResultCode(sqlite3.SQLITE_CANTOPEN)
	ResultMisuse    = ResultCode(sqlite3.SQLITE_MISUSE)
	ResultRange     = ResultCode(sqlite3.SQLITE_RANGE)
	ResultRow       = ResultCode(sqlite3.SQLITE_ROW)
	ResultDone      = ResultCode(sqlite3.SQLITE_DONE)
)

// Primary strips the extended-code bits, leaving the basic code.
func (rc ResultCode) Primary() ResultCode {
	return rc & 0xff
}

// IsSuccess reports whether rc is one of the non-error outcomes.
func (rc ResultCode) IsSuccess() bool {
	switch rc.Primary() {
	case ResultOK, ResultRow, ResultDone:
		return true
	}
	return false
}

// String returns the engine's own description of the code (sqlite3_errstr).
func (rc ResultCode) String() string {
	return libc.GoString(sqlite3.Xsqlite3_errstr(libTLSGet(), int32(rc)))
}

// OpenFlags is the bitmask accepted by Open.
//
// https://www.sqlite.org/c3ref/c_open_autoproxy.html
type OpenFlags int32

const (
	OpenReadOnly     = OpenFlags(sqlite3.SQLITE_OPEN_READONLY)
	OpenReadWrite    = OpenFlags(sqlite3.SQLITE_OPEN_READWRITE)
	OpenCreate       = OpenFlags(sqlite3.SQLITE_OPEN_CREATE)
	OpenURI          = OpenFlags(sqlite3.SQLITE_OPEN_URI)
	OpenMemory       = OpenFlags(sqlite3.SQLITE_OPEN_MEMORY)
	OpenNoMutex      = OpenFlags(sqlite3.SQLITE_OPEN_NOMUTEX)
	OpenFullMutex    = OpenFlags(sqlite3.SQLITE_OPEN_FULLMUTEX)
	OpenSharedCache  = OpenFlags(sqlite3.SQLITE_OPEN_SHAREDCACHE)
	OpenPrivateCache = OpenFlags(sqlite3.SQLITE_OPEN_PRIVATECACHE)
)

// DataType is the engine's runtime type tag for a column value.
//
// https://www.sqlite.org/c3ref/c_blob.html
type DataType int32

const (
	TypeInteger = DataType(sqlite3.SQLITE_INTEGER)
	TypeFloat   = DataType(sqlite3.SQLITE_FLOAT)
	TypeText    = DataType(sqlite3.SQLITE_TEXT)
	TypeBlob    = DataType(sqlite3.SQLITE_BLOB)
	TypeNull    = DataType(sqlite3.SQLITE_NULL)
)

// String returns the SQLite constant name of the type.
func (t DataType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	case TypeNull:
		return "NULL"
	default:
		return fmt.Sprintf("DataType(%d)", int32(t))
	}
}
