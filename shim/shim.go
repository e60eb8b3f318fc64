// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package shim re-exposes a narrow subset of the SQLite C interface under
// renamed functions with opaque handles and primitive parameter types.
//
// Every function forwards 1:1 to the corresponding engine call and returns
// its status code unchanged. The package keeps no state of its own beyond
// the engine state the handles refer to: no synchronization, no retries, no
// error translation. Borrowed C strings returned by the engine are copied
// into Go strings before they are handed to the caller, since their validity
// ends with the next step, reset, or finalize on the same statement.
//
// Neither handle type is safe for concurrent use without external
// synchronization.
package shim

import (
	"sync"
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB is an opaque handle to one open database connection (an sqlite3*).
// It is owned by the caller from the point Open succeeds until Close.
type DB struct {
	tls *libc.TLS
	ptr uintptr
}

// Valid reports whether the handle refers to an engine object. The zero DB
// is not valid.
func (db DB) Valid() bool { return db.ptr != 0 }

// Stmt is an opaque handle to one prepared statement (an sqlite3_stmt*).
// Its lifetime is strictly nested within that of the DB it was prepared on:
// it must be finalized before the owning DB is closed.
type Stmt struct {
	tls *libc.TLS
	ptr uintptr
}

// Valid reports whether the handle refers to an engine object. The zero
// Stmt is not valid.
func (stmt Stmt) Valid() bool { return stmt.ptr != 0 }

const ptrSize = types.Size_t(unsafe.Sizeof(uintptr(0)))

var initOnce sync.Once

func initlib(tls *libc.TLS) {
	initOnce.Do(func() {
		sqlite3.Xsqlite3_initialize(tls)
	})
}

// libTLS serves calls that take no handle (version reporting and errstr).
var (
	libTLSOnce sync.Once
	libTLS     *libc.TLS
)

func libTLSGet() *libc.TLS {
	libTLSOnce.Do(func() {
		libTLS = libc.NewTLS()
		initlib(libTLS)
	})
	return libTLS
}

// Open is sqlite3_open_v2.
//
// Like the engine call, it can populate a handle even on failure so that
// diagnostics can be read from it; the caller must Close any non-zero handle
// regardless of the returned code.
//
// https://www.sqlite.org/c3ref/open.html
func Open(path string, flags OpenFlags, vfs string) (DB, ResultCode) {
	tls := libc.NewTLS()
	initlib(tls)

	// C-side allocations are freed explicitly before any tls.Close so that
	// no free ever runs against a closed TLS.
	cpath, err := libc.CString(path)
	if err != nil {
		tls.Close()
		return DB{}, ResultNoMem
	}

	out := malloc(tls, ptrSize)
	if out == 0 {
		libc.Xfree(tls, cpath)
		tls.Close()
		return DB{}, ResultNoMem
	}

	var cvfs uintptr
	if vfs != "" {
		if cvfs, err = libc.CString(vfs); err != nil {
			libc.Xfree(tls, out)
			libc.Xfree(tls, cpath)
			tls.Close()
			return DB{}, ResultNoMem
		}
	}

	rc := ResultCode(sqlite3.Xsqlite3_open_v2(tls, cpath, out, int32(flags), cvfs))
	handle := *(*uintptr)(unsafe.Pointer(out))

	if cvfs != 0 {
		libc.Xfree(tls, cvfs)
	}
	libc.Xfree(tls, out)
	libc.Xfree(tls, cpath)

	if handle == 0 {
		// Not even enough memory for the error-reporting object.
		tls.Close()
		return DB{}, rc
	}
	return DB{tls: tls, ptr: handle}, rc
}

// Close is sqlite3_close. It fails with a busy code while unfinalized
// statements remain on the handle; the handle stays valid in that case.
//
// https://www.sqlite.org/c3ref/close.html
func Close(db DB) ResultCode {
	rc := ResultCode(sqlite3.Xsqlite3_close(db.tls, db.ptr))
	if rc == ResultOK {
		db.tls.Close()
	}
	return rc
}

// Prepare is sqlite3_prepare_v2 with the SQL length passed explicitly.
//
// tail holds the unconsumed remainder of sql when more than one statement
// was given. As with the engine call, a successful return for whitespace or
// comment-only input yields a zero statement handle.
//
// https://www.sqlite.org/c3ref/prepare.html
func Prepare(db DB, sql string) (Stmt, string, ResultCode) {
	csql, err := libc.CString(sql)
	if err != nil {
		return Stmt{}, "", ResultNoMem
	}
	defer libc.Xfree(db.tls, csql)

	stmtPtr := malloc(db.tls, ptrSize)
	if stmtPtr == 0 {
		return Stmt{}, "", ResultNoMem
	}
	defer libc.Xfree(db.tls, stmtPtr)

	tailPtr := malloc(db.tls, ptrSize)
	if tailPtr == 0 {
		return Stmt{}, "", ResultNoMem
	}
	defer libc.Xfree(db.tls, tailPtr)

	rc := ResultCode(sqlite3.Xsqlite3_prepare_v2(db.tls, db.ptr, csql, int32(len(sql)), stmtPtr, tailPtr))

	var tail string
	if ctail := *(*uintptr)(unsafe.Pointer(tailPtr)); ctail != 0 {
		if off := int(ctail - csql); off >= 0 && off <= len(sql) {
			tail = sql[off:]
		}
	}

	handle := *(*uintptr)(unsafe.Pointer(stmtPtr))
	if handle == 0 {
		return Stmt{}, tail, rc
	}
	return Stmt{tls: db.tls, ptr: handle}, tail, rc
}

// Step is sqlite3_step. The returned code distinguishes ResultRow from
// ResultDone from errors; no interpretation happens here.
//
// https://www.sqlite.org/c3ref/step.html
func Step(stmt Stmt) ResultCode {
	return ResultCode(sqlite3.Xsqlite3_step(stmt.tls, stmt.ptr))
}

// ColumnCount is sqlite3_column_count.
//
// https://www.sqlite.org/c3ref/column_count.html
func ColumnCount(stmt Stmt) int {
	return int(sqlite3.Xsqlite3_column_count(stmt.tls, stmt.ptr))
}

// ColumnType is sqlite3_column_type. The result is undefined when col is out
// of range; the engine's behavior applies unfiltered.
//
// https://www.sqlite.org/c3ref/column_blob.html
func ColumnType(stmt Stmt, col int) DataType {
	return DataType(sqlite3.Xsqlite3_column_type(stmt.tls, stmt.ptr, int32(col)))
}

// ColumnName is sqlite3_column_name. The engine's borrowed pointer is copied
// immediately; ok is false when the engine returned a null pointer.
//
// https://www.sqlite.org/c3ref/column_name.html
func ColumnName(stmt Stmt, col int) (name string, ok bool) {
	p := sqlite3.Xsqlite3_column_name(stmt.tls, stmt.ptr, int32(col))
	if p == 0 {
		return "", false
	}
	return libc.GoString(p), true
}

// ColumnText is sqlite3_column_text plus sqlite3_column_bytes for the exact
// length. ok is false when the value is NULL or no text is available.
//
// https://www.sqlite.org/c3ref/column_blob.html
func ColumnText(stmt Stmt, col int) (text string, ok bool) {
	p := sqlite3.Xsqlite3_column_text(stmt.tls, stmt.ptr, int32(col))
	if p == 0 {
		return "", false
	}
	n := int(sqlite3.Xsqlite3_column_bytes(stmt.tls, stmt.ptr, int32(col)))
	return goStringN(p, n), true
}

// Finalize is sqlite3_finalize. The handle is invalid afterwards regardless
// of the returned code.
//
// https://www.sqlite.org/c3ref/finalize.html
func Finalize(stmt Stmt) ResultCode {
	return ResultCode(sqlite3.Xsqlite3_finalize(stmt.tls, stmt.ptr))
}

// Reset is sqlite3_reset. Bound parameter values are retained; use
// ClearBindings to drop them.
//
// https://www.sqlite.org/c3ref/reset.html
func Reset(stmt Stmt) ResultCode {
	return ResultCode(sqlite3.Xsqlite3_reset(stmt.tls, stmt.ptr))
}

// ClearBindings is sqlite3_clear_bindings: all parameters revert to NULL.
//
// https://www.sqlite.org/c3ref/clear_bindings.html
func ClearBindings(stmt Stmt) ResultCode {
	return ResultCode(sqlite3.Xsqlite3_clear_bindings(stmt.tls, stmt.ptr))
}

// Errcode is sqlite3_errcode.
//
// https://www.sqlite.org/c3ref/errcode.html
func Errcode(db DB) ResultCode {
	return ResultCode(sqlite3.Xsqlite3_errcode(db.tls, db.ptr))
}

// ExtendedErrcode is sqlite3_extended_errcode.
//
// https://www.sqlite.org/c3ref/errcode.html
func ExtendedErrcode(db DB) ResultCode {
	return ResultCode(sqlite3.Xsqlite3_extended_errcode(db.tls, db.ptr))
}

// Errmsg is sqlite3_errmsg.
//
// https://www.sqlite.org/c3ref/errcode.html
func Errmsg(db DB) string {
	return libc.GoString(sqlite3.Xsqlite3_errmsg(db.tls, db.ptr))
}

// BusyTimeout is sqlite3_busy_timeout.
//
// https://www.sqlite.org/c3ref/busy_timeout.html
func BusyTimeout(db DB, milliseconds int) ResultCode {
	return ResultCode(sqlite3.Xsqlite3_busy_timeout(db.tls, db.ptr, int32(milliseconds)))
}

// ExtendedResultCodes is sqlite3_extended_result_codes.
//
// https://www.sqlite.org/c3ref/extended_result_codes.html
func ExtendedResultCodes(db DB, on bool) ResultCode {
	return ResultCode(sqlite3.Xsqlite3_extended_result_codes(db.tls, db.ptr, libc.Bool32(on)))
}

// Libversion is sqlite3_libversion.
func Libversion() string {
	return libc.GoString(sqlite3.Xsqlite3_libversion(libTLSGet()))
}

// Sourceid is sqlite3_sourceid.
func Sourceid() string {
	return libc.GoString(sqlite3.Xsqlite3_sourceid(libTLSGet()))
}

// LibversionNumber is sqlite3_libversion_number.
func LibversionNumber() int {
	return int(sqlite3.Xsqlite3_libversion_number(libTLSGet()))
}

// BindText is sqlite3_bind_text. The value is copied into engine-owned
// memory, so the Go string may be reused immediately. Parameter indices
// start at 1.
//
// https://www.sqlite.org/c3ref/bind_blob.html
func BindText(stmt Stmt, param int, value string) ResultCode {
	n := types.Size_t(len(value))
	if n == 0 {
		n = 1
	}
	p := malloc(stmt.tls, n)
	if p == 0 {
		return ResultNoMem
	}
	for i := 0; i < len(value); i++ {
		*(*byte)(unsafe.Pointer(p + uintptr(i))) = value[i]
	}
	// The engine invokes the destructor on the buffer even when the bind
	// fails, so it must not be freed here on any path.
	return ResultCode(sqlite3.Xsqlite3_bind_text(stmt.tls, stmt.ptr, int32(param), p, int32(len(value)), freeFuncPtr))
}

// BindParameterCount is sqlite3_bind_parameter_count.
//
// https://www.sqlite.org/c3ref/bind_parameter_count.html
func BindParameterCount(stmt Stmt) int {
	return int(sqlite3.Xsqlite3_bind_parameter_count(stmt.tls, stmt.ptr))
}

// Changes is sqlite3_changes.
//
// https://www.sqlite.org/c3ref/changes.html
func Changes(db DB) int {
	return int(sqlite3.Xsqlite3_changes(db.tls, db.ptr))
}

// LastInsertRowID is sqlite3_last_insert_rowid.
//
// https://www.sqlite.org/c3ref/last_insert_rowid.html
func LastInsertRowID(db DB) int64 {
	return sqlite3.Xsqlite3_last_insert_rowid(db.tls, db.ptr)
}

// SQL is sqlite3_sql: the text the statement was prepared from.
//
// https://www.sqlite.org/c3ref/expanded_sql.html
func SQL(stmt Stmt) string {
	return libc.GoString(sqlite3.Xsqlite3_sql(stmt.tls, stmt.ptr))
}

func malloc(tls *libc.TLS, n types.Size_t) uintptr {
	return libc.Xmalloc(tls, n)
}

func goStringN(s uintptr, n int) string {
	if s == 0 || n == 0 {
		return ""
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(s)), n)
	return string(b)
}

var freeFuncPtr = cFuncPointer(libc.Xfree)

// cFuncPointer converts a function defined by a function declaration to a C
// pointer. The result of using cFuncPointer on closures is undefined.
func cFuncPointer[T any](f T) uintptr {
	// This assumes the memory representation described in
	// https://golang.org/s/go11func.
	return *(*uintptr)(unsafe.Pointer(&struct{ f T }{f}))
}
