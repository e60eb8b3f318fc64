// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package shim

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, path string) DB {
	t.Helper()

	db, rc := Open(path, OpenReadWrite|OpenCreate, "")
	require.Equal(t, ResultOK, rc)
	require.True(t, db.Valid())

	t.Cleanup(func() {
		Close(db)
	})
	return db
}

// mustExec prepares and runs a single statement to completion.
func mustExec(t *testing.T, db DB, sql string) {
	t.Helper()

	stmt, _, rc := Prepare(db, sql)
	require.Equal(t, ResultOK, rc)
	require.Equal(t, ResultDone, Step(stmt).Primary())
	require.Equal(t, ResultOK, Finalize(stmt))
}

func TestOpen(t *testing.T) {
	t.Run("file database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.db")
		db, rc := Open(path, OpenReadWrite|OpenCreate, "")
		require.Equal(t, ResultOK, rc)
		require.True(t, db.Valid())
		require.Equal(t, ResultOK, Close(db))
	})

	t.Run("in-memory database", func(t *testing.T) {
		db, rc := Open(":memory:", OpenReadWrite|OpenCreate, "")
		require.Equal(t, ResultOK, rc)
		require.True(t, db.Valid())
		require.Equal(t, ResultOK, Close(db))
	})

	t.Run("invalid path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "no", "such", "dir", "test.db")
		db, rc := Open(path, OpenReadWrite|OpenCreate, "")
		require.NotEqual(t, ResultOK, rc)
		require.Equal(t, ResultCantOpen, rc.Primary())
		if db.Valid() {
			Close(db)
		}
	})

	t.Run("missing file without create flag", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.db")
		db, rc := Open(path, OpenReadWrite, "")
		require.NotEqual(t, ResultOK, rc)
		if db.Valid() {
			Close(db)
		}
	})
}

func TestPrepare(t *testing.T) {
	db := openTestDB(t, ":memory:")

	t.Run("valid statement", func(t *testing.T) {
		stmt, tail, rc := Prepare(db, "SELECT 1")
		require.Equal(t, ResultOK, rc)
		require.True(t, stmt.Valid())
		require.Empty(t, tail)
		require.Equal(t, "SELECT 1", SQL(stmt))
		require.Equal(t, ResultOK, Finalize(stmt))
	})

	t.Run("invalid statement", func(t *testing.T) {
		stmt, _, rc := Prepare(db, "NOT VALID SQL")
		require.NotEqual(t, ResultOK, rc)
		require.False(t, stmt.Valid())
		require.NotEqual(t, ResultOK, Errcode(db))
		require.NotEqual(t, ResultOK, ExtendedErrcode(db))
		require.NotEmpty(t, Errmsg(db))
	})

	t.Run("tail past first statement", func(t *testing.T) {
		stmt, tail, rc := Prepare(db, "SELECT 1; SELECT 2")
		require.Equal(t, ResultOK, rc)
		require.True(t, stmt.Valid())
		require.Equal(t, "SELECT 2", strings.TrimSpace(tail))
		require.Equal(t, ResultOK, Finalize(stmt))
	})

	t.Run("whitespace only", func(t *testing.T) {
		stmt, _, rc := Prepare(db, "  -- just a comment\n")
		require.Equal(t, ResultOK, rc)
		require.False(t, stmt.Valid())
	})
}

func TestStepSelectOne(t *testing.T) {
	db := openTestDB(t, ":memory:")

	stmt, _, rc := Prepare(db, "SELECT 1")
	require.Equal(t, ResultOK, rc)
	defer Finalize(stmt)

	require.Equal(t, ResultRow, Step(stmt).Primary())
	require.Equal(t, 1, ColumnCount(stmt))

	name, ok := ColumnName(stmt, 0)
	require.True(t, ok)
	require.Equal(t, "1", name)

	require.Equal(t, TypeInteger, ColumnType(stmt, 0))

	text, ok := ColumnText(stmt, 0)
	require.True(t, ok)
	require.Equal(t, "1", text)

	require.Equal(t, ResultDone, Step(stmt).Primary())
}

func TestReset(t *testing.T) {
	db := openTestDB(t, ":memory:")

	mustExec(t, db, "CREATE TABLE t (x INTEGER)")
	mustExec(t, db, "INSERT INTO t VALUES (1), (2), (3)")

	stmt, _, rc := Prepare(db, "SELECT x FROM t ORDER BY x")
	require.Equal(t, ResultOK, rc)
	defer Finalize(stmt)

	collect := func() []string {
		var got []string
		for Step(stmt).Primary() == ResultRow {
			text, ok := ColumnText(stmt, 0)
			require.True(t, ok)
			got = append(got, text)
		}
		return got
	}

	first := collect()
	require.Equal(t, []string{"1", "2", "3"}, first)

	// Rewinding without re-preparing re-enumerates identically.
	require.Equal(t, ResultOK, Reset(stmt))
	require.Equal(t, first, collect())
}

func TestBindText(t *testing.T) {
	db := openTestDB(t, ":memory:")

	stmt, _, rc := Prepare(db, "SELECT ?")
	require.Equal(t, ResultOK, rc)
	defer Finalize(stmt)

	require.Equal(t, 1, BindParameterCount(stmt))
	require.Equal(t, ResultOK, BindText(stmt, 1, "hello"))

	require.Equal(t, ResultRow, Step(stmt).Primary())
	text, ok := ColumnText(stmt, 0)
	require.True(t, ok)
	require.Equal(t, "hello", text)
	require.Equal(t, ResultDone, Step(stmt).Primary())

	// Reset preserves bindings.
	require.Equal(t, ResultOK, Reset(stmt))
	require.Equal(t, ResultRow, Step(stmt).Primary())
	text, ok = ColumnText(stmt, 0)
	require.True(t, ok)
	require.Equal(t, "hello", text)
}

func TestBindTextOutOfRange(t *testing.T) {
	db, rc := Open(":memory:", OpenReadWrite|OpenCreate, "")
	require.Equal(t, ResultOK, rc)

	stmt, _, rc := Prepare(db, "SELECT ?")
	require.Equal(t, ResultOK, rc)

	// The engine frees the copied value through the destructor even when
	// the bind fails; the statement and connection stay fully usable.
	require.Equal(t, ResultRange, BindText(stmt, 2, "oops"))

	require.Equal(t, ResultOK, BindText(stmt, 1, "ok"))
	require.Equal(t, ResultRow, Step(stmt).Primary())
	text, ok := ColumnText(stmt, 0)
	require.True(t, ok)
	require.Equal(t, "ok", text)

	require.Equal(t, ResultOK, Finalize(stmt))
	require.Equal(t, ResultOK, Close(db))
}

func TestClearBindings(t *testing.T) {
	db := openTestDB(t, ":memory:")

	stmt, _, rc := Prepare(db, "SELECT ?")
	require.Equal(t, ResultOK, rc)
	defer Finalize(stmt)

	require.Equal(t, ResultOK, BindText(stmt, 1, "bound"))
	require.Equal(t, ResultRow, Step(stmt).Primary())

	require.Equal(t, ResultOK, Reset(stmt))
	require.Equal(t, ResultOK, ClearBindings(stmt))

	// All parameters are NULL after clearing.
	require.Equal(t, ResultRow, Step(stmt).Primary())
	require.Equal(t, TypeNull, ColumnType(stmt, 0))
	_, ok := ColumnText(stmt, 0)
	require.False(t, ok)
}

func TestCloseWithBusyStatement(t *testing.T) {
	db, rc := Open(":memory:", OpenReadWrite|OpenCreate, "")
	require.Equal(t, ResultOK, rc)

	stmt, _, rc := Prepare(db, "SELECT 1")
	require.Equal(t, ResultOK, rc)

	// Close must refuse while an unfinalized statement remains.
	require.NotEqual(t, ResultOK, Close(db))

	require.Equal(t, ResultOK, Finalize(stmt))
	require.Equal(t, ResultOK, Close(db))
}

func TestChangesAndLastInsertRowID(t *testing.T) {
	db := openTestDB(t, ":memory:")

	mustExec(t, db, "CREATE TABLE t (x INTEGER)")
	mustExec(t, db, "INSERT INTO t VALUES (10), (20)")

	require.Equal(t, 2, Changes(db))
	require.Equal(t, int64(2), LastInsertRowID(db))
}

func TestBusyTimeout(t *testing.T) {
	db := openTestDB(t, ":memory:")
	require.Equal(t, ResultOK, BusyTimeout(db, 500))
	require.Equal(t, ResultOK, BusyTimeout(db, 0))
}

func TestExtendedResultCodes(t *testing.T) {
	db := openTestDB(t, ":memory:")
	require.Equal(t, ResultOK, ExtendedResultCodes(db, true))

	mustExec(t, db, "CREATE TABLE t (x INTEGER PRIMARY KEY)")
	mustExec(t, db, "INSERT INTO t VALUES (1)")

	stmt, _, rc := Prepare(db, "INSERT INTO t VALUES (1)")
	require.Equal(t, ResultOK, rc)
	defer Finalize(stmt)

	step := Step(stmt)
	require.NotEqual(t, ResultOK, step.Primary())
	// Extended codes carry detail past the primary byte.
	require.NotEqual(t, ExtendedErrcode(db), ExtendedErrcode(db).Primary())
}

func TestVersion(t *testing.T) {
	version := Libversion()
	number := LibversionNumber()
	sourceID := Sourceid()

	require.NotEmpty(t, version)
	require.Positive(t, number)
	require.NotEmpty(t, sourceID)

	// Static build identification is stable across calls.
	require.Equal(t, version, Libversion())
	require.Equal(t, number, LibversionNumber())
	require.Equal(t, sourceID, Sourceid())
}

func TestResultCodeString(t *testing.T) {
	require.NotEmpty(t, ResultOK.String())
	require.NotEmpty(t, ResultBusy.String())
	require.Equal(t, ResultBusy, (ResultBusy | 0x100).Primary())
}

func TestDataTypeString(t *testing.T) {
	require.Equal(t, "INTEGER", TypeInteger.String())
	require.Equal(t, "NULL", TypeNull.String())
	require.Contains(t, DataType(99).String(), "99")
}
