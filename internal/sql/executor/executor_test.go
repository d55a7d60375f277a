package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeDataFile(t *testing.T, dir string, lines string) string {
	t.Helper()
	path := filepath.Join(dir, "data.tbl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestExecSQL_LoadThenSelectStar(t *testing.T) {
	dir := t.TempDir()
	path := writeDataFile(t, dir, "1, 'one'\n2, 'two'\n3, 'three'\n")

	ex := NewExecutor(dir)
	defer ex.Close()

	res, err := ex.ExecSQL(`LOAD foo FROM '` + path + `' WITH INDEX`)
	require.NoError(t, err)
	require.EqualValues(t, 3, res.AffectedRows)

	res, err = ex.ExecSQL(`SELECT * FROM foo`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
}

func TestExecSQL_SelectWithKeyRangeUsesIndex(t *testing.T) {
	dir := t.TempDir()
	path := writeDataFile(t, dir, "1, 'a'\n2, 'b'\n3, 'c'\n4, 'd'\n5, 'e'\n")

	ex := NewExecutor(dir)
	defer ex.Close()

	_, err := ex.ExecSQL(`LOAD foo FROM '` + path + `' WITH INDEX`)
	require.NoError(t, err)

	res, err := ex.ExecSQL(`SELECT key FROM foo WHERE key >= 2 AND key < 4`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	require.EqualValues(t, 2, res.Rows[0][0])
	require.EqualValues(t, 3, res.Rows[1][0])
}

func TestExecSQL_SelectEqualityPointLookup(t *testing.T) {
	dir := t.TempDir()
	path := writeDataFile(t, dir, "10, 'ten'\n20, 'twenty'\n")

	ex := NewExecutor(dir)
	defer ex.Close()

	_, err := ex.ExecSQL(`LOAD foo FROM '` + path + `' WITH INDEX`)
	require.NoError(t, err)

	res, err := ex.ExecSQL(`SELECT value FROM foo WHERE key = 20`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.Equal(t, "twenty", res.Rows[0][0])
}

func TestExecSQL_SelectCountStar(t *testing.T) {
	dir := t.TempDir()
	path := writeDataFile(t, dir, "1, 'a'\n2, 'b'\n3, 'c'\n")

	ex := NewExecutor(dir)
	defer ex.Close()

	_, err := ex.ExecSQL(`LOAD foo FROM '` + path + `'`)
	require.NoError(t, err)

	res, err := ex.ExecSQL(`SELECT count(*) FROM foo`)
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Rows[0][0])
}

func TestExecSQL_SelectWithoutIndexFallsBackToScan(t *testing.T) {
	dir := t.TempDir()
	path := writeDataFile(t, dir, "1, 'a'\n2, 'b'\n")

	ex := NewExecutor(dir)
	defer ex.Close()

	// No WITH INDEX: the table has no index handle.
	_, err := ex.ExecSQL(`LOAD foo FROM '` + path + `'`)
	require.NoError(t, err)

	res, err := ex.ExecSQL(`SELECT * FROM foo WHERE key = 2`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	require.EqualValues(t, 2, res.Rows[0][0])
}

func TestExecSQL_UpperBoundOnlyIncludesNegativeKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeDataFile(t, dir, "-3, 'neg'\n-1, 'neg2'\n0, 'zero'\n4, 'pos'\n")

	ex := NewExecutor(dir)
	defer ex.Close()

	_, err := ex.ExecSQL(`LOAD foo FROM '` + path + `' WITH INDEX`)
	require.NoError(t, err)

	res, err := ex.ExecSQL(`SELECT key FROM foo WHERE key < 1`)
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	require.EqualValues(t, -3, res.Rows[0][0])
	require.EqualValues(t, -1, res.Rows[1][0])
	require.EqualValues(t, 0, res.Rows[2][0])
}

func TestExecSQL_UnsatisfiableRangeReturnsZeroRows(t *testing.T) {
	dir := t.TempDir()
	path := writeDataFile(t, dir, "1, 'a'\n2, 'b'\n")

	ex := NewExecutor(dir)
	defer ex.Close()

	_, err := ex.ExecSQL(`LOAD foo FROM '` + path + `' WITH INDEX`)
	require.NoError(t, err)

	res, err := ex.ExecSQL(`SELECT * FROM foo WHERE key > 10 AND key < 5`)
	require.NoError(t, err)
	require.Empty(t, res.Rows)
}

func TestExecSQL_TreeDump(t *testing.T) {
	dir := t.TempDir()
	path := writeDataFile(t, dir, "1, 'a'\n2, 'b'\n")

	ex := NewExecutor(dir)
	defer ex.Close()

	_, err := ex.ExecSQL(`LOAD foo FROM '` + path + `' WITH INDEX`)
	require.NoError(t, err)

	res, err := ex.ExecSQL(`\tree foo`)
	require.NoError(t, err)
	require.Contains(t, res.Message, "leaf")
}

func TestExecSQL_SelectUnknownTable(t *testing.T) {
	ex := NewExecutor(t.TempDir())
	defer ex.Close()

	_, err := ex.ExecSQL(`SELECT * FROM missing`)
	require.Error(t, err)
}
