package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bptreeidx/engine/internal/btree"
	"github.com/bptreeidx/engine/internal/heap"
	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/bptreeidx/engine/internal/page"
)

func openTable(t *testing.T, dir string) *heap.Table {
	t.Helper()
	store, err := page.Open(filepath.Join(dir, "t.heap"), page.ReadWrite)
	require.NoError(t, err)
	tbl, err := heap.Open(store)
	require.NoError(t, err)
	return tbl
}

func TestLoad_SkipsMalformedLinesButLoadsRest(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.tbl")
	require.NoError(t, os.WriteFile(dataPath, []byte(
		"1, 'one'\n"+
			"not a row\n"+
			"2, 'two'\n"+
			"\n",
	), 0o644))

	tbl := openTable(t, dir)
	defer tbl.Close()

	res, err := Load(tbl, nil, dataPath)
	require.NoError(t, err)
	require.Equal(t, 2, res.Loaded)
	require.Equal(t, 1, res.Skipped)
}

func TestLoad_WithIndexInsertsKeys(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.tbl")
	require.NoError(t, os.WriteFile(dataPath, []byte("5, 'five'\n3, 'three'\n"), 0o644))

	tbl := openTable(t, dir)
	defer tbl.Close()

	tree, err := btree.Open(filepath.Join(dir, "t.idx"), page.ReadWrite)
	require.NoError(t, err)
	defer tree.Close()

	res, err := Load(tbl, tree, dataPath)
	require.NoError(t, err)
	require.Equal(t, 2, res.Loaded)

	cur, err := tree.Locate(3)
	require.NoError(t, err)
	key, _, _, err := tree.ReadForward(cur)
	require.NoError(t, err)
	require.EqualValues(t, 3, key)
}

func TestLoad_WhollyMalformedFileIsInvalidFormat(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.tbl")
	require.NoError(t, os.WriteFile(dataPath, []byte("garbage\nmore garbage\n"), 0o644))

	tbl := openTable(t, dir)
	defer tbl.Close()

	_, err := Load(tbl, nil, dataPath)
	require.ErrorIs(t, err, ierrors.ErrInvalidFileFormat)
}
