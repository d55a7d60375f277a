package btree

import (
	"testing"

	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/bptreeidx/engine/internal/page"
	"github.com/stretchr/testify/require"
)

func TestLeafPageInsertKeepsOrder(t *testing.T) {
	l := NewLeafPage()
	defer l.Release()

	for _, k := range []Key{5, 1, 3, 2, 4} {
		require.NoError(t, l.Insert(k, Locator{PageID: 0, SlotID: int32(k)}))
	}
	require.EqualValues(t, 5, l.Count())
	for i := int32(0); i < 5; i++ {
		require.Equal(t, Key(i+1), l.KeyAt(i))
	}
}

func TestLeafPageFullReturnsNodeFull(t *testing.T) {
	l := NewLeafPage()
	defer l.Release()
	for i := int32(0); i < LMax; i++ {
		require.NoError(t, l.Insert(i, Locator{PageID: 0, SlotID: i}))
	}
	require.ErrorIs(t, l.Insert(LMax, Locator{}), ierrors.ErrNodeFull)
}

func TestLeafPageLocate(t *testing.T) {
	l := NewLeafPage()
	defer l.Release()
	for _, k := range []Key{10, 20, 30} {
		require.NoError(t, l.Insert(k, Locator{PageID: 0, SlotID: k}))
	}

	idx, err := l.Locate(20)
	require.NoError(t, err)
	require.EqualValues(t, 1, idx)

	idx, err = l.Locate(15)
	require.NoError(t, err)
	require.EqualValues(t, 1, idx)

	_, err = l.Locate(31)
	require.ErrorIs(t, err, ierrors.ErrNoSuchRecord)
}

func TestLeafPageNextLeafPIDDefaultsToNoPage(t *testing.T) {
	l := NewLeafPage()
	defer l.Release()
	require.Equal(t, page.NoPage, l.NextLeafPID())
	l.SetNextLeafPID(7)
	require.EqualValues(t, 7, l.NextLeafPID())
}

func TestLeafPageInsertAndSplit(t *testing.T) {
	l := NewLeafPage()
	defer l.Release()
	for i := int32(0); i < LMax; i++ {
		require.NoError(t, l.Insert(i, Locator{PageID: 0, SlotID: i}))
	}

	sibling := NewLeafPage()
	defer sibling.Release()

	firstRightKey, err := l.InsertAndSplit(LMax, Locator{PageID: 0, SlotID: LMax}, sibling)
	require.NoError(t, err)

	total := l.Count() + sibling.Count()
	require.EqualValues(t, LMax+1, total)

	leftCount := (LMax + 1 + 1) / 2
	require.EqualValues(t, leftCount, l.Count())
	require.Equal(t, l.KeyAt(l.Count()-1)+1, firstRightKey)
	require.Equal(t, sibling.KeyAt(0), firstRightKey)

	for i := int32(1); i < l.Count(); i++ {
		require.Less(t, l.KeyAt(i-1), l.KeyAt(i))
	}
	for i := int32(1); i < sibling.Count(); i++ {
		require.Less(t, sibling.KeyAt(i-1), sibling.KeyAt(i))
	}
	require.Less(t, l.KeyAt(l.Count()-1), sibling.KeyAt(0))
}

func TestLeafPageReadEntryOutOfRange(t *testing.T) {
	l := NewLeafPage()
	defer l.Release()
	require.NoError(t, l.Insert(1, Locator{}))
	_, _, err := l.ReadEntry(1)
	require.ErrorIs(t, err, ierrors.ErrNoSuchRecord)
	_, _, err = l.ReadEntry(-1)
	require.ErrorIs(t, err, ierrors.ErrNoSuchRecord)
}
