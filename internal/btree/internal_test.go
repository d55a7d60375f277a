package btree

import (
	"testing"

	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/stretchr/testify/require"
)

func TestInternalPageInitializeAsRoot(t *testing.T) {
	p := NewInternalPage()
	defer p.Release()
	p.InitializeAsRoot(1, 100, 2)

	require.EqualValues(t, 1, p.Count())
	require.EqualValues(t, 1, p.Child0())
	require.Equal(t, Key(100), p.KeyAt(0))
	require.EqualValues(t, 2, p.ChildAt(1))
}

func TestInternalPageLocateChild(t *testing.T) {
	p := NewInternalPage()
	defer p.Release()
	p.SetChild0(10)
	require.NoError(t, p.Insert(100, 20))
	require.NoError(t, p.Insert(200, 30))

	require.EqualValues(t, 10, p.LocateChild(50))
	require.EqualValues(t, 20, p.LocateChild(100))
	require.EqualValues(t, 20, p.LocateChild(150))
	require.EqualValues(t, 30, p.LocateChild(200))
	require.EqualValues(t, 30, p.LocateChild(500))
}

func TestInternalPageFullReturnsNodeFull(t *testing.T) {
	p := NewInternalPage()
	defer p.Release()
	for i := int32(0); i < IMax; i++ {
		require.NoError(t, p.Insert(i, i+1))
	}
	require.ErrorIs(t, p.Insert(IMax, IMax+1), ierrors.ErrNodeFull)
}

// TestInternalPageSplitPartition pins the exact partition required by
// the internal split median-share decision: left keeps floor((IMax+1)/2)
// keys, the median is promoted and removed from both sides, and the
// sibling's Child0 is the child that was paired with the median key.
func TestInternalPageSplitPartition(t *testing.T) {
	p := NewInternalPage()
	defer p.Release()
	p.SetChild0(0)
	for i := int32(0); i < IMax; i++ {
		require.NoError(t, p.Insert(Key(i+1)*10, i+1))
	}

	sibling := NewInternalPage()
	defer sibling.Release()

	newKey := Key(IMax+1) * 10
	midKey, err := p.InsertAndSplit(newKey, IMax+1, sibling)
	require.NoError(t, err)

	wantLeftCount := (IMax + 1) / 2
	wantRightCount := IMax - wantLeftCount
	require.EqualValues(t, wantLeftCount, p.Count())
	require.EqualValues(t, wantRightCount, sibling.Count())

	wantMidKey := Key(wantLeftCount+1) * 10
	require.Equal(t, wantMidKey, midKey)

	// Every key retained on the left is < midKey; every key retained on
	// the right is > midKey (the median itself was removed from both).
	for i := int32(0); i < p.Count(); i++ {
		require.Less(t, p.KeyAt(i), midKey)
	}
	for i := int32(0); i < sibling.Count(); i++ {
		require.Greater(t, sibling.KeyAt(i), midKey)
	}

	// sibling's Child0 is the child that was paired with the promoted key.
	require.EqualValues(t, wantLeftCount+1, sibling.Child0())
}
