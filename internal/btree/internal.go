package btree

import (
	"encoding/binary"
	"log/slog"

	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/bptreeidx/engine/internal/page"
)

// InternalPage wraps a page-sized buffer laid out as:
//
//	[0..4)                count n     (0 <= n <= IMax)
//	[4..8)                child_0
//	[8 + 8*i .. 16 + 8*i)  pair i: key_{i+1} | child_{i+1}
type InternalPage struct {
	Buf []byte
}

const internalHeaderSize = 8 // count + child0

// NewInternalPage returns an empty internal page (count 0, child0 unset).
func NewInternalPage() *InternalPage {
	return &InternalPage{Buf: page.GetBuf()}
}

// LoadInternalPage wraps an existing buffer as an internal page.
func LoadInternalPage(buf []byte) *InternalPage {
	return &InternalPage{Buf: buf}
}

// Release returns the underlying buffer to the shared pool.
func (p *InternalPage) Release() {
	page.PutBuf(p.Buf)
	p.Buf = nil
}

// Count returns the number of keys currently stored.
func (p *InternalPage) Count() int32 {
	return int32(binary.LittleEndian.Uint32(p.Buf[0:4]))
}

func (p *InternalPage) setCount(n int32) {
	binary.LittleEndian.PutUint32(p.Buf[0:4], uint32(n))
}

// Child0 returns the leading child pointer.
func (p *InternalPage) Child0() int32 {
	return int32(binary.LittleEndian.Uint32(p.Buf[4:8]))
}

// SetChild0 sets the leading child pointer.
func (p *InternalPage) SetChild0(pid int32) {
	binary.LittleEndian.PutUint32(p.Buf[4:8], uint32(pid))
}

func internalPairOffset(i int32) int {
	return internalHeaderSize + int(i)*InternalEntrySize
}

// KeyAt returns key_{i+1} for i in [0, Count()).
func (p *InternalPage) KeyAt(i int32) Key {
	key, _ := decodeInternalEntry(p.Buf[internalPairOffset(i) : internalPairOffset(i)+InternalEntrySize])
	return key
}

// ChildAt returns child_i for i in [0, Count()]; ChildAt(0) is Child0().
func (p *InternalPage) ChildAt(i int32) int32 {
	if i == 0 {
		return p.Child0()
	}
	_, child := decodeInternalEntry(p.Buf[internalPairOffset(i-1) : internalPairOffset(i-1)+InternalEntrySize])
	return child
}

// LocateChild returns child_i where i is the largest index in [0, n] with
// key_i <= searchKey (key_0 treated as -infinity). Never fails.
func (p *InternalPage) LocateChild(searchKey Key) int32 {
	n := p.Count()
	i := int32(0)
	for i < n && p.KeyAt(i) <= searchKey {
		i++
	}
	return p.ChildAt(i)
}

// Insert places (key, childPID) so childPID becomes the child immediately
// to the right of key. Fails with NodeFull iff the page already holds IMax
// keys. Equal keys place the new pair to the right of existing equal keys.
func (p *InternalPage) Insert(key Key, childPID int32) error {
	n := p.Count()
	if n == IMax {
		return ierrors.ErrNodeFull
	}
	i := int32(0)
	for i < n && p.KeyAt(i) <= key {
		i++
	}
	if i < n {
		src := p.Buf[internalPairOffset(i):internalPairOffset(n)]
		dst := p.Buf[internalPairOffset(i+1) : internalPairOffset(n+1)]
		copy(dst, src)
	}
	encodeInternalEntry(p.Buf[internalPairOffset(i):internalPairOffset(i)+InternalEntrySize], key, childPID)
	p.setCount(n + 1)
	return nil
}

// InsertAndSplit inserts (key, childPID) into a logical IMax+1-pair
// sequence, promotes and removes the median key, and partitions the rest:
// the receiver keeps the floor((IMax+1)/2) keys left of the median;
// sibling (which must be empty) receives the remainder and adopts the
// median's former right child as its Child0.
func (p *InternalPage) InsertAndSplit(key Key, childPID int32, sibling *InternalPage) (Key, error) {
	n := p.Count()
	if n != IMax {
		return 0, ierrors.ErrNodeFull
	}

	type kv struct {
		key   Key
		child int32
	}
	mergedKeys := make([]kv, 0, IMax+1)
	i := int32(0)
	for i < n && p.KeyAt(i) <= key {
		i++
	}
	for j := int32(0); j < i; j++ {
		mergedKeys = append(mergedKeys, kv{p.KeyAt(j), p.ChildAt(j + 1)})
	}
	mergedKeys = append(mergedKeys, kv{key, childPID})
	for j := i; j < n; j++ {
		mergedKeys = append(mergedKeys, kv{p.KeyAt(j), p.ChildAt(j + 1)})
	}

	children := make([]int32, 0, IMax+2)
	children = append(children, p.Child0())
	for j := int32(0); j < i; j++ {
		children = append(children, p.ChildAt(j+1))
	}
	children = append(children, childPID)
	for j := i; j < n; j++ {
		children = append(children, p.ChildAt(j+1))
	}

	leftKeyCount := (len(mergedKeys) + 1) / 2 // floor((IMax+1)/2)
	medianKey := mergedKeys[leftKeyCount].key

	p.SetChild0(children[0])
	for idx := 0; idx < leftKeyCount; idx++ {
		encodeInternalEntry(p.Buf[internalPairOffset(int32(idx)):internalPairOffset(int32(idx))+InternalEntrySize], mergedKeys[idx].key, children[idx+1])
	}
	p.setCount(int32(leftKeyCount))

	sibling.SetChild0(children[leftKeyCount+1])
	rightKeys := mergedKeys[leftKeyCount+1:]
	for idx, e := range rightKeys {
		encodeInternalEntry(sibling.Buf[internalPairOffset(int32(idx)):internalPairOffset(int32(idx))+InternalEntrySize], e.key, children[leftKeyCount+2+idx])
	}
	sibling.setCount(int32(len(rightKeys)))

	slog.Debug("btree: internal split", "leftCount", leftKeyCount, "rightCount", len(rightKeys), "midKey", medianKey)
	return medianKey, nil
}

// InitializeAsRoot sets this page to a fresh root with one key: count=1,
// child0=leftPID, key1=key, child1=rightPID.
func (p *InternalPage) InitializeAsRoot(leftPID int32, key Key, rightPID int32) {
	p.SetChild0(leftPID)
	encodeInternalEntry(p.Buf[internalPairOffset(0):internalPairOffset(0)+InternalEntrySize], key, rightPID)
	p.setCount(1)
}
