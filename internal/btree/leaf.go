package btree

import (
	"encoding/binary"
	"log/slog"

	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/bptreeidx/engine/internal/page"
)

// LeafPage wraps a page-sized buffer laid out as:
//
//	[0..4)                       count n       (0 <= n <= LMax)
//	[4 + 12*i .. 4 + 12*(i+1))   entry i: pid | sid | key
//	[page.Size-4 .. page.Size)   next_leaf_pid
//
// Leaf and internal nodes share no behavioral contract beyond "serialize to
// a page", so LeafPage and InternalPage are distinct types rather than
// variants of one node interface.
type LeafPage struct {
	Buf []byte
}

const leafHeaderSize = 4

// NewLeafPage returns an empty leaf page with next_leaf_pid set to
// page.NoPage.
func NewLeafPage() *LeafPage {
	l := &LeafPage{Buf: page.GetBuf()}
	l.SetNextLeafPID(page.NoPage)
	return l
}

// LoadLeafPage wraps an existing buffer (read from the page store) as a
// leaf page without copying or validating beyond what callers read.
func LoadLeafPage(buf []byte) *LeafPage {
	return &LeafPage{Buf: buf}
}

// Release returns the underlying buffer to the shared pool. Callers must
// not use the LeafPage afterward.
func (l *LeafPage) Release() {
	page.PutBuf(l.Buf)
	l.Buf = nil
}

// Count returns the number of entries currently stored.
func (l *LeafPage) Count() int32 {
	return int32(binary.LittleEndian.Uint32(l.Buf[0:4]))
}

func (l *LeafPage) setCount(n int32) {
	binary.LittleEndian.PutUint32(l.Buf[0:4], uint32(n))
}

func entryOffset(i int32) int {
	return leafHeaderSize + int(i)*LeafEntrySize
}

// NextLeafPID returns the forward sibling pointer, page.NoPage if this is
// the last leaf.
func (l *LeafPage) NextLeafPID() int32 {
	return int32(binary.LittleEndian.Uint32(l.Buf[page.Size-4 : page.Size]))
}

// SetNextLeafPID sets the forward sibling pointer.
func (l *LeafPage) SetNextLeafPID(pid int32) {
	binary.LittleEndian.PutUint32(l.Buf[page.Size-4:page.Size], uint32(pid))
}

// ReadEntry returns the (key, locator) pair at index, failing with
// NoSuchRecord if index is outside [0, count).
func (l *LeafPage) ReadEntry(index int32) (Key, Locator, error) {
	n := l.Count()
	if index < 0 || index >= n {
		return 0, Locator{}, ierrors.ErrNoSuchRecord
	}
	key, loc := decodeLeafEntry(l.Buf[entryOffset(index) : entryOffset(index)+LeafEntrySize])
	return key, loc, nil
}

// KeyAt returns the key at index without bounds checking; callers must
// already know 0 <= index < Count().
func (l *LeafPage) KeyAt(index int32) Key {
	key, _ := decodeLeafEntry(l.Buf[entryOffset(index) : entryOffset(index)+LeafEntrySize])
	return key
}

// Locate returns the smallest index i with entries[i].key >= searchKey.
// Fails with NoSuchRecord if searchKey is greater than every key present.
func (l *LeafPage) Locate(searchKey Key) (int32, error) {
	n := l.Count()
	i := l.lowerBound(searchKey, n)
	if i == n {
		return 0, ierrors.ErrNoSuchRecord
	}
	return i, nil
}

// lowerBound returns the smallest index in [0, n) with key >= searchKey, or
// n if no such index exists.
func (l *LeafPage) lowerBound(searchKey Key, n int32) int32 {
	lo, hi := int32(0), n
	for lo < hi {
		mid := (lo + hi) / 2
		if l.KeyAt(mid) >= searchKey {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// Insert places (key, loc) in sorted position, shifting later entries
// right. Fails with NodeFull iff the page already holds LMax entries.
func (l *LeafPage) Insert(key Key, loc Locator) error {
	n := l.Count()
	if n == LMax {
		return ierrors.ErrNodeFull
	}
	i := l.lowerBound(key, n)
	if i < n {
		src := l.Buf[entryOffset(i):entryOffset(n)]
		dst := l.Buf[entryOffset(i+1) : entryOffset(n+1)]
		copy(dst, src)
	}
	encodeLeafEntry(l.Buf[entryOffset(i):entryOffset(i)+LeafEntrySize], key, loc)
	l.setCount(n + 1)
	return nil
}

// InsertAndSplit inserts (key, loc) into a logically LMax+1-entry sequence
// and partitions it: the receiver keeps the first ceil((LMax+1)/2) entries,
// sibling (which must be empty) receives the remainder. Returns the first
// key now in sibling. The caller owns page-id assignment and next_leaf_pid
// bookkeeping on both pages.
func (l *LeafPage) InsertAndSplit(key Key, loc Locator, sibling *LeafPage) (Key, error) {
	n := l.Count()
	if n != LMax {
		return 0, ierrors.ErrNodeFull
	}

	type kv struct {
		key Key
		loc Locator
	}
	merged := make([]kv, 0, LMax+1)
	i := l.lowerBound(key, n)
	for j := int32(0); j < i; j++ {
		k, v, _ := l.ReadEntry(j)
		merged = append(merged, kv{k, v})
	}
	merged = append(merged, kv{key, loc})
	for j := i; j < n; j++ {
		k, v, _ := l.ReadEntry(j)
		merged = append(merged, kv{k, v})
	}

	leftCount := (len(merged) + 1) / 2 // ceil((LMax+1)/2)
	for idx, e := range merged[:leftCount] {
		encodeLeafEntry(l.Buf[entryOffset(int32(idx)):entryOffset(int32(idx))+LeafEntrySize], e.key, e.loc)
	}
	l.setCount(int32(leftCount))

	rightEntries := merged[leftCount:]
	for idx, e := range rightEntries {
		encodeLeafEntry(sibling.Buf[entryOffset(int32(idx)):entryOffset(int32(idx))+LeafEntrySize], e.key, e.loc)
	}
	sibling.setCount(int32(len(rightEntries)))

	slog.Debug("btree: leaf split", "leftCount", leftCount, "rightCount", len(rightEntries), "firstRightKey", rightEntries[0].key)
	return rightEntries[0].key, nil
}
