// Package heap implements the record file external collaborator: an
// append-only heap of (i32 key, string value) tuples addressed by an
// opaque (page_id, slot_id) locator, built on the same page store the
// index uses.
package heap

import (
	"encoding/binary"
	"errors"

	"github.com/bptreeidx/engine/internal/page"
)

// ErrNoSpace signals a heap page cannot fit one more tuple; the table
// allocates a fresh page and retries.
var ErrNoSpace = errors.New("heap: page has no space for tuple")

// ErrBadSlot signals an out-of-range slot id within a heap page.
var ErrBadSlot = errors.New("heap: slot id out of range")

// slotted page layout:
//
//	[0:2)  slot count
//	[2:4)  free-space boundary: offset of the lowest byte currently used
//	       by tuple data (tuple data grows downward from page.Size)
//	[4 + 4*i : 4 + 4*(i+1))  slot i: tupleOffset u16 | tupleLen u16
type heapPage struct {
	buf []byte
}

const heapPageHeaderSize = 4
const heapSlotSize = 4

func newHeapPage() *heapPage {
	p := &heapPage{buf: page.GetBuf()}
	binary.LittleEndian.PutUint16(p.buf[2:4], uint16(page.Size))
	return p
}

func loadHeapPage(buf []byte) *heapPage {
	return &heapPage{buf: buf}
}

func (p *heapPage) release() {
	page.PutBuf(p.buf)
	p.buf = nil
}

func (p *heapPage) slotCount() int {
	return int(binary.LittleEndian.Uint16(p.buf[0:2]))
}

func (p *heapPage) setSlotCount(n int) {
	binary.LittleEndian.PutUint16(p.buf[0:2], uint16(n))
}

func (p *heapPage) freeBoundary() int {
	return int(binary.LittleEndian.Uint16(p.buf[2:4]))
}

func (p *heapPage) setFreeBoundary(off int) {
	binary.LittleEndian.PutUint16(p.buf[2:4], uint16(off))
}

func (p *heapPage) slotDirOffset(i int) int {
	return heapPageHeaderSize + i*heapSlotSize
}

// insertTuple appends data and returns its new slot id, or ErrNoSpace if
// the page cannot fit it alongside its slot-directory entry.
func (p *heapPage) insertTuple(data []byte) (int32, error) {
	n := p.slotCount()
	dirEnd := p.slotDirOffset(n + 1)
	newBoundary := p.freeBoundary() - len(data)
	if newBoundary < dirEnd {
		return 0, ErrNoSpace
	}

	copy(p.buf[newBoundary:newBoundary+len(data)], data)
	binary.LittleEndian.PutUint16(p.buf[p.slotDirOffset(n):p.slotDirOffset(n)+2], uint16(newBoundary))
	binary.LittleEndian.PutUint16(p.buf[p.slotDirOffset(n)+2:p.slotDirOffset(n)+4], uint16(len(data)))
	p.setFreeBoundary(newBoundary)
	p.setSlotCount(n + 1)
	return int32(n), nil
}

func (p *heapPage) readTuple(slot int32) ([]byte, error) {
	n := p.slotCount()
	if slot < 0 || int(slot) >= n {
		return nil, ErrBadSlot
	}
	off := p.slotDirOffset(int(slot))
	offset := int(binary.LittleEndian.Uint16(p.buf[off : off+2]))
	length := int(binary.LittleEndian.Uint16(p.buf[off+2 : off+4]))
	out := make([]byte, length)
	copy(out, p.buf[offset:offset+length])
	return out, nil
}
