package heap

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/bptreeidx/engine/internal/page"
)

// Locator names a record in the heap: an opaque (page_id, slot_id) pair,
// handed to and returned from the index unexamined.
type Locator struct {
	PageID int32
	SlotID int32
}

// ErrTableClosed is returned by any operation attempted after Close.
var ErrTableClosed = errors.New("heap: table is closed")

// Table is an append-only heap of (key, value) tuples. Deletion and
// in-place update are out of scope: rows are appended and read by
// Locator, which is exactly what the index needs.
type Table struct {
	store  *page.Store
	curPID page.ID
	closed atomic.Bool
}

// Open attaches a Table to a page store, positioning at the last existing
// page (if any) so Append can try it before allocating a new one.
func Open(store *page.Store) (*Table, error) {
	end, err := store.EndPID()
	if err != nil {
		return nil, err
	}
	if end == 0 {
		return &Table{store: store, curPID: page.NoPage}, nil
	}
	return &Table{store: store, curPID: end - 1}, nil
}

func (t *Table) ensureOpen() error {
	if t.closed.Load() {
		return ErrTableClosed
	}
	return nil
}

// Close closes the backing store. Idempotent.
func (t *Table) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.store.Close()
}

func encodeTuple(key int32, value string) []byte {
	buf := make([]byte, 4+len(value))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(key))
	copy(buf[4:], value)
	return buf
}

func decodeTuple(buf []byte) (int32, string) {
	key := int32(binary.LittleEndian.Uint32(buf[0:4]))
	return key, string(buf[4:])
}

// Append adds (key, value) to the heap and returns its locator.
func (t *Table) Append(key int32, value string) (Locator, error) {
	if err := t.ensureOpen(); err != nil {
		return Locator{}, err
	}
	tuple := encodeTuple(key, value)

	if t.curPID == page.NoPage {
		if err := t.allocPage(); err != nil {
			return Locator{}, err
		}
	}

	hp, err := t.readPage(t.curPID)
	if err != nil {
		return Locator{}, err
	}
	slot, err := hp.insertTuple(tuple)
	if errors.Is(err, ErrNoSpace) {
		hp.release()
		if err := t.allocPage(); err != nil {
			return Locator{}, err
		}
		hp, err = t.readPage(t.curPID)
		if err != nil {
			return Locator{}, err
		}
		slot, err = hp.insertTuple(tuple)
		if err != nil {
			hp.release()
			return Locator{}, err
		}
	} else if err != nil {
		hp.release()
		return Locator{}, err
	}
	defer hp.release()

	if err := t.writePage(t.curPID, hp); err != nil {
		return Locator{}, err
	}
	loc := Locator{PageID: t.curPID, SlotID: slot}
	slog.Debug("heap: appended row", "pageID", loc.PageID, "slot", loc.SlotID, "key", key)
	return loc, nil
}

// Read returns the (key, value) stored at loc.
func (t *Table) Read(loc Locator) (int32, string, error) {
	if err := t.ensureOpen(); err != nil {
		return 0, "", err
	}
	hp, err := t.readPage(loc.PageID)
	if err != nil {
		return 0, "", err
	}
	defer hp.release()
	tuple, err := hp.readTuple(loc.SlotID)
	if err != nil {
		return 0, "", err
	}
	key, value := decodeTuple(tuple)
	return key, value, nil
}

// Scan visits every row in page, then slot order, stopping at the first
// error fn returns.
func (t *Table) Scan(fn func(loc Locator, key int32, value string) error) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}
	if t.curPID == page.NoPage {
		return nil
	}
	for pid := page.ID(0); pid <= t.curPID; pid++ {
		hp, err := t.readPage(pid)
		if err != nil {
			return err
		}
		n := hp.slotCount()
		for slot := 0; slot < n; slot++ {
			tuple, err := hp.readTuple(int32(slot))
			if err != nil {
				hp.release()
				return err
			}
			key, value := decodeTuple(tuple)
			if err := fn(Locator{PageID: pid, SlotID: int32(slot)}, key, value); err != nil {
				hp.release()
				return err
			}
		}
		hp.release()
	}
	return nil
}

func (t *Table) allocPage() error {
	pid, err := t.store.EndPID()
	if err != nil {
		return err
	}
	hp := newHeapPage()
	defer hp.release()
	if err := t.writePage(pid, hp); err != nil {
		return err
	}
	t.curPID = pid
	return nil
}

func (t *Table) readPage(pid page.ID) (*heapPage, error) {
	buf := page.GetBuf()
	if err := t.store.ReadPage(pid, buf); err != nil {
		page.PutBuf(buf)
		return nil, err
	}
	return loadHeapPage(buf), nil
}

func (t *Table) writePage(pid page.ID, hp *heapPage) error {
	return t.store.WritePage(pid, hp.buf)
}
