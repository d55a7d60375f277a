// Package btree implements the on-disk B+Tree: leaf and internal node
// codecs, the tree layer that drives search and split-on-insert, and the
// cursor used for range scans.
package btree

import "encoding/binary"

// Key is the indexed value: a signed 32-bit integer primary key.
type Key = int32

// Locator names a record in the heap file: (page_id, slot_id), opaque to
// the tree itself.
type Locator struct {
	PageID int32
	SlotID int32
}

// LeafEntrySize is the on-disk size of a (Locator, Key) triple: pid | sid |
// key, three little-endian i32s.
const LeafEntrySize = 12

// InternalEntrySize is the on-disk size of a (Key, child PageID) pair.
const InternalEntrySize = 8

func encodeLeafEntry(buf []byte, key Key, loc Locator) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(loc.PageID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(loc.SlotID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(key))
}

func decodeLeafEntry(buf []byte) (key Key, loc Locator) {
	loc.PageID = int32(binary.LittleEndian.Uint32(buf[0:4]))
	loc.SlotID = int32(binary.LittleEndian.Uint32(buf[4:8]))
	key = int32(binary.LittleEndian.Uint32(buf[8:12]))
	return key, loc
}

func encodeInternalEntry(buf []byte, key Key, childPID int32) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(key))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(childPID))
}

func decodeInternalEntry(buf []byte) (key Key, childPID int32) {
	key = int32(binary.LittleEndian.Uint32(buf[0:4]))
	childPID = int32(binary.LittleEndian.Uint32(buf[4:8]))
	return key, childPID
}
