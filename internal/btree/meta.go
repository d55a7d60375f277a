package btree

import (
	"encoding/binary"

	"github.com/bptreeidx/engine/internal/page"
)

// Meta is the tree's root-pointer metadata. It lives on page 0 of the index
// file, as its first two little-endian i32 slots, so that no side file is
// ever needed to reopen a tree.
type Meta struct {
	RootPID page.ID
	Height  int32
}

func encodeMeta(buf []byte, m Meta) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.RootPID))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(m.Height))
}

func decodeMeta(buf []byte) Meta {
	return Meta{
		RootPID: int32(binary.LittleEndian.Uint32(buf[0:4])),
		Height:  int32(binary.LittleEndian.Uint32(buf[4:8])),
	}
}
