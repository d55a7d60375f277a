package btree

import "github.com/bptreeidx/engine/internal/page"

// LMax is the maximum number of entries a leaf page can hold: header i32 +
// entries (LeafEntrySize bytes each) + trailing i32 next-leaf pointer.
const LMax = (page.Size - 2*4) / LeafEntrySize

// IMax is the maximum number of keys an internal page can hold: header i32
// + leading child i32 + pairs (InternalEntrySize bytes each).
const IMax = (page.Size - 2*4) / InternalEntrySize
