package btree

import "github.com/bptreeidx/engine/internal/page"

// Cursor names a position in the leaf chain: the leaf page holding the
// entry and the entry's index within that leaf. Produced by Locate,
// consumed and advanced by ReadForward.
type Cursor struct {
	LeafPID    page.ID
	EntryIndex int32
}
