package btree

// Index is the tree's public contract: point insert, locate-for-scan, and
// forward iteration. Tree is the only implementation; the loader and the
// executor currently take a *Tree directly rather than an Index.
type Index interface {
	Insert(key Key, loc Locator) error
	Locate(searchKey Key) (Cursor, error)
	ReadForward(cursor Cursor) (Key, Locator, Cursor, error)
	RootPID() int32
	Height() int32
	Close() error
}

var _ Index = (*Tree)(nil)
