package btree

import "github.com/bptreeidx/engine/internal/ierrors"

// Re-exported for callers that only import btree: ErrNodeFull is a
// node-local control-flow signal that never escapes the tree layer;
// ErrNoSuchRecord is node-local too, but Locate surfaces it for an empty
// tree or when the chased sibling leaf has no key >= the search key;
// ErrEndOfTree terminates a range scan.
var (
	ErrNodeFull     = ierrors.ErrNodeFull
	ErrNoSuchRecord = ierrors.ErrNoSuchRecord
	ErrEndOfTree    = ierrors.ErrEndOfTree
)
