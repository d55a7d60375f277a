package btree

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/bptreeidx/engine/internal/ierrors"
	"github.com/bptreeidx/engine/internal/page"
)

// ErrTreeClosed is returned by any operation attempted after Close.
var ErrTreeClosed = errors.New("btree: tree is closed")

// Tree drives top-down search, bottom-up split propagation, and scan-cursor
// production over a page store. It is single-threaded and non-reentrant: a
// second operation must not begin before the first returns.
type Tree struct {
	store  *page.Store
	meta   Meta
	closed atomic.Bool
}

// Open opens the backing index file. If the file is empty, root_pid and
// height are initialized to the empty-tree sentinel and persisted to page
// 0; otherwise (root_pid, height) are loaded from page 0's first two i32
// slots.
func Open(name string, mode page.Mode) (*Tree, error) {
	store, err := page.Open(name, mode)
	if err != nil {
		return nil, err
	}
	t := &Tree{store: store}

	end, err := store.EndPID()
	if err != nil {
		return nil, err
	}
	if end == 0 {
		t.meta = Meta{RootPID: page.NoPage, Height: 0}
		if err := t.persistMeta(); err != nil {
			return nil, err
		}
		slog.Debug("btree: initialized empty tree", "file", name)
		return t, nil
	}

	buf := page.GetBuf()
	defer page.PutBuf(buf)
	if err := store.ReadPage(0, buf); err != nil {
		return nil, err
	}
	t.meta = decodeMeta(buf)
	slog.Debug("btree: opened existing tree", "file", name, "rootPID", t.meta.RootPID, "height", t.meta.Height)
	return t, nil
}

// Close closes the backing file. Idempotent.
func (t *Tree) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.store.Close()
}

func (t *Tree) ensureOpen() error {
	if t.closed.Load() {
		return ErrTreeClosed
	}
	return nil
}

// RootPID returns the current root page id, page.NoPage for an empty tree.
func (t *Tree) RootPID() page.ID { return t.meta.RootPID }

// Height returns the current tree height, 0 for an empty tree.
func (t *Tree) Height() int32 { return t.meta.Height }

func (t *Tree) persistMeta() error {
	buf := page.GetBuf()
	defer page.PutBuf(buf)
	encodeMeta(buf, t.meta)
	return t.store.WritePage(0, buf)
}

func (t *Tree) readLeaf(pid page.ID) (*LeafPage, error) {
	buf := page.GetBuf()
	if err := t.store.ReadPage(pid, buf); err != nil {
		page.PutBuf(buf)
		return nil, err
	}
	return LoadLeafPage(buf), nil
}

func (t *Tree) writeLeaf(pid page.ID, l *LeafPage) error {
	return t.store.WritePage(pid, l.Buf)
}

func (t *Tree) readInternal(pid page.ID) (*InternalPage, error) {
	buf := page.GetBuf()
	if err := t.store.ReadPage(pid, buf); err != nil {
		page.PutBuf(buf)
		return nil, err
	}
	return LoadInternalPage(buf), nil
}

func (t *Tree) writeInternal(pid page.ID, p *InternalPage) error {
	return t.store.WritePage(pid, p.Buf)
}

// Insert maps key to loc, splitting leaf and internal nodes bottom-up as
// needed. The parent path walked during descent is a value local to this
// call, built by locateForInsert and threaded explicitly into
// updateParent — never stored on the Tree.
func (t *Tree) Insert(key Key, loc Locator) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}

	if t.meta.Height == 0 {
		leaf := NewLeafPage()
		defer leaf.Release()
		if err := leaf.Insert(key, loc); err != nil {
			return fmt.Errorf("btree: insert into fresh leaf: %w", err)
		}
		pid, err := t.store.EndPID()
		if err != nil {
			return err
		}
		if err := t.writeLeaf(pid, leaf); err != nil {
			return err
		}
		t.meta.RootPID = pid
		t.meta.Height = 1
		slog.Debug("btree: created root leaf", "pid", pid, "key", key)
		return t.persistMeta()
	}

	cursor, path, err := t.locateForInsert(key)
	if err != nil {
		return err
	}

	leaf, err := t.readLeaf(cursor.LeafPID)
	if err != nil {
		return err
	}
	defer leaf.Release()

	if err := leaf.Insert(key, loc); err == nil {
		return t.writeLeaf(cursor.LeafPID, leaf)
	} else if !errors.Is(err, ierrors.ErrNodeFull) {
		return err
	}

	siblingPID, err := t.store.EndPID()
	if err != nil {
		return err
	}
	savedNext := leaf.NextLeafPID()
	sibling := NewLeafPage()
	defer sibling.Release()

	firstRightKey, err := leaf.InsertAndSplit(key, loc, sibling)
	if err != nil {
		return err
	}
	sibling.SetNextLeafPID(savedNext)
	leaf.SetNextLeafPID(siblingPID)

	if err := t.writeLeaf(siblingPID, sibling); err != nil {
		return err
	}
	if err := t.writeLeaf(cursor.LeafPID, leaf); err != nil {
		return err
	}

	slog.Debug("btree: split leaf", "leftPID", cursor.LeafPID, "siblingPID", siblingPID, "firstRightKey", firstRightKey)
	return t.updateParent(path, cursor.LeafPID, firstRightKey, siblingPID)
}

// updateParent recurses along path (ordered from root-adjacent to
// leaf-adjacent, so its tail is the immediate parent) after a split at
// (leftPID, key, rightPID).
func (t *Tree) updateParent(path []page.ID, leftPID page.ID, key Key, rightPID page.ID) error {
	if len(path) == 0 {
		newRootPID, err := t.store.EndPID()
		if err != nil {
			return err
		}
		root := NewInternalPage()
		defer root.Release()
		root.InitializeAsRoot(leftPID, key, rightPID)
		if err := t.writeInternal(newRootPID, root); err != nil {
			return err
		}
		t.meta.RootPID = newRootPID
		t.meta.Height++
		slog.Debug("btree: grew new root", "pid", newRootPID, "height", t.meta.Height)
		return t.persistMeta()
	}

	parentPID := path[len(path)-1]
	path = path[:len(path)-1]

	parent, err := t.readInternal(parentPID)
	if err != nil {
		return err
	}
	defer parent.Release()

	if err := parent.Insert(key, rightPID); err == nil {
		return t.writeInternal(parentPID, parent)
	} else if !errors.Is(err, ierrors.ErrNodeFull) {
		return err
	}

	siblingPID, err := t.store.EndPID()
	if err != nil {
		return err
	}
	sibling := NewInternalPage()
	defer sibling.Release()

	midKey, err := parent.InsertAndSplit(key, rightPID, sibling)
	if err != nil {
		return err
	}

	if err := t.writeInternal(siblingPID, sibling); err != nil {
		return err
	}
	if err := t.writeInternal(parentPID, parent); err != nil {
		return err
	}

	slog.Debug("btree: split internal", "parentPID", parentPID, "siblingPID", siblingPID, "midKey", midKey)
	return t.updateParent(path, parentPID, midKey, siblingPID)
}

// locateForInsert descends to the leaf key belongs in, accumulating the
// visited internal page ids into path. Unlike Locate it never chases
// next_leaf_pid on a leaf-level miss: the returned cursor's LeafPID names
// the leaf key belongs to, with EntryIndex -1 when key would be appended
// at the tail (advisory only — the caller always calls LeafPage.Insert,
// which performs its own ordered placement).
func (t *Tree) locateForInsert(key Key) (Cursor, []page.ID, error) {
	var path []page.ID
	pid := t.meta.RootPID
	height := int32(1)
	for height < t.meta.Height {
		path = append(path, pid)
		node, err := t.readInternal(pid)
		if err != nil {
			return Cursor{}, nil, err
		}
		child := node.LocateChild(key)
		node.Release()
		pid = child
		height++
	}

	leaf, err := t.readLeaf(pid)
	if err != nil {
		return Cursor{}, nil, err
	}
	defer leaf.Release()

	idx, err := leaf.Locate(key)
	if err != nil {
		if errors.Is(err, ierrors.ErrNoSuchRecord) {
			return Cursor{LeafPID: pid, EntryIndex: -1}, path, nil
		}
		return Cursor{}, nil, err
	}
	return Cursor{LeafPID: pid, EntryIndex: idx}, path, nil
}

// Locate performs a top-down search without retaining the parent path. On
// a leaf-level miss it chases next_leaf_pid once: it fails with EndOfTree
// when there is no next leaf, and with NoSuchRecord when the next leaf has
// no key >= searchKey either (or when the tree is empty).
func (t *Tree) Locate(searchKey Key) (Cursor, error) {
	if err := t.ensureOpen(); err != nil {
		return Cursor{}, err
	}
	if t.meta.Height == 0 {
		return Cursor{}, ierrors.ErrNoSuchRecord
	}

	pid := t.meta.RootPID
	height := int32(1)
	for height < t.meta.Height {
		node, err := t.readInternal(pid)
		if err != nil {
			return Cursor{}, err
		}
		child := node.LocateChild(searchKey)
		node.Release()
		pid = child
		height++
	}

	leaf, err := t.readLeaf(pid)
	if err != nil {
		return Cursor{}, err
	}
	idx, lerr := leaf.Locate(searchKey)
	if lerr == nil {
		leaf.Release()
		return Cursor{LeafPID: pid, EntryIndex: idx}, nil
	}
	if !errors.Is(lerr, ierrors.ErrNoSuchRecord) {
		leaf.Release()
		return Cursor{}, lerr
	}

	nextPID := leaf.NextLeafPID()
	leaf.Release()
	if nextPID == page.NoPage {
		return Cursor{}, ierrors.ErrEndOfTree
	}

	nextLeaf, err := t.readLeaf(nextPID)
	if err != nil {
		return Cursor{}, err
	}
	defer nextLeaf.Release()
	idx2, err2 := nextLeaf.Locate(searchKey)
	if err2 != nil {
		return Cursor{}, err2
	}
	return Cursor{LeafPID: nextPID, EntryIndex: idx2}, nil
}

// ReadForward reads the (key, locator) at cursor and returns the advanced
// cursor alongside it. Fails with EndOfTree when called with a cursor
// whose LeafPID is page.NoPage; a call that consumes the last entry of the
// last leaf still returns successfully, with the returned cursor carrying
// LeafPID == page.NoPage for the caller's next attempt.
func (t *Tree) ReadForward(cursor Cursor) (Key, Locator, Cursor, error) {
	if err := t.ensureOpen(); err != nil {
		return 0, Locator{}, cursor, err
	}
	if cursor.LeafPID == page.NoPage {
		return 0, Locator{}, cursor, ierrors.ErrEndOfTree
	}

	leaf, err := t.readLeaf(cursor.LeafPID)
	if err != nil {
		return 0, Locator{}, cursor, err
	}
	defer leaf.Release()

	key, loc, err := leaf.ReadEntry(cursor.EntryIndex)
	if err != nil {
		return 0, Locator{}, cursor, err
	}

	next := cursor
	if cursor.EntryIndex == leaf.Count()-1 {
		next.EntryIndex = 0
		next.LeafPID = leaf.NextLeafPID()
	} else {
		next.EntryIndex = cursor.EntryIndex + 1
	}
	return key, loc, next, nil
}

// DebugDump writes a one-line-per-node summary of the tree, starting from
// the root. It exists purely as an operator diagnostic.
func (t *Tree) DebugDump(w io.Writer) error {
	if err := t.ensureOpen(); err != nil {
		return err
	}
	if t.meta.Height == 0 {
		fmt.Fprintln(w, "tree is empty")
		return nil
	}
	if t.meta.Height == 1 {
		leaf, err := t.readLeaf(t.meta.RootPID)
		if err != nil {
			return err
		}
		defer leaf.Release()
		fmt.Fprintf(w, "root leaf pid=%d count=%d next=%d\n", t.meta.RootPID, leaf.Count(), leaf.NextLeafPID())
		return nil
	}
	root, err := t.readInternal(t.meta.RootPID)
	if err != nil {
		return err
	}
	defer root.Release()
	fmt.Fprintf(w, "root internal pid=%d count=%d height=%d\n", t.meta.RootPID, root.Count(), t.meta.Height)
	return nil
}
