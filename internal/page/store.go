// Package page implements the fixed-size page store that the B+Tree and the
// heap file are both built on: PAGE_SIZE-byte pages addressed by a
// non-negative PageID, read and written whole, with no caching beyond a
// single in-flight page buffer.
package page

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/bptreeidx/engine/internal/ierrors"
)

// Size is PAGE_SIZE: every page read or written is exactly this many bytes.
const Size = 1024

// ID is a page identifier. NoPage (-1) names no page and is used as a
// sentinel for an empty tree's root, an uninitialized next-leaf pointer, and
// similar "nothing here yet" slots.
type ID = int32

// NoPage is the sentinel PageID meaning "no page".
const NoPage ID = -1

// Mode selects how Open treats a missing file.
type Mode byte

const (
	ReadOnly  Mode = 'r'
	ReadWrite Mode = 'w'
)

// Store is the page store external collaborator described by the index
// layout: read-page, write-page (append implied by writing at EndPID),
// end-of-file page id, and close.
type Store struct {
	mu     sync.Mutex
	f      *os.File
	name   string
	closed atomic.Bool
}

// Open opens name for page-aligned I/O. Under ReadWrite mode the file is
// created if it does not already exist; under ReadOnly a missing file is a
// FileOpenFailed error.
func Open(name string, mode Mode) (*Store, error) {
	flags := os.O_RDWR
	if mode == ReadOnly {
		flags = os.O_RDONLY
	} else if mode == ReadWrite {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ierrors.ErrFileOpenFailed, name, err)
	}
	slog.Debug("page: store opened", "file", name, "mode", string(mode))
	return &Store{f: f, name: name}, nil
}

// EndPID reports one past the last existing page id; it is 0 for an empty
// file and is also the page id writing will append at.
func (s *Store) EndPID() (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, err := s.f.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", ierrors.ErrFileReadFailed, s.name, err)
	}
	return ID(info.Size() / Size), nil
}

// ReadPage reads the page named by pid into buf, which must be exactly
// Size bytes. Reading a page at or past EndPID is a FileReadFailed error.
func (s *Store) ReadPage(pid ID, buf []byte) error {
	if len(buf) != Size {
		return fmt.Errorf("%w: read buffer must be %d bytes, got %d", ierrors.ErrFileReadFailed, Size, len(buf))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	off := int64(pid) * Size
	n, err := s.f.ReadAt(buf, off)
	if err != nil && !(errors.Is(err, io.EOF) && n == Size) {
		return fmt.Errorf("%w: read page %d: %v", ierrors.ErrFileReadFailed, pid, err)
	}
	return nil
}

// WritePage writes buf (exactly Size bytes) at pid. Writing at EndPID
// extends the file by one page; writing at an existing pid overwrites it.
func (s *Store) WritePage(pid ID, buf []byte) error {
	if len(buf) != Size {
		return fmt.Errorf("%w: write buffer must be %d bytes, got %d", ierrors.ErrFileWriteFailed, Size, len(buf))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	off := int64(pid) * Size
	if _, err := s.f.WriteAt(buf, off); err != nil {
		return fmt.Errorf("%w: write page %d: %v", ierrors.ErrFileWriteFailed, pid, err)
	}
	return nil
}

// Close closes the backing file. Close is idempotent.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.f.Close()
}
