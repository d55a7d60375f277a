// Package ierrors holds the closed set of tagged error kinds shared by the
// page store, the B+Tree, and the loader. Kinds are sentinel values, not
// integer codes, so callers discriminate with errors.Is and wrapping with
// fmt.Errorf("%w", ...) never loses the kind.
package ierrors

import "errors"

var (
	// ErrFileOpenFailed, ErrFileReadFailed and ErrFileWriteFailed are
	// propagated unchanged from the page store and are always fatal to the
	// in-progress operation.
	ErrFileOpenFailed  = errors.New("ierrors: file open failed")
	ErrFileReadFailed  = errors.New("ierrors: file read failed")
	ErrFileWriteFailed = errors.New("ierrors: file write failed")

	// ErrInvalidFileFormat is raised by the loader, never by the tree or
	// page store.
	ErrInvalidFileFormat = errors.New("ierrors: invalid file format")

	// ErrNodeFull is local to a node's insert attempt and never surfaces
	// past the tree layer; it signals "split me".
	ErrNodeFull = errors.New("ierrors: node full")

	// ErrNoSuchRecord is a leaf-local signal meaning no key in this leaf is
	// >= the search key. The tree layer either chases the sibling leaf or
	// surfaces it.
	ErrNoSuchRecord = errors.New("ierrors: no such record")

	// ErrEndOfTree signals natural termination of a range scan.
	ErrEndOfTree = errors.New("ierrors: end of tree")
)

// ExitCode maps an error to a process exit code, mirroring the original
// CLI's practice of giving each fatal error kind its own distinct code
// instead of collapsing everything to 1. nil maps to 0.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrFileOpenFailed):
		return 2
	case errors.Is(err, ErrFileReadFailed):
		return 3
	case errors.Is(err, ErrFileWriteFailed):
		return 4
	case errors.Is(err, ErrInvalidFileFormat):
		return 5
	default:
		return 1
	}
}
