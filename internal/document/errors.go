package document

import "errors"

// Failure classes shared by the kernel. None of them is fatal to an editing
// session: callers log and treat the operation as a no-op.
var (
	// ErrReferenceMissing means a command or lookup addressed a layer that is
	// not in the document.
	ErrReferenceMissing = errors.New("layer not found")
	// ErrInvalidGeometry means a computation would produce a non-positive extent.
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrPreconditionUnmet means an operation was called with too few layers.
	ErrPreconditionUnmet = errors.New("precondition unmet")
	// ErrCycle means a move would make a layer its own ancestor.
	ErrCycle = errors.New("layer tree cycle")
	// ErrInvalidDocument means a structural invariant does not hold.
	ErrInvalidDocument = errors.New("invalid document")
)
