package document

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by the registry for unknown document ids.
	ErrNotFound = errors.New("document not found")

	// ErrTargetSetNotFound is returned for unknown target set ids.
	ErrTargetSetNotFound = errors.New("target set not found")

	// ErrTargetNotResolved marks an operation whose target matched no item.
	ErrTargetNotResolved = errors.New("target not resolved")

	// ErrNoNeighbor marks a merge whose target has no neighbor in the
	// requested direction.
	ErrNoNeighbor = errors.New("no neighbor to merge with")
)

// OpError describes a failed edit operation.
type OpError struct {
	Kind   OpKind
	Target string
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("operation %s on %q: %v", e.Kind, e.Target, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}
