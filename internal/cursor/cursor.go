// Package cursor implements bounded portion streams over a linear
// document: stateful readers that page the item sequence out under byte
// and element budgets, optionally filtered and optionally stripped of
// content. A cursor reads a snapshot and never mutates the document.
package cursor

import (
	"errors"
	"fmt"

	"marknav/internal/document"
)

var (
	// ErrComplete is returned by NextPortion once the stream has reached a
	// sequence boundary. No portions are produced after completion.
	ErrComplete = errors.New("cursor complete")

	// ErrInvalidated is returned after the underlying document was edited
	// or reloaded while the cursor was open.
	ErrInvalidated = errors.New("cursor invalidated by document edit")

	// ErrNotFound is returned by the registry for unknown cursor names.
	ErrNotFound = errors.New("cursor not found")
)

// Direction of traversal.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Params bounds a single portion. Both budgets must be positive and within
// the registry's server-wide ceilings.
type Params struct {
	MaxElements    int
	MaxBytes       int
	IncludeContent bool
}

// Limits are the server-wide ceilings portion budgets are validated
// against.
type Limits struct {
	MaxElements int
	MaxBytes    int
}

// DefaultLimits matches the configuration defaults.
var DefaultLimits = Limits{MaxElements: 50, MaxBytes: 32 * 1024}

// Validate checks params against the ceilings.
func (p Params) Validate(l Limits) error {
	if p.MaxElements <= 0 {
		return fmt.Errorf("maxElements must be positive, got %d", p.MaxElements)
	}
	if p.MaxBytes <= 0 {
		return fmt.Errorf("maxBytes must be positive, got %d", p.MaxBytes)
	}
	if l.MaxElements > 0 && p.MaxElements > l.MaxElements {
		return fmt.Errorf("maxElements %d exceeds ceiling %d", p.MaxElements, l.MaxElements)
	}
	if l.MaxBytes > 0 && p.MaxBytes > l.MaxBytes {
		return fmt.Errorf("maxBytes %d exceeds ceiling %d", p.MaxBytes, l.MaxBytes)
	}
	return nil
}

// Portion is one bounded batch of items. HasMore is false exactly once, on
// the final portion.
type Portion struct {
	Items   []document.Item
	HasMore bool
}

// Start describes where a stream begins: the sequence start (zero value),
// the end, or just after a given pointer id.
type Start struct {
	AtEnd        bool
	AfterPointer int64
}
