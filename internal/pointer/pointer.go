// Package pointer defines the semantic pointer: a stable address for one
// item of a linear document. A pointer pairs an immutable numeric id with a
// derived, human-readable heading/paragraph label. Identity is the id; the
// label shifts when the document is restructured, the id never does.
package pointer

import (
	"fmt"
	"strconv"
	"strings"
)

// Pointer addresses a single linear item.
//
// ID is unique and monotonically increasing within one document's lifetime,
// including across edits: ids captured before an edit stay distinguishable
// from ids minted afterwards. Label is display/lookup only and is rederived
// on every reindex, e.g. "1.2.p3" for the third paragraph under heading 1.2,
// or "p2" for the second leaf before any heading.
type Pointer struct {
	ID    int64
	Label string
}

// Equal reports whether two pointers address the same item. Labels are
// ignored; id is the identity.
func (p Pointer) Equal(o Pointer) bool {
	return p.ID == o.ID
}

// IsZero reports whether the pointer is uninitialized.
func (p Pointer) IsZero() bool {
	return p.ID == 0 && p.Label == ""
}

// Compact renders the wire form "<id>:<label>" used in collaborator
// payloads and evidence records.
func (p Pointer) Compact() string {
	return strconv.FormatInt(p.ID, 10) + ":" + p.Label
}

// String implements fmt.Stringer.
func (p Pointer) String() string {
	return p.Compact()
}

// ParseCompact parses the "<id>:<label>" wire form.
func ParseCompact(s string) (Pointer, error) {
	idStr, label, ok := strings.Cut(s, ":")
	if !ok {
		return Pointer{}, fmt.Errorf("pointer: %q is not in id:label form", s)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Pointer{}, fmt.Errorf("pointer: bad id in %q: %w", s, err)
	}
	if id <= 0 {
		return Pointer{}, fmt.Errorf("pointer: id must be positive, got %d", id)
	}
	return Pointer{ID: id, Label: label}, nil
}

// Allocator mints monotonically increasing pointer ids. Each document owns
// one allocator for its whole lifetime so ids are never reused within a
// document, even across edits.
type Allocator struct {
	next int64
}

// NewAllocator returns an allocator whose first id is 1.
func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Next returns the next id.
func (a *Allocator) Next() int64 {
	id := a.next
	a.next++
	return id
}
