package cursor

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"marknav/internal/document"
	"marknav/internal/logging"
)

// Kind selects a matcher family for a cursor Spec.
type Kind string

const (
	KindScan    Kind = "scan"
	KindKeyword Kind = "keyword"
	KindQuery   Kind = "query"
)

// Spec describes a cursor to create.
type Spec struct {
	Name            string
	Kind            Kind
	Keywords        []string
	Query           string
	ExcludeHeadings bool
	Direction       Direction
	Start           Start
	Params          Params
}

type entry struct {
	stream *Stream
	docID  string
}

// Registry holds named cursors over document snapshots and invalidates
// them when their document is reloaded or edited out from under them.
type Registry struct {
	mu      sync.Mutex
	limits  Limits
	cursors map[string]*entry
}

// NewRegistry creates a cursor registry enforcing the given ceilings.
func NewRegistry(limits Limits) *Registry {
	if limits.MaxElements <= 0 {
		limits.MaxElements = DefaultLimits.MaxElements
	}
	if limits.MaxBytes <= 0 {
		limits.MaxBytes = DefaultLimits.MaxBytes
	}
	return &Registry{
		limits:  limits,
		cursors: make(map[string]*entry),
	}
}

// Create opens a cursor over a snapshot of the document's items and
// returns its name. An empty Spec.Name gets a generated one.
func (r *Registry) Create(doc *document.Document, spec Spec) (string, error) {
	if err := spec.Params.Validate(r.limits); err != nil {
		return "", err
	}
	match, err := matcherFor(spec)
	if err != nil {
		return "", err
	}

	name := spec.Name
	if name == "" {
		name = uuid.New().String()
	}

	stream := NewStream(doc.Items(), spec.Start, spec.Direction, spec.Params, match)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.cursors[name]; exists {
		return "", fmt.Errorf("cursor %q already exists", name)
	}
	r.cursors[name] = &entry{stream: stream, docID: doc.ID()}

	logging.Cursor("Created cursor %s over document %s (%s, %s)",
		name, doc.ID(), stream.Description(), spec.Direction)
	return name, nil
}

// NextPortion pulls the next bounded portion from a named cursor.
// A completed cursor is removed on its final pull.
func (r *Registry) NextPortion(name string) (Portion, error) {
	r.mu.Lock()
	e, ok := r.cursors[name]
	r.mu.Unlock()
	if !ok {
		return Portion{}, fmt.Errorf("cursor %q: %w", name, ErrNotFound)
	}

	portion, err := e.stream.NextPortion()
	if err != nil {
		r.mu.Lock()
		delete(r.cursors, name)
		r.mu.Unlock()
		return Portion{}, fmt.Errorf("cursor %q: %w", name, err)
	}
	if !portion.HasMore {
		r.mu.Lock()
		delete(r.cursors, name)
		r.mu.Unlock()
		logging.CursorDebug("Cursor %s exhausted, removed", name)
	}
	return portion, nil
}

// Close discards a cursor. Closing a missing cursor is not an error.
func (r *Registry) Close(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cursors, name)
}

// InvalidateDocument marks every cursor over the given document as
// invalidated. Subsequent pulls return ErrInvalidated.
func (r *Registry) InvalidateDocument(docID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.cursors {
		if e.docID != docID {
			continue
		}
		e.stream.Invalidate()
		n++
	}
	if n > 0 {
		logging.Cursor("Invalidated %d cursor(s) over document %s", n, docID)
	}
	return n
}

// Limits reports the registry's ceilings.
func (r *Registry) Limits() Limits {
	return r.limits
}

func matcherFor(spec Spec) (Matcher, error) {
	switch spec.Kind {
	case KindScan, "":
		return FullScan{ExcludeHeadings: spec.ExcludeHeadings}, nil
	case KindKeyword:
		if len(spec.Keywords) == 0 {
			return nil, fmt.Errorf("keyword cursor needs at least one keyword")
		}
		return NewKeyword(spec.Keywords), nil
	case KindQuery:
		if spec.Query == "" {
			return nil, fmt.Errorf("query cursor needs a non-empty query")
		}
		return NewQuery(spec.Query), nil
	default:
		return nil, fmt.Errorf("unknown cursor kind %q", spec.Kind)
	}
}
