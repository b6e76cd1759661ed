package document

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"marknav/internal/logging"
	"marknav/internal/pointer"
)

// TargetRef is one member of a target set: a pointer captured together with
// an excerpt of the item it addressed at capture time.
type TargetRef struct {
	Pointer pointer.Pointer `json:"pointer"`
	Excerpt string          `json:"excerpt"`
}

// TargetSet is a named, immutable snapshot of pointers for later bulk
// operations. Labels inside it reflect the document state at creation; the
// ids stay resolvable across edits as long as the items survive.
type TargetSet struct {
	ID         string      `json:"id"`
	DocumentID string      `json:"document_id"`
	Targets    []TargetRef `json:"targets"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Registry holds the documents and target sets of one hosting process.
// Each document has private state; the registry lock only guards the maps.
type Registry struct {
	mu         sync.RWMutex
	docs       map[string]*Document
	targetSets map[string]*TargetSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		docs:       make(map[string]*Document),
		targetSets: make(map[string]*TargetSet),
	}
}

// LoadDocument parses Markdown and registers the resulting document. A
// document with the same id is replaced.
func (r *Registry) LoadDocument(markdown, id string) *Document {
	d := Load(markdown, id)
	r.mu.Lock()
	r.docs[d.ID()] = d
	r.mu.Unlock()
	return d
}

// Get returns a registered document.
func (r *Registry) Get(id string) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return d, nil
}

// GetItems returns a snapshot of a document's item sequence.
func (r *Registry) GetItems(id string) ([]Item, error) {
	d, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return d.Items(), nil
}

// ApplyOperations applies an edit batch to a document and returns it,
// reindexed. The batch is atomic in strict mode.
func (r *Registry) ApplyOperations(id string, ops []Operation, opts ApplyOptions) (*Document, []*OpError, error) {
	d, err := r.Get(id)
	if err != nil {
		return nil, nil, err
	}
	skipped, err := d.Apply(ops, opts)
	if err != nil {
		return nil, nil, err
	}
	return d, skipped, nil
}

// Remove drops a document from the registry.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.docs, id)
	r.mu.Unlock()
}

// CreateTargetSet captures the pointers at the given indices as an
// immutable named set. Out-of-range indices are rejected.
func (r *Registry) CreateTargetSet(id string, indices []int) (*TargetSet, error) {
	d, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	items := d.Items()

	refs := make([]TargetRef, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(items) {
			return nil, fmt.Errorf("target set: index %d out of range [0,%d)", idx, len(items))
		}
		refs = append(refs, TargetRef{
			Pointer: items[idx].Pointer,
			Excerpt: excerpt(items[idx].Markdown, 120),
		})
	}

	set := &TargetSet{
		ID:         uuid.NewString(),
		DocumentID: id,
		Targets:    refs,
		CreatedAt:  time.Now(),
	}

	r.mu.Lock()
	r.targetSets[set.ID] = set
	r.mu.Unlock()

	logging.DocumentDebug("created target set %s over %s: %d targets", set.ID, id, len(refs))
	return set, nil
}

// TargetSet returns a previously created target set.
func (r *Registry) TargetSet(setID string) (*TargetSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.targetSets[setID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTargetSetNotFound, setID)
	}
	return set, nil
}

func excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
