package document

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"marknav/internal/logging"
	"marknav/internal/pointer"
)

// Document is a normalized, pointer-addressed Markdown document.
//
// SourceText is always the join of Items[*].Markdown with the paragraph
// separator; any mutation regenerates it together with indices and labels
// before the document is observable again. A document is safe for
// concurrent readers; edits take the write lock and invalidate snapshots
// handed out before them (generation counter).
type Document struct {
	mu         sync.RWMutex
	id         string
	sourceText string
	items      []Item
	alloc      *pointer.Allocator
	generation uint64
}

// Load parses Markdown into a new document. Line endings are normalized to
// "\n". An empty id gets a generated UUID.
func Load(markdown, id string) *Document {
	if id == "" {
		id = uuid.NewString()
	}
	normalized := normalizeLineEndings(markdown)

	d := &Document{
		id:    id,
		alloc: pointer.NewAllocator(),
	}
	d.items = parseItems(normalized, d.alloc)
	d.sourceText = reindex(d.items)

	logging.Document("loaded document %s: %d items, %d bytes", id, len(d.items), len(d.sourceText))
	return d
}

// ID returns the document id.
func (d *Document) ID() string {
	return d.id
}

// SourceText returns the current normalized source.
func (d *Document) SourceText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sourceText
}

// Len returns the number of items.
func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

// Generation returns the mutation counter. It increments on every committed
// edit batch and on reload; readers use it to detect stale snapshots.
func (d *Document) Generation() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.generation
}

// Items returns a copy of the item sequence. The copy is a consistent
// snapshot: later edits do not affect it, and a cursor iterating it keeps a
// coherent (if possibly stale) view.
func (d *Document) Items() []Item {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Item, len(d.items))
	copy(out, d.items)
	return out
}

// ItemByLabel finds an item by pointer label, case-insensitively.
func (d *Document) ItemByLabel(label string) (Item, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if i := findByLabel(d.items, label); i >= 0 {
		return d.items[i], true
	}
	return Item{}, false
}

// ItemByPointerID finds an item by pointer id.
func (d *Document) ItemByPointerID(id int64) (Item, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for i := range d.items {
		if d.items[i].Pointer.ID == id {
			return d.items[i], true
		}
	}
	return Item{}, false
}

// Reload reparses the document from new Markdown, keeping the id and the
// pointer allocator so ids from before the reload are never reissued.
func (d *Document) Reload(markdown string) {
	normalized := normalizeLineEndings(markdown)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.items = parseItems(normalized, d.alloc)
	d.sourceText = reindex(d.items)
	d.generation++
	logging.Document("reloaded document %s: %d items (generation %d)", d.id, len(d.items), d.generation)
}

func findByLabel(items []Item, label string) int {
	for i := range items {
		if strings.EqualFold(items[i].Pointer.Label, label) {
			return i
		}
	}
	return -1
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
