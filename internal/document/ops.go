package document

import (
	"fmt"
	"strconv"

	"marknav/internal/logging"
	"marknav/internal/pointer"
)

// OpKind names an edit operation.
type OpKind string

const (
	OpReplace           OpKind = "replace"
	OpInsertBefore      OpKind = "insert_before"
	OpInsertAfter       OpKind = "insert_after"
	OpRemove            OpKind = "remove"
	OpSplit             OpKind = "split"
	OpMergeWithNext     OpKind = "merge_with_next"
	OpMergeWithPrevious OpKind = "merge_with_previous"
)

// Target addresses the item an operation applies to: either a pointer label
// (matched case-insensitively) or an explicit index into the sequence as it
// stands when the operation runs.
type Target struct {
	Label string
	Index *int
}

func (t Target) String() string {
	if t.Index != nil {
		return "#" + strconv.Itoa(*t.Index)
	}
	return t.Label
}

// NewItem is caller-supplied content for replace/insert/split operations.
// Text is derived from Markdown when empty.
type NewItem struct {
	Type     ItemType
	Level    int
	Markdown string
	Text     string
}

// Operation is one edit in a batch.
type Operation struct {
	Kind   OpKind
	Target Target
	Items  []NewItem
}

// ApplyOptions controls batch application. In strict mode any unresolvable
// target fails the whole batch and the document is left unchanged;
// otherwise the offending operation is skipped.
type ApplyOptions struct {
	Strict bool
}

// Apply runs an ordered batch of operations against the document.
//
// Operations apply sequentially against the progressively mutated sequence:
// a Replace followed by an InsertAfter on the same original target inserts
// after the replacement. Pointer labels are resolved against the batch's
// snapshot state as mutated so far; labels are NOT rederived between
// operations. The reindexer runs exactly once, after the whole batch.
//
// Returns the labels-resolution errors of skipped operations (empty when
// everything applied); a non-nil error means the batch was rejected and the
// document is unchanged.
func (d *Document) Apply(ops []Operation, opts ApplyOptions) ([]*OpError, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryDocument, fmt.Sprintf("Apply(%d ops)", len(ops)))
	defer timer.Stop()

	// Work on a copy so strict-mode failures leave the document intact.
	work := make([]Item, len(d.items))
	copy(work, d.items)

	var skipped []*OpError
	for _, op := range ops {
		next, err := applyOne(work, op, d)
		if err != nil {
			opErr := &OpError{Kind: op.Kind, Target: op.Target.String(), Err: err}
			if opts.Strict {
				logging.Document("strict batch rejected on %v", opErr)
				return nil, opErr
			}
			logging.DocumentDebug("skipping operation: %v", opErr)
			skipped = append(skipped, opErr)
			continue
		}
		work = next
	}

	d.items = work
	d.sourceText = reindex(d.items)
	d.generation++
	logging.Document("applied %d/%d operations to %s: %d items (generation %d)",
		len(ops)-len(skipped), len(ops), d.id, len(d.items), d.generation)
	return skipped, nil
}

// applyOne applies a single operation to the working sequence and returns
// the mutated sequence. The document is only consulted for id allocation.
func applyOne(items []Item, op Operation, d *Document) ([]Item, error) {
	idx := resolveTarget(items, op.Target)
	if idx < 0 {
		return nil, ErrTargetNotResolved
	}

	switch op.Kind {
	case OpReplace, OpSplit:
		if len(op.Items) == 0 {
			return nil, fmt.Errorf("%s requires at least one replacement item", op.Kind)
		}
		repl := d.materialize(op.Items)
		// Carry the outgoing label so later operations in the same batch
		// can still address the replacement. Reindex rederives it anyway.
		repl[0].Pointer.Label = items[idx].Pointer.Label
		return splice(items, idx, 1, repl), nil

	case OpInsertBefore:
		if len(op.Items) == 0 {
			return nil, fmt.Errorf("%s requires at least one item", op.Kind)
		}
		return splice(items, idx, 0, d.materialize(op.Items)), nil

	case OpInsertAfter:
		if len(op.Items) == 0 {
			return nil, fmt.Errorf("%s requires at least one item", op.Kind)
		}
		return splice(items, idx+1, 0, d.materialize(op.Items)), nil

	case OpRemove:
		return splice(items, idx, 1, nil), nil

	case OpMergeWithNext:
		if idx+1 >= len(items) {
			return nil, ErrNoNeighbor
		}
		return mergePair(items, idx, idx+1, op.Items, d), nil

	case OpMergeWithPrevious:
		if idx == 0 {
			return nil, ErrNoNeighbor
		}
		return mergePair(items, idx-1, idx, op.Items, d), nil

	default:
		return nil, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

// mergePair combines items at positions a < a+1 into one. Explicit
// replacement items take precedence over the automatic concatenation; the
// automatic merge keeps the earlier item's pointer and type and joins
// markdown and text with a blank line.
func mergePair(items []Item, a, b int, explicit []NewItem, d *Document) []Item {
	if len(explicit) > 0 {
		return splice(items, a, 2, d.materialize(explicit))
	}
	merged := items[a]
	merged.Markdown = joinNonEmpty(items[a].Markdown, items[b].Markdown)
	merged.Text = joinNonEmpty(items[a].Text, items[b].Text)
	return splice(items, a, 2, []Item{merged})
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + ParagraphSeparator + b
}

// materialize converts caller-supplied content into items with fresh
// pointer ids. Missing types default to paragraph; missing text is derived
// from the markdown.
func (d *Document) materialize(newItems []NewItem) []Item {
	out := make([]Item, 0, len(newItems))
	for _, ni := range newItems {
		t := ni.Type
		if t == "" {
			t = TypeParagraph
		}
		txt := ni.Text
		if txt == "" {
			txt = PlainText(ni.Markdown)
		}
		out = append(out, Item{
			Type:     t,
			Level:    ni.Level,
			Markdown: ni.Markdown,
			Text:     txt,
			Pointer:  pointerWithID(d.alloc.Next()),
		})
	}
	return out
}

func pointerWithID(id int64) pointer.Pointer {
	return pointer.Pointer{ID: id}
}

func resolveTarget(items []Item, t Target) int {
	if t.Index != nil {
		if *t.Index < 0 || *t.Index >= len(items) {
			return -1
		}
		return *t.Index
	}
	if t.Label == "" {
		return -1
	}
	return findByLabel(items, t.Label)
}

func splice(items []Item, at, remove int, insert []Item) []Item {
	out := make([]Item, 0, len(items)-remove+len(insert))
	out = append(out, items[:at]...)
	out = append(out, insert...)
	out = append(out, items[at+remove:]...)
	return out
}
