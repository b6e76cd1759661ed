package cursor

import (
	"encoding/json"
	"sync"

	"marknav/internal/document"
	"marknav/internal/logging"
)

// Stream pages a snapshot of a document's item sequence. States are Active
// and Complete; NextPortion is the only transition-producing operation, and
// the transition fires when a portion reaches a sequence boundary.
//
// Match predicates are stateless and evaluated per item. A predicate that
// depends on earlier portions ("the third occurrence") would break the
// budget contract and cross-portion determinism, so none exists here.
type Stream struct {
	mu          sync.Mutex
	items       []document.Item
	pos         int
	dir         Direction
	params      Params
	match       Matcher
	complete    bool
	invalidated bool
}

// NewStream creates a stream over the given item snapshot. match may be
// nil (full scan). Params are assumed validated by the caller (the
// registry validates against its ceilings).
func NewStream(items []document.Item, start Start, dir Direction, params Params, match Matcher) *Stream {
	s := &Stream{
		items:  items,
		dir:    dir,
		params: params,
		match:  match,
	}
	s.pos = s.startPosition(start)
	return s
}

func (s *Stream) startPosition(start Start) int {
	if start.AfterPointer > 0 {
		for i := range s.items {
			if s.items[i].Pointer.ID == start.AfterPointer {
				if s.dir == Backward {
					return i - 1
				}
				return i + 1
			}
		}
	}
	if start.AtEnd || s.dir == Backward {
		if s.dir == Backward {
			return len(s.items) - 1
		}
		return len(s.items)
	}
	return 0
}

// Complete reports whether the stream reached a boundary.
func (s *Stream) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Invalidate marks the stream unusable. Called when the underlying
// document is edited or reloaded while the cursor is open; the snapshot it
// holds no longer resolves against the live document.
func (s *Stream) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated = true
}

// Description reports the stream's filter in human-readable form.
func (s *Stream) Description() string {
	if s.match == nil {
		return "full document scan"
	}
	return s.match.Description()
}

// NextPortion produces the next bounded batch.
//
// The walk admits an item when doing so keeps the portion within both
// budgets, with one exception: the first item of an otherwise-empty portion
// is admitted even if it alone exceeds the byte budget. Without that rule a
// single oversized item would starve the stream. Filtered-out items are
// consumed (the position moves past them); an item rejected only for
// budget reasons is not consumed and opens the next portion.
func (s *Stream) NextPortion() (Portion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.invalidated {
		return Portion{}, ErrInvalidated
	}
	if s.complete {
		return Portion{}, ErrComplete
	}

	var out []document.Item
	usedBytes := 0

	for s.inBounds() {
		if len(out) >= s.params.MaxElements {
			break
		}
		it := s.items[s.pos]
		if s.match != nil && !s.match.Match(it) {
			s.advance()
			continue
		}
		size := itemSize(it, s.params.IncludeContent)
		if len(out) > 0 && usedBytes+size > s.params.MaxBytes {
			break
		}
		out = append(out, payload(it, s.params.IncludeContent))
		usedBytes += size
		s.advance()
	}

	hasMore := s.inBounds()
	if !hasMore {
		s.complete = true
	}
	logging.CursorDebug("portion: %d items, %d bytes, hasMore=%v", len(out), usedBytes, hasMore)
	return Portion{Items: out, HasMore: hasMore}, nil
}

func (s *Stream) inBounds() bool {
	if s.dir == Backward {
		return s.pos >= 0
	}
	return s.pos < len(s.items)
}

func (s *Stream) advance() {
	if s.dir == Backward {
		s.pos--
	} else {
		s.pos++
	}
}

// wireItem is the stable encoding whose UTF-8 length defines an item's
// serialized size for budget accounting.
type wireItem struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Level   int    `json:"level,omitempty"`
	Pointer string `json:"pointer"`

	Markdown string `json:"markdown,omitempty"`
	Text     string `json:"text,omitempty"`
}

func itemSize(it document.Item, includeContent bool) int {
	w := wireItem{
		Index:   it.Index,
		Type:    string(it.Type),
		Level:   it.Level,
		Pointer: it.Pointer.Compact(),
	}
	if includeContent {
		w.Markdown = it.Markdown
		w.Text = it.Text
	}
	b, err := json.Marshal(w)
	if err != nil {
		// Marshal of a plain struct with string fields cannot fail;
		// fall back to the raw content length if it somehow does.
		return len(it.Markdown)
	}
	return len(b)
}

// payload strips content when the caller asked for structure only.
func payload(it document.Item, includeContent bool) document.Item {
	if includeContent {
		return it
	}
	it.Markdown = ""
	it.Text = ""
	return it
}
