// Package document implements the linear document model: a Markdown source
// normalized into a flat, pointer-addressed sequence of typed items, plus
// the edit operation engine that mutates it. All structural mutation goes
// through a full reindex; heading-driven numbering is non-local, so partial
// pointer patching is never attempted.
package document

import (
	"marknav/internal/pointer"
)

// ItemType classifies a linear item.
type ItemType string

const (
	TypeHeading       ItemType = "heading"
	TypeParagraph     ItemType = "paragraph"
	TypeListItem      ItemType = "list_item"
	TypeCode          ItemType = "code"
	TypeThematicBreak ItemType = "thematic_break"
	TypeHTML          ItemType = "html"
)

// Item is one addressable unit of a linear document.
type Item struct {
	// Index is the item's position in the owning sequence, 0-based and
	// dense. It is recomputed on every reindex and never persisted.
	Index int `json:"index"`

	Type ItemType `json:"type"`

	// Level is the heading depth 1-6 for headings, 0 otherwise.
	Level int `json:"level,omitempty"`

	// Markdown is the normalized source for this item.
	Markdown string `json:"markdown,omitempty"`

	// Text is the plain-text extraction of Markdown.
	Text string `json:"text,omitempty"`

	Pointer pointer.Pointer `json:"-"`
}

// ParagraphSeparator joins item markdown back into SourceText.
const ParagraphSeparator = "\n\n"
