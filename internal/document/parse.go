package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"marknav/internal/pointer"
)

// engine is the shared goldmark instance. The parser is stateless, so one
// instance serves all documents without locking.
var engine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
	),
)

// parseItems turns normalized Markdown into linear items. Container blocks
// (lists, block quotes) are flattened: every leaf inside gets its own item
// and pointer. Ids are minted from the supplied allocator in document
// order; labels are left empty for the reindexer.
func parseItems(source string, alloc *pointer.Allocator) []Item {
	src := []byte(source)
	root := engine.Parser().Parse(text.NewReader(src))

	var items []Item
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		items = appendBlock(items, n, src, alloc, "")
	}
	return items
}

// appendBlock converts one block node (recursing into containers) and
// appends the resulting items. prefix carries the normalized line prefix
// for nested leaves ("- " inside lists, "> " inside quotes).
func appendBlock(items []Item, n ast.Node, src []byte, alloc *pointer.Allocator, prefix string) []Item {
	switch b := n.(type) {
	case *ast.Heading:
		txt := inlineText(b, src)
		items = append(items, newItem(TypeHeading, b.Level,
			strings.Repeat("#", b.Level)+" "+txt, txt, alloc))

	case *ast.Paragraph:
		txt := inlineText(b, src)
		items = append(items, newItem(TypeParagraph, 0, prefix+blockLines(b, src), txt, alloc))

	case *ast.TextBlock:
		// Tight list items carry their text in a TextBlock.
		txt := inlineText(b, src)
		items = append(items, newItem(TypeListItem, 0, prefix+blockLines(b, src), txt, alloc))

	case *ast.List:
		for li := b.FirstChild(); li != nil; li = li.NextSibling() {
			for c := li.FirstChild(); c != nil; c = c.NextSibling() {
				switch c.(type) {
				case *ast.TextBlock, *ast.Paragraph:
					txt := inlineText(c, src)
					items = append(items, newItem(TypeListItem, 0, "- "+blockLines(c, src), txt, alloc))
				default:
					items = appendBlock(items, c, src, alloc, prefix)
				}
			}
		}

	case *ast.Blockquote:
		for c := b.FirstChild(); c != nil; c = c.NextSibling() {
			items = appendBlock(items, c, src, alloc, "> ")
		}

	case *ast.FencedCodeBlock:
		info := ""
		if b.Info != nil {
			info = string(b.Info.Value(src))
		}
		code := rawLines(b, src)
		items = append(items, newItem(TypeCode, 0,
			"```"+info+"\n"+code+"```", strings.TrimRight(code, "\n"), alloc))

	case *ast.CodeBlock:
		code := rawLines(b, src)
		items = append(items, newItem(TypeCode, 0,
			"```\n"+code+"```", strings.TrimRight(code, "\n"), alloc))

	case *ast.ThematicBreak:
		items = append(items, newItem(TypeThematicBreak, 0, "---", "", alloc))

	case *ast.HTMLBlock:
		raw := strings.TrimRight(rawLines(b, src), "\n")
		items = append(items, newItem(TypeHTML, 0, raw, "", alloc))

	default:
		// Unknown container (tables, footnote defs from GFM): flatten.
		if n.Type() == ast.TypeBlock && n.HasChildren() {
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				items = appendBlock(items, c, src, alloc, prefix)
			}
		} else if n.Type() == ast.TypeBlock {
			if raw := strings.TrimRight(rawLines(n, src), "\n"); raw != "" {
				items = append(items, newItem(TypeParagraph, 0, prefix+raw, inlineText(n, src), alloc))
			}
		}
	}
	return items
}

func newItem(t ItemType, level int, markdown, txt string, alloc *pointer.Allocator) Item {
	return Item{
		Type:     t,
		Level:    level,
		Markdown: markdown,
		Text:     txt,
		Pointer:  pointer.Pointer{ID: alloc.Next()},
	}
}

// blockLines returns the verbatim source lines of a leaf block with the
// trailing newline trimmed.
func blockLines(n ast.Node, src []byte) string {
	return strings.TrimRight(rawLines(n, src), "\n")
}

func rawLines(n ast.Node, src []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return b.String()
}

// inlineText extracts plain text from a node's inline content. Soft line
// breaks collapse to single spaces.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	collectText(n, src, &b)
	return strings.TrimSpace(b.String())
}

func collectText(n ast.Node, src []byte, b *strings.Builder) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			collectText(c, src, b)
		}
	}
}

// PlainText extracts plain text from a standalone Markdown fragment. The
// edit engine uses it to backfill Item.Text for caller-supplied items.
func PlainText(markdown string) string {
	src := []byte(markdown)
	root := engine.Parser().Parse(text.NewReader(src))
	var parts []string
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		if s := inlineText(n, src); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
