package cursor

import (
	"fmt"
	"strings"

	"marknav/internal/document"
)

// Matcher is a stateless per-item filter predicate.
type Matcher interface {
	Match(it document.Item) bool
	Description() string
}

// FullScan matches every item, optionally excluding headings.
type FullScan struct {
	ExcludeHeadings bool
}

func (f FullScan) Match(it document.Item) bool {
	if f.ExcludeHeadings && it.Type == document.TypeHeading {
		return false
	}
	return true
}

func (f FullScan) Description() string {
	if f.ExcludeHeadings {
		return "full scan (headings excluded)"
	}
	return "full scan"
}

// Keyword matches items whose text or markdown contains any variant of the
// given keywords, case-insensitively. Variants include short suffix
// truncations so close inflections still match ("budget" matches the
// keyword "budgets" through the shared stem).
type Keyword struct {
	keywords []string
	variants []string
}

// NewKeyword builds a keyword matcher. Blank keywords are dropped.
func NewKeyword(keywords []string) Keyword {
	var kept []string
	seen := make(map[string]struct{})
	var variants []string
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		kept = append(kept, k)
		for _, v := range expandVariants(k) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			variants = append(variants, v)
		}
	}
	return Keyword{keywords: kept, variants: variants}
}

func (k Keyword) Match(it document.Item) bool {
	if len(k.variants) == 0 {
		return false
	}
	text := strings.ToLower(it.Text)
	md := strings.ToLower(it.Markdown)
	for _, v := range k.variants {
		if strings.Contains(text, v) || strings.Contains(md, v) {
			return true
		}
	}
	return false
}

func (k Keyword) Description() string {
	return fmt.Sprintf("keyword match: %s", strings.Join(k.keywords, ", "))
}

// expandVariants lowercases a keyword and adds truncated stems for longer
// words. Stems never drop below four runes.
func expandVariants(keyword string) []string {
	lower := strings.ToLower(keyword)
	variants := []string{lower}
	runes := []rune(lower)
	for cut := 1; cut <= 2; cut++ {
		n := len(runes) - cut
		if n < 4 {
			break
		}
		variants = append(variants, string(runes[:n]))
	}
	return variants
}

// Query matches items containing a free-text query string, with the same
// per-item mechanics as Keyword but a single literal needle.
type Query struct {
	query string
}

// NewQuery builds a free-text query matcher.
func NewQuery(query string) Query {
	return Query{query: strings.ToLower(strings.TrimSpace(query))}
}

func (q Query) Match(it document.Item) bool {
	if q.query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(it.Text), q.query) ||
		strings.Contains(strings.ToLower(it.Markdown), q.query)
}

func (q Query) Description() string {
	return fmt.Sprintf("free-text query %q", q.query)
}
