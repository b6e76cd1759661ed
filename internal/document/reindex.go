package document

import (
	"strconv"
	"strings"
)

// reindex recomputes indices, pointer labels, and the joined source text
// for an item sequence. It is the only way pointers become consistent after
// a mutation: heading numbering is non-local (one insertion can shift every
// later label), so the whole sequence is always recomputed. Pointer ids are
// untouched.
func reindex(items []Item) string {
	var counters [6]int
	headingLabel := ""
	paragraph := 0

	var src strings.Builder
	for i := range items {
		it := &items[i]
		it.Index = i

		if it.Type == TypeHeading {
			level := it.Level
			if level < 1 {
				level = 1
			}
			if level > len(counters) {
				level = len(counters)
			}
			counters[level-1]++
			for d := level; d < len(counters); d++ {
				counters[d] = 0
			}
			headingLabel = joinCounters(counters[:level])
			paragraph = 0
			it.Pointer.Label = headingLabel
		} else {
			paragraph++
			if headingLabel == "" {
				it.Pointer.Label = "p" + strconv.Itoa(paragraph)
			} else {
				it.Pointer.Label = headingLabel + ".p" + strconv.Itoa(paragraph)
			}
		}

		if i > 0 {
			src.WriteString(ParagraphSeparator)
		}
		src.WriteString(it.Markdown)
	}
	return src.String()
}

func joinCounters(counters []int) string {
	parts := make([]string, len(counters))
	for i, c := range counters {
		parts[i] = strconv.Itoa(c)
	}
	return strings.Join(parts, ".")
}
