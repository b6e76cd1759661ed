package cursor

import (
	"testing"

	"marknav/internal/document"
)

func para(text string) document.Item {
	return document.Item{Type: document.TypeParagraph, Markdown: text, Text: text}
}

func TestKeywordMatchesCaseInsensitively(t *testing.T) {
	k := NewKeyword([]string{"Budget"})

	if !k.Match(para("the BUDGET was exceeded")) {
		t.Error("case-insensitive match failed")
	}
	if k.Match(para("nothing relevant here")) {
		t.Error("matched unrelated text")
	}
}

func TestKeywordTruncationVariants(t *testing.T) {
	k := NewKeyword([]string{"budgets"})

	// The truncated stems let inflected forms match.
	if !k.Match(para("the budget was cut in half")) {
		t.Error("stem variant did not match singular form")
	}
}

func TestKeywordShortWordsGetNoStems(t *testing.T) {
	k := NewKeyword([]string{"care"})

	if k.Match(para("the car broke down")) {
		t.Error("four-letter keyword must not be truncated into a false match")
	}
}

func TestKeywordIgnoresBlankEntries(t *testing.T) {
	k := NewKeyword([]string{"", "  ", "real"})

	if !k.Match(para("a real example")) {
		t.Error("surviving keyword did not match")
	}
	if k.Match(para("")) {
		t.Error("blank keywords must not match everything")
	}
}

func TestQueryMatchesSubstring(t *testing.T) {
	q := NewQuery("error budget")

	if !q.Match(para("Our Error Budget policy says...")) {
		t.Error("query substring match failed")
	}
	if q.Match(para("error handling without the phrase")) {
		t.Error("partial phrase matched")
	}
}

func TestQueryEmptyMatchesNothing(t *testing.T) {
	q := NewQuery("   ")
	if q.Match(para("anything")) {
		t.Error("empty query matched")
	}
}

func TestFullScanExcludeHeadings(t *testing.T) {
	h := document.Item{Type: document.TypeHeading, Markdown: "# H"}

	if (FullScan{}).Match(h) != true {
		t.Error("plain full scan must match headings")
	}
	if (FullScan{ExcludeHeadings: true}).Match(h) {
		t.Error("exclusion did not drop the heading")
	}
}
