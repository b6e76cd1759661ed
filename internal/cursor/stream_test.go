package cursor

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"marknav/internal/document"
)

func testItems(t *testing.T, markdown string) []document.Item {
	t.Helper()
	return document.Load(markdown, "test-doc").Items()
}

func drain(t *testing.T, s *Stream) []document.Item {
	t.Helper()
	var all []document.Item
	finals := 0
	for i := 0; i < 1000; i++ {
		portion, err := s.NextPortion()
		if err != nil {
			t.Fatalf("NextPortion failed: %v", err)
		}
		all = append(all, portion.Items...)
		if !portion.HasMore {
			finals++
			break
		}
	}
	if finals != 1 {
		t.Fatal("stream never reported hasMore=false")
	}
	return all
}

const sixItemDoc = "# One\n\nalpha\n\nbeta\n\n# Two\n\ngamma\n\ndelta"

func TestPortionRespectsElementBudget(t *testing.T) {
	items := testItems(t, sixItemDoc)
	s := NewStream(items, Start{}, Forward, Params{MaxElements: 2, MaxBytes: 1 << 20, IncludeContent: true}, nil)

	portion, err := s.NextPortion()
	if err != nil {
		t.Fatalf("NextPortion failed: %v", err)
	}
	if len(portion.Items) != 2 {
		t.Errorf("got %d items, want 2", len(portion.Items))
	}
	if !portion.HasMore {
		t.Error("HasMore = false with four items left")
	}
}

// Draining with any budget yields the same items in the same order as one
// giant portion would.
func TestBatchingInvariance(t *testing.T) {
	items := testItems(t, sixItemDoc)

	one := drain(t, NewStream(items, Start{}, Forward,
		Params{MaxElements: 100, MaxBytes: 1 << 20, IncludeContent: true}, nil))
	tiny := drain(t, NewStream(items, Start{}, Forward,
		Params{MaxElements: 1, MaxBytes: 1 << 20, IncludeContent: true}, nil))

	if len(one) != len(items) {
		t.Fatalf("drain lost items: %d of %d", len(one), len(items))
	}
	if diff := cmp.Diff(one, tiny); diff != "" {
		t.Errorf("batch size changed the drained sequence (-coarse +fine):\n%s", diff)
	}
}

func TestBackwardTraversalReverses(t *testing.T) {
	items := testItems(t, sixItemDoc)
	got := drain(t, NewStream(items, Start{AtEnd: true}, Backward,
		Params{MaxElements: 2, MaxBytes: 1 << 20, IncludeContent: true}, nil))

	if len(got) != len(items) {
		t.Fatalf("got %d items, want %d", len(got), len(items))
	}
	for i := range got {
		want := items[len(items)-1-i]
		if !got[i].Pointer.Equal(want.Pointer) {
			t.Errorf("position %d = %s, want %s", i, got[i].Pointer, want.Pointer)
		}
	}
}

func TestOversizedFirstItemIsAdmitted(t *testing.T) {
	big := strings.Repeat("x", 4096)
	items := testItems(t, "small\n\n"+big+"\n\nsmall again")
	s := NewStream(items, Start{}, Forward,
		Params{MaxElements: 10, MaxBytes: 256, IncludeContent: true}, nil)

	first, err := s.NextPortion()
	if err != nil {
		t.Fatalf("NextPortion failed: %v", err)
	}
	if len(first.Items) != 1 || first.Items[0].Markdown != "small" {
		t.Fatalf("first portion = %d items", len(first.Items))
	}

	second, err := s.NextPortion()
	if err != nil {
		t.Fatalf("NextPortion failed: %v", err)
	}
	if len(second.Items) != 1 || len(second.Items[0].Markdown) != 4096 {
		t.Errorf("oversized item not admitted alone: %d items", len(second.Items))
	}
	if !second.HasMore {
		t.Error("HasMore = false with one item left")
	}
}

func TestHasMoreFalseExactlyOnce(t *testing.T) {
	items := testItems(t, "only one paragraph")
	s := NewStream(items, Start{}, Forward,
		Params{MaxElements: 10, MaxBytes: 1 << 20, IncludeContent: true}, nil)

	portion, err := s.NextPortion()
	if err != nil {
		t.Fatalf("NextPortion failed: %v", err)
	}
	if portion.HasMore {
		t.Error("HasMore = true on the final portion")
	}
	if !s.Complete() {
		t.Error("stream not complete after final portion")
	}

	if _, err := s.NextPortion(); !errors.Is(err, ErrComplete) {
		t.Errorf("pull after completion = %v, want ErrComplete", err)
	}
}

func TestStartAfterPointer(t *testing.T) {
	items := testItems(t, sixItemDoc)
	// Resume just after "beta".
	after := items[2].Pointer.ID
	got := drain(t, NewStream(items, Start{AfterPointer: after}, Forward,
		Params{MaxElements: 10, MaxBytes: 1 << 20, IncludeContent: true}, nil))

	if len(got) != 3 {
		t.Fatalf("got %d items, want 3", len(got))
	}
	if got[0].Markdown != "# Two" {
		t.Errorf("resume point = %q, want # Two", got[0].Markdown)
	}
}

func TestFilteredItemsAreConsumed(t *testing.T) {
	items := testItems(t, sixItemDoc)
	got := drain(t, NewStream(items, Start{}, Forward,
		Params{MaxElements: 1, MaxBytes: 1 << 20, IncludeContent: true},
		FullScan{ExcludeHeadings: true}))

	if len(got) != 4 {
		t.Fatalf("got %d items, want 4 non-headings", len(got))
	}
	for _, it := range got {
		if it.Type == document.TypeHeading {
			t.Errorf("heading %q leaked through the filter", it.Markdown)
		}
	}
}

func TestInvalidatedStreamRefuses(t *testing.T) {
	items := testItems(t, sixItemDoc)
	s := NewStream(items, Start{}, Forward,
		Params{MaxElements: 2, MaxBytes: 1 << 20, IncludeContent: true}, nil)

	if _, err := s.NextPortion(); err != nil {
		t.Fatalf("NextPortion failed: %v", err)
	}
	s.Invalidate()

	if _, err := s.NextPortion(); !errors.Is(err, ErrInvalidated) {
		t.Errorf("pull after invalidation = %v, want ErrInvalidated", err)
	}
}

func TestStructureOnlyPortionOmitsContent(t *testing.T) {
	items := testItems(t, sixItemDoc)
	s := NewStream(items, Start{}, Forward,
		Params{MaxElements: 10, MaxBytes: 1 << 20, IncludeContent: false}, nil)

	portion, err := s.NextPortion()
	if err != nil {
		t.Fatalf("NextPortion failed: %v", err)
	}
	for _, it := range portion.Items {
		if it.Markdown != "" || it.Text != "" {
			t.Errorf("structure-only item carries content: %+v", it)
		}
	}
}
