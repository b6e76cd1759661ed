package cursor

import (
	"errors"
	"testing"

	"marknav/internal/document"
)

func newTestRegistry() (*Registry, *document.Document) {
	r := NewRegistry(Limits{MaxElements: 10, MaxBytes: 8 * 1024})
	doc := document.Load("# One\n\nalpha\n\nbeta\n\ngamma", "doc-a")
	return r, doc
}

func validParams() Params {
	return Params{MaxElements: 2, MaxBytes: 4 * 1024, IncludeContent: true}
}

func TestCreateAndDrainNamedCursor(t *testing.T) {
	r, doc := newTestRegistry()

	name, err := r.Create(doc, Spec{Params: validParams()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if name == "" {
		t.Fatal("empty generated cursor name")
	}

	total := 0
	for {
		portion, err := r.NextPortion(name)
		if err != nil {
			t.Fatalf("NextPortion failed: %v", err)
		}
		total += len(portion.Items)
		if !portion.HasMore {
			break
		}
	}
	if total != 4 {
		t.Errorf("drained %d items, want 4", total)
	}

	// Exhausted cursors are removed.
	if _, err := r.NextPortion(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("pull on exhausted cursor = %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsBudgetsOverCeiling(t *testing.T) {
	r, doc := newTestRegistry()

	_, err := r.Create(doc, Spec{Params: Params{MaxElements: 100, MaxBytes: 1024}})
	if err == nil {
		t.Error("element budget over the ceiling accepted")
	}

	_, err = r.Create(doc, Spec{Params: Params{MaxElements: 5, MaxBytes: 1 << 20}})
	if err == nil {
		t.Error("byte budget over the ceiling accepted")
	}

	_, err = r.Create(doc, Spec{Params: Params{MaxElements: 0, MaxBytes: 1024}})
	if err == nil {
		t.Error("zero element budget accepted")
	}
}

func TestCreateRejectsDuplicateNames(t *testing.T) {
	r, doc := newTestRegistry()

	if _, err := r.Create(doc, Spec{Name: "c1", Params: validParams()}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := r.Create(doc, Spec{Name: "c1", Params: validParams()}); err == nil {
		t.Error("duplicate cursor name accepted")
	}
}

func TestCreateValidatesSpecKinds(t *testing.T) {
	r, doc := newTestRegistry()

	if _, err := r.Create(doc, Spec{Kind: KindKeyword, Params: validParams()}); err == nil {
		t.Error("keyword cursor without keywords accepted")
	}
	if _, err := r.Create(doc, Spec{Kind: KindQuery, Params: validParams()}); err == nil {
		t.Error("query cursor without a query accepted")
	}
	if _, err := r.Create(doc, Spec{Kind: "mystery", Params: validParams()}); err == nil {
		t.Error("unknown cursor kind accepted")
	}
}

func TestInvalidateDocument(t *testing.T) {
	r, doc := newTestRegistry()
	other := document.Load("# Other\n\ntext", "doc-b")

	name, err := r.Create(doc, Spec{Params: validParams()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	otherName, err := r.Create(other, Spec{Params: validParams()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if n := r.InvalidateDocument(doc.ID()); n != 1 {
		t.Errorf("invalidated %d cursor(s), want 1", n)
	}

	if _, err := r.NextPortion(name); !errors.Is(err, ErrInvalidated) {
		t.Errorf("pull on invalidated cursor = %v, want ErrInvalidated", err)
	}
	// The error pull removes it.
	if _, err := r.NextPortion(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("second pull = %v, want ErrNotFound", err)
	}

	// The other document's cursor is untouched.
	if _, err := r.NextPortion(otherName); err != nil {
		t.Errorf("unrelated cursor failed: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r, doc := newTestRegistry()
	name, err := r.Create(doc, Spec{Name: "c1", Params: validParams()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	r.Close(name)
	r.Close(name)

	if _, err := r.NextPortion(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("pull on closed cursor = %v, want ErrNotFound", err)
	}
}
