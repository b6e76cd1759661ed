package document

import "testing"

func TestLoadRoundTripsCanonicalSource(t *testing.T) {
	src := "# Title\n\nFirst paragraph\n\nSecond paragraph"
	doc := Load(src, "d1")

	if got := doc.SourceText(); got != src {
		t.Errorf("SourceText() = %q, want %q", got, src)
	}
	if doc.Len() != 3 {
		t.Errorf("Len() = %d, want 3", doc.Len())
	}
}

func TestLoadNormalizesLineEndings(t *testing.T) {
	doc := Load("# Title\r\n\r\nbody\r\n", "d1")
	if doc.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", doc.Len())
	}
	if got := doc.SourceText(); got != "# Title\n\nbody" {
		t.Errorf("SourceText() = %q", got)
	}
}

func TestItemByLabelIsCaseInsensitive(t *testing.T) {
	doc := Load("# Title\n\nbody", "d1")

	it, ok := doc.ItemByLabel("1.P1")
	if !ok {
		t.Fatal("ItemByLabel(1.P1) not found")
	}
	if it.Markdown != "body" {
		t.Errorf("got %q, want body", it.Markdown)
	}

	if _, ok := doc.ItemByLabel("9.p9"); ok {
		t.Error("ItemByLabel(9.p9) found a match, want miss")
	}
}

func TestReloadKeepsIDAndAllocator(t *testing.T) {
	doc := Load("# Title\n\nbody", "d1")
	gen := doc.Generation()

	var maxID int64
	for _, it := range doc.Items() {
		if it.Pointer.ID > maxID {
			maxID = it.Pointer.ID
		}
	}

	doc.Reload("# Other\n\nnew body\n\nmore")

	if doc.ID() != "d1" {
		t.Errorf("ID changed to %q across reload", doc.ID())
	}
	if doc.Generation() != gen+1 {
		t.Errorf("Generation() = %d, want %d", doc.Generation(), gen+1)
	}
	for _, it := range doc.Items() {
		if it.Pointer.ID <= maxID {
			t.Errorf("item %q got recycled id %d (pre-reload max %d)", it.Markdown, it.Pointer.ID, maxID)
		}
	}
}

func TestItemsSnapshotIsStable(t *testing.T) {
	doc := Load("# Title\n\nbody", "d1")
	snapshot := doc.Items()

	doc.Reload("completely different")

	if len(snapshot) != 2 || snapshot[0].Markdown != "# Title" {
		t.Error("snapshot mutated by a later reload")
	}
}
