package agent

// evidenceSet accumulates accepted evidence in insertion order,
// deduplicated by pointer. Once the cap is reached new items are
// refused; accepted items are never evicted.
type evidenceSet struct {
	items    []EvidenceItem
	pointers map[string]struct{}
	cap      int
}

func newEvidenceSet(capacity int) *evidenceSet {
	return &evidenceSet{
		pointers: make(map[string]struct{}),
		cap:      capacity,
	}
}

// add accepts the item unless it is a duplicate or the set is full.
func (e *evidenceSet) add(item EvidenceItem) bool {
	if _, dup := e.pointers[item.Pointer]; dup {
		return false
	}
	if len(e.items) >= e.cap {
		return false
	}
	e.items = append(e.items, item)
	e.pointers[item.Pointer] = struct{}{}
	return true
}

func (e *evidenceSet) has(pointer string) bool {
	_, ok := e.pointers[pointer]
	return ok
}

func (e *evidenceSet) len() int { return len(e.items) }

// recentPointers returns up to n of the most recently accepted
// pointers, oldest first.
func (e *evidenceSet) recentPointers(n int) []string {
	start := len(e.items) - n
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(e.items)-start)
	for _, it := range e.items[start:] {
		out = append(out, it.Pointer)
	}
	return out
}

func (e *evidenceSet) all() []EvidenceItem {
	out := make([]EvidenceItem, len(e.items))
	copy(out, e.items)
	return out
}
