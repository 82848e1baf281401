package memory

// MarkSet records the ids reachable from a set of roots.
type MarkSet struct {
	marked []bool
	count  int
}

func (m *MarkSet) Marked(id RefID) bool {
	if id < 0 || int(id) >= len(m.marked) {
		return false
	}

	return m.marked[id]
}

// Reachable returns the number of marked ids.
func (m *MarkSet) Reachable() int {
	return m.count
}

func (m *MarkSet) Len() int {
	return len(m.marked)
}

func (m *MarkSet) mark(id RefID) bool {
	if id == Nil || m.marked[id] {
		return false
	}

	m.marked[id] = true
	m.count++

	return true
}

// Mark walks every cell reachable from roots. Cycles are fine: an id is only
// scanned the first time it is marked.
func Mark(t *Table, roots []RefID) (*MarkSet, error) {
	set := &MarkSet{
		marked: make([]bool, t.Len()),
	}

	var stack []RefID
	for _, root := range roots {
		if root == Nil {
			continue
		}

		_, err := t.Slot(root)
		if err != nil {
			return nil, err
		}

		if set.mark(root) {
			stack = append(stack, root)
		}
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		ref, err := t.Deref(id)
		if err != nil {
			return nil, err
		}

		var links []RefID
		switch ref := ref.(type) {
		case ListCell:
			links = []RefID{ref.Next, ref.Value}
		case DictCell:
			links = []RefID{ref.Next, ref.Key, ref.Value}
		}

		for _, link := range links {
			if link == Nil {
				continue
			}

			_, err := t.Slot(link)
			if err != nil {
				return nil, err
			}

			if set.mark(link) {
				stack = append(stack, link)
			}
		}
	}

	return set, nil
}
