package hierarchy

// coverage counts selected descendants against all descendants of one node.
type coverage struct {
	selected int
	total    int
}

// Selection is the eagerly materialized set of selected ids: selecting a node stores the node and
// every descendant it has at that moment.
type Selection struct {
	index    *Index
	ids      map[string]struct{}
	coverage map[string]coverage
}

// NewSelection returns an empty selection over idx.
func NewSelection(idx *Index) *Selection {
	return &Selection{
		index:    idx,
		ids:      make(map[string]struct{}),
		coverage: make(map[string]coverage),
	}
}

// Select adds id and all of its descendants. Unknown ids are ignored and reported as false.
func (s *Selection) Select(id string) bool {
	if _, ok := s.index.Node(id); !ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.index.walkDescendants(id, func(d string) {
		s.ids[d] = struct{}{}
	})
	s.invalidate()
	return true
}

// Deselect removes id and all of its descendants. Unknown ids are ignored and reported as false.
func (s *Selection) Deselect(id string) bool {
	if _, ok := s.index.Node(id); !ok {
		return false
	}
	delete(s.ids, id)
	s.index.walkDescendants(id, func(d string) {
		delete(s.ids, d)
	})
	s.invalidate()
	return true
}

// Clear removes every id.
func (s *Selection) Clear() {
	s.ids = make(map[string]struct{})
	s.invalidate()
}

// Restore replaces the selection with ids as given, without expanding descendants. Ids the index
// does not know are skipped. It returns the number of ids kept.
func (s *Selection) Restore(ids []string) int {
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.index.Node(id); ok {
			s.ids[id] = struct{}{}
		}
	}
	s.invalidate()
	return len(s.ids)
}

// IsSelected reports membership.
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// IsPartiallySelected is true when id is not selected itself, has descendants, and some, but not all,
// of them are selected.
func (s *Selection) IsPartiallySelected(id string) bool {
	if s.IsSelected(id) {
		return false
	}
	c := s.coverageOf(id)
	return c.total > 0 && c.selected > 0 && c.selected < c.total
}

// Coverage returns how many descendants of id are selected out of how many exist.
func (s *Selection) Coverage(id string) (selected, total int) {
	c := s.coverageOf(id)
	return c.selected, c.total
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Selected returns the selected records in index input order.
func (s *Selection) Selected() []Record {
	out := make([]Record, 0, len(s.ids))
	if len(s.ids) == 0 {
		return out
	}
	for _, rec := range s.index.Records() {
		if _, ok := s.ids[rec.ID]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// SelectedIDs returns the selected ids in index input order.
func (s *Selection) SelectedIDs() []string {
	recs := s.Selected()
	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids
}

func (s *Selection) coverageOf(id string) coverage {
	if !s.index.HasChildren(id) {
		return coverage{}
	}
	if c, ok := s.coverage[id]; ok {
		return c
	}
	var c coverage
	s.index.walkDescendants(id, func(d string) {
		c.total++
		if _, ok := s.ids[d]; ok {
			c.selected++
		}
	})
	s.coverage[id] = c
	return c
}

func (s *Selection) invalidate() {
	if len(s.coverage) > 0 {
		s.coverage = make(map[string]coverage)
	}
}
