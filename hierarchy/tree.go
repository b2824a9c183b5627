package hierarchy

// Flags are the derived per-node states the presentation layer renders.
type Flags struct {
	Selected    bool
	Partial     bool
	HasChildren bool
	Expanded    bool
	Match       bool
}

// Notifier receives the full selection, in index order, after every selection change.
type Notifier func(selected []Record)

// Tree owns the index, the selection, the expansion set and the debounced search term of one
// browsing session. It is not safe for concurrent use.
type Tree struct {
	index     *Index
	selection *Selection
	projector *Projector
	expanded  idSet
	search    string
	notify    Notifier
	mutating  bool

	visible      []Record
	visibleValid bool
}

// New indexes records and returns a fresh session state.
func New(records []Record) *Tree {
	return NewTree(NewIndex(records))
}

// NewTree returns a session state over an existing index.
func NewTree(idx *Index) *Tree {
	return &Tree{
		index:     idx,
		selection: NewSelection(idx),
		projector: NewProjector(idx),
		expanded:  make(idSet),
	}
}

// Index exposes the underlying lookup structure.
func (t *Tree) Index() *Index {
	return t.index
}

// OnSelectionChange registers fn to be called synchronously after Select, Deselect, Toggle and Clear.
func (t *Tree) OnSelectionChange(fn Notifier) {
	t.notify = fn
}

// Select selects id and its descendants.
func (t *Tree) Select(id string) bool {
	return t.mutate(func() bool { return t.selection.Select(id) })
}

// Deselect deselects id and its descendants.
func (t *Tree) Deselect(id string) bool {
	return t.mutate(func() bool { return t.selection.Deselect(id) })
}

// Toggle deselects id when it is selected, selects it otherwise. It returns the new state.
func (t *Tree) Toggle(id string) bool {
	if t.selection.IsSelected(id) {
		t.Deselect(id)
	} else {
		t.Select(id)
	}
	return t.selection.IsSelected(id)
}

// Clear deselects everything.
func (t *Tree) Clear() {
	t.mutate(func() bool {
		t.selection.Clear()
		return true
	})
}

// Restore applies a selection read back from the host without notifying.
func (t *Tree) Restore(ids []string) int {
	return t.selection.Restore(ids)
}

// mutate runs fn and notifies on success. Calls made from inside the notifier are dropped.
func (t *Tree) mutate(fn func() bool) bool {
	if t.mutating {
		return false
	}
	t.mutating = true
	defer func() { t.mutating = false }()

	if !fn() {
		return false
	}
	if t.notify != nil {
		t.notify(t.selection.Selected())
	}
	return true
}

// IsSelected reports whether id is selected.
func (t *Tree) IsSelected(id string) bool {
	return t.selection.IsSelected(id)
}

// IsPartiallySelected reports whether id is unselected while some but not all of its descendants are.
func (t *Tree) IsPartiallySelected(id string) bool {
	return t.selection.IsPartiallySelected(id)
}

// Coverage returns selected and total descendant counts for id.
func (t *Tree) Coverage(id string) (selected, total int) {
	return t.selection.Coverage(id)
}

// Selected returns the selected records in index order.
func (t *Tree) Selected() []Record {
	return t.selection.Selected()
}

// SelectedIDs returns the selected ids in index order.
func (t *Tree) SelectedIDs() []string {
	return t.selection.SelectedIDs()
}

// SelectedCount returns the number of selected ids.
func (t *Tree) SelectedCount() int {
	return t.selection.Len()
}

// HasChildren reports whether id has children.
func (t *Tree) HasChildren(id string) bool {
	return t.index.HasChildren(id)
}

// IsExpanded reports whether id is in the expansion set.
func (t *Tree) IsExpanded(id string) bool {
	_, ok := t.expanded[id]
	return ok
}

// ExpandedIDs returns the expansion set in index order.
func (t *Tree) ExpandedIDs() []string {
	ids := make([]string, 0, len(t.expanded))
	for _, rec := range t.index.Records() {
		if _, ok := t.expanded[rec.ID]; ok {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

// ToggleExpanded flips the expansion of id. It only acts in plain mode on nodes with children and
// reports whether anything changed.
func (t *Tree) ToggleExpanded(id string) bool {
	return t.SetExpanded(id, !t.IsExpanded(id))
}

// SetExpanded expands or collapses id under the same rules as ToggleExpanded.
func (t *Tree) SetExpanded(id string, expanded bool) bool {
	if t.Searching() || !t.index.HasChildren(id) || t.IsExpanded(id) == expanded {
		return false
	}
	if expanded {
		t.expanded[id] = struct{}{}
	} else {
		delete(t.expanded, id)
	}
	t.visibleValid = false
	return true
}

// CollapseAll empties the expansion set in plain mode.
func (t *Tree) CollapseAll() {
	if t.Searching() {
		return
	}
	t.expanded = make(idSet)
	t.visibleValid = false
}

// SetSearch applies a debounced search term. A non-empty term replaces the expansion set with the
// matches and their ancestors; an empty term collapses everything.
func (t *Tree) SetSearch(term string) {
	if term == t.search {
		return
	}
	t.search = term
	if term == "" {
		t.expanded = make(idSet)
	} else {
		t.expanded = t.projector.AutoExpand(term)
	}
	t.visibleValid = false
}

// SearchTerm returns the debounced search term in effect.
func (t *Tree) SearchTerm() string {
	return t.search
}

// Searching reports whether search mode is active.
func (t *Tree) Searching() bool {
	return t.search != ""
}

// MatchCount returns the number of nodes matching the active search term.
func (t *Tree) MatchCount() int {
	if !t.Searching() {
		return 0
	}
	return len(t.projector.Matches(t.search))
}

// Visible returns the ordered rows the presentation layer should draw.
func (t *Tree) Visible() []Record {
	if t.visibleValid {
		return t.visible
	}
	if t.Searching() {
		t.visible = t.projector.Search(t.search)
	} else {
		t.visible = t.projector.Plain(t.IsExpanded)
	}
	t.visibleValid = true
	return t.visible
}

// Flags returns every derived state of id at once.
func (t *Tree) Flags(id string) Flags {
	f := Flags{
		Selected:    t.selection.IsSelected(id),
		Partial:     t.selection.IsPartiallySelected(id),
		HasChildren: t.index.HasChildren(id),
		Expanded:    t.IsExpanded(id),
	}
	if t.Searching() {
		_, f.Match = t.projector.Matches(t.search)[id]
	}
	return f
}
