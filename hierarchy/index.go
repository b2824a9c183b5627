package hierarchy

import "strings"

// rootKey is the childrenOf key for nodes without a resolvable parent.
const rootKey = ""

// Index is the read-only lookup structure built from a record set.
type Index struct {
	records     []Record
	byID        map[string]int
	childrenOf  map[string][]string
	hasChildren map[string]bool
	lowerIDs    []string
	lowerLabels []string
	duplicates  int
}

// NewIndex builds the index in two passes so children may appear before their parents.
// Later records reusing an id are ignored. A parent id that names no record makes the node a root.
func NewIndex(records []Record) *Index {
	idx := &Index{
		records:     make([]Record, 0, len(records)),
		byID:        make(map[string]int, len(records)),
		childrenOf:  make(map[string][]string),
		hasChildren: make(map[string]bool),
	}

	for _, rec := range records {
		if rec.ID == rootKey {
			continue
		}
		if _, exists := idx.byID[rec.ID]; exists {
			idx.duplicates++
			continue
		}
		idx.byID[rec.ID] = len(idx.records)
		idx.records = append(idx.records, rec)
	}

	idx.lowerIDs = make([]string, len(idx.records))
	idx.lowerLabels = make([]string, len(idx.records))
	for i, rec := range idx.records {
		parent := rec.ParentID
		if _, ok := idx.byID[parent]; !ok {
			parent = rootKey
		}
		idx.childrenOf[parent] = append(idx.childrenOf[parent], rec.ID)
		if parent != rootKey {
			idx.hasChildren[parent] = true
		}
		idx.lowerIDs[i] = strings.ToLower(rec.ID)
		idx.lowerLabels[i] = strings.ToLower(rec.Label)
	}

	return idx
}

// Len returns the number of distinct records.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Duplicates returns how many records were ignored because their id was already taken.
func (idx *Index) Duplicates() int {
	return idx.duplicates
}

// Records returns all records in input order.
func (idx *Index) Records() []Record {
	return idx.records
}

// Node looks up a record by id.
func (idx *Index) Node(id string) (Record, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return Record{}, false
	}
	return idx.records[i], true
}

// Roots returns the ids of nodes without a resolvable parent, in input order.
func (idx *Index) Roots() []string {
	return idx.childrenOf[rootKey]
}

// Children returns the direct children of id in input order.
func (idx *Index) Children(id string) []string {
	if id == rootKey {
		return nil
	}
	return idx.childrenOf[id]
}

// HasChildren reports whether id has at least one child.
func (idx *Index) HasChildren(id string) bool {
	return idx.hasChildren[id]
}

// ParentOf returns the resolved parent id, or "" when the node is a root or unknown.
func (idx *Index) ParentOf(id string) string {
	rec, ok := idx.Node(id)
	if !ok {
		return ""
	}
	if _, ok := idx.byID[rec.ParentID]; !ok {
		return ""
	}
	return rec.ParentID
}

// Descendants returns every id reachable from id through child links, excluding id itself.
// The walk tracks visited ids, so cyclic data yields a finite result.
func (idx *Index) Descendants(id string) []string {
	var out []string
	idx.walkDescendants(id, func(child string) {
		out = append(out, child)
	})
	return out
}

func (idx *Index) walkDescendants(id string, fn func(string)) {
	if !idx.hasChildren[id] {
		return
	}
	visited := map[string]bool{id: true}
	stack := append([]string(nil), idx.childrenOf[id]...)
	for len(stack) > 0 {
		n := len(stack) - 1
		cur := stack[n]
		stack = stack[:n]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		fn(cur)
		stack = append(stack, idx.childrenOf[cur]...)
	}
}

// Ancestors returns the proper ancestors of id, nearest first. The walk stops at a root, an
// unknown parent, or the first id seen twice.
func (idx *Index) Ancestors(id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	for cur := idx.ParentOf(id); cur != ""; cur = idx.ParentOf(cur) {
		if visited[cur] {
			break
		}
		visited[cur] = true
		out = append(out, cur)
	}
	return out
}

// matches reports whether the record at position i contains the lower-cased term in its id or label.
func (idx *Index) matches(i int, term string) bool {
	return strings.Contains(idx.lowerLabels[i], term) || strings.Contains(idx.lowerIDs[i], term)
}
