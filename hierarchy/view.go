package hierarchy

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// matchCacheSize bounds the number of search terms whose match sets are kept.
const matchCacheSize = 64

type idSet = map[string]struct{}

// Projector flattens the forest into the ordered list of visible records.
type Projector struct {
	index   *Index
	matches *lru.Cache[string, idSet]
}

// NewProjector returns a projector over idx. The index must not change afterwards.
func NewProjector(idx *Index) *Projector {
	// lru.New only fails for a non-positive size
	cache, _ := lru.New[string, idSet](matchCacheSize)
	return &Projector{
		index:   idx,
		matches: cache,
	}
}

// Plain emits roots in order and descends into a node's children only when expanded reports true.
func (p *Projector) Plain(expanded func(id string) bool) []Record {
	return p.project(func(string) bool { return true }, expanded)
}

// Search emits every node that matches term or is an ancestor of a match, descending only into
// included children. Roots that are not included are skipped with their whole subtree.
func (p *Projector) Search(term string) []Record {
	matches, context := p.Included(term)
	included := func(id string) bool {
		if _, ok := matches[id]; ok {
			return true
		}
		_, ok := context[id]
		return ok
	}
	return p.project(included, func(string) bool { return true })
}

// project walks the forest depth first with an explicit stack. A node is emitted when include
// accepts it; its children are considered when descend accepts it.
func (p *Projector) project(include, descend func(string) bool) []Record {
	var out []Record
	visited := make(map[string]bool)

	roots := p.index.Roots()
	stack := make([]string, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, roots[i])
	}

	for len(stack) > 0 {
		n := len(stack) - 1
		id := stack[n]
		stack = stack[:n]
		if visited[id] || !include(id) {
			continue
		}
		visited[id] = true

		rec, _ := p.index.Node(id)
		out = append(out, rec)

		if !descend(id) {
			continue
		}
		children := p.index.Children(id)
		for i := len(children) - 1; i >= 0; i-- {
			if !visited[children[i]] {
				stack = append(stack, children[i])
			}
		}
	}
	return out
}

// Matches returns the ids whose label or id contains term, ignoring case.
func (p *Projector) Matches(term string) map[string]struct{} {
	key := strings.ToLower(term)
	if cached, ok := p.matches.Get(key); ok {
		return cached
	}

	set := make(idSet)
	for i, rec := range p.index.Records() {
		if p.index.matches(i, key) {
			set[rec.ID] = struct{}{}
		}
	}
	p.matches.Add(key, set)
	return set
}

// Included returns the matches for term and the proper ancestors of those matches.
func (p *Projector) Included(term string) (matches, ancestors map[string]struct{}) {
	matches = p.Matches(term)
	ancestors = make(idSet)
	for id := range matches {
		for _, a := range p.index.Ancestors(id) {
			if _, seen := ancestors[a]; seen {
				// the rest of the chain is already in the closure
				break
			}
			ancestors[a] = struct{}{}
		}
	}
	return matches, ancestors
}

// AutoExpand returns the expansion set for an active search: every match and every ancestor of
// a match that has children to show.
func (p *Projector) AutoExpand(term string) map[string]struct{} {
	matches, ancestors := p.Included(term)
	expanded := make(idSet, len(ancestors))
	for id := range ancestors {
		expanded[id] = struct{}{}
	}
	for id := range matches {
		if p.index.HasChildren(id) {
			expanded[id] = struct{}{}
		}
	}
	return expanded
}
