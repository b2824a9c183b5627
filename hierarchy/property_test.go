package hierarchy

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// genForest draws a record set. With cycles=false every parent precedes its child, so every node is
// reachable from a root; with cycles=true parents are drawn from the whole set.
func genForest(t *rapid.T, cycles bool) []Record {
	n := rapid.IntRange(1, 40).Draw(t, "n")
	records := make([]Record, n)
	for i := range records {
		rec := Record{
			ID:    fmt.Sprintf("HP:%d", i),
			Label: rapid.StringMatching(`[abc ]{1,4}`).Draw(t, fmt.Sprintf("label%d", i)),
		}
		switch kind := rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("parentKind%d", i)); {
		case kind == 0:
			// root
		case kind == 1:
			rec.ParentID = "HP:missing"
		case cycles:
			rec.ParentID = fmt.Sprintf("HP:%d", rapid.IntRange(0, n-1).Draw(t, fmt.Sprintf("parent%d", i)))
		case i > 0:
			rec.ParentID = fmt.Sprintf("HP:%d", rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("parent%d", i)))
		}
		records[i] = rec
	}
	return records
}

func Test_property_hasChildrenMatchesChildren(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		idx := NewIndex(genForest(t, true))
		for _, rec := range idx.Records() {
			if idx.HasChildren(rec.ID) != (len(idx.Children(rec.ID)) > 0) {
				t.Fatalf("HasChildren(%s) disagrees with Children", rec.ID)
			}
		}
	})
}

func Test_property_selectDeselectRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genForest(t, true)
		tree := New(records)
		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}

		// unrelated prior selections must not change the outcome
		for _, id := range rapid.SliceOfN(rapid.SampledFrom(ids), 0, 5).Draw(t, "noise") {
			tree.Select(id)
		}

		target := rapid.SampledFrom(ids).Draw(t, "target")
		subtree := append([]string{target}, tree.Index().Descendants(target)...)

		tree.Select(target)
		for _, id := range subtree {
			if !tree.IsSelected(id) {
				t.Fatalf("%s should be selected after Select(%s)", id, target)
			}
		}

		tree.Deselect(target)
		for _, id := range subtree {
			if tree.IsSelected(id) {
				t.Fatalf("%s should be deselected after Deselect(%s)", id, target)
			}
		}
	})
}

func Test_property_leavesNeverPartial(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genForest(t, true)
		tree := New(records)
		for _, rec := range records {
			if rapid.Bool().Draw(t, "pick"+rec.ID) {
				tree.Toggle(rec.ID)
			}
		}
		for _, rec := range records {
			if len(tree.Index().Descendants(rec.ID)) == 0 && tree.IsPartiallySelected(rec.ID) {
				t.Fatalf("%s has no descendants but is partial", rec.ID)
			}
			if tree.IsPartiallySelected(rec.ID) {
				selected, total := tree.Coverage(rec.ID)
				if selected == 0 || selected == total {
					t.Fatalf("%s partial with coverage %d/%d", rec.ID, selected, total)
				}
			}
		}
	})
}

func Test_property_searchShowsExactlyMatchesAndAncestors(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genForest(t, false)
		tree := New(records)
		term := rapid.StringMatching(`[abcABC]{1,2}`).Draw(t, "term")

		want := make(map[string]bool)
		for _, rec := range records {
			if strings.Contains(strings.ToLower(rec.Label), strings.ToLower(term)) ||
				strings.Contains(strings.ToLower(rec.ID), strings.ToLower(term)) {
				want[rec.ID] = true
				for _, a := range tree.Index().Ancestors(rec.ID) {
					want[a] = true
				}
			}
		}

		tree.SetSearch(term)
		got := make(map[string]bool)
		for _, rec := range tree.Visible() {
			if got[rec.ID] {
				t.Fatalf("%s emitted twice", rec.ID)
			}
			got[rec.ID] = true
			if !want[rec.ID] {
				t.Fatalf("%s visible but neither a match nor an ancestor of one", rec.ID)
			}
		}
		for id := range want {
			if !got[id] {
				t.Fatalf("%s should be visible for term %q", id, term)
			}
		}
	})
}

func Test_property_clearingSearchCollapses(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genForest(t, true)
		tree := New(records)
		for _, rec := range records {
			if rapid.Bool().Draw(t, "expand"+rec.ID) {
				tree.SetExpanded(rec.ID, true)
			}
		}

		tree.SetSearch(rapid.StringMatching(`[abc]{1,2}`).Draw(t, "term"))
		tree.SetSearch("")

		if got := tree.ExpandedIDs(); len(got) != 0 {
			t.Fatalf("expected empty expansion after clearing search, got %v", got)
		}
	})
}

func Test_property_traversalsTerminateOnCycles(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		idx := NewIndex(genForest(t, true))
		for _, rec := range idx.Records() {
			seen := make(map[string]bool)
			for _, d := range idx.Descendants(rec.ID) {
				if seen[d] || d == rec.ID {
					t.Fatalf("descendant walk of %s repeated %s", rec.ID, d)
				}
				seen[d] = true
			}
			if len(idx.Ancestors(rec.ID)) > idx.Len() {
				t.Fatalf("ancestor walk of %s longer than the record set", rec.ID)
			}
		}
		p := NewProjector(idx)
		if got := p.Plain(func(string) bool { return true }); len(got) > idx.Len() {
			t.Fatalf("plain projection emitted %d rows for %d records", len(got), idx.Len())
		}
	})
}
