package hierarchy

import (
	"slices"
	"testing"
)

func Test_NewIndex_childrenBeforeParents(t *testing.T) {
	idx := NewIndex([]Record{
		{ID: "HP:3", Label: "Grandchild", ParentID: "HP:2"},
		{ID: "HP:2", Label: "Child", ParentID: "HP:1"},
		{ID: "HP:1", Label: "Root"},
	})

	if !slices.Equal(idx.Roots(), []string{"HP:1"}) {
		t.Errorf("expected roots [HP:1], got %v", idx.Roots())
	}
	if !slices.Equal(idx.Children("HP:1"), []string{"HP:2"}) {
		t.Errorf("expected children of HP:1 to be [HP:2], got %v", idx.Children("HP:1"))
	}
	if !slices.Equal(idx.Children("HP:2"), []string{"HP:3"}) {
		t.Errorf("expected children of HP:2 to be [HP:3], got %v", idx.Children("HP:2"))
	}
}

func Test_NewIndex_duplicateIDsKeepFirst(t *testing.T) {
	idx := NewIndex([]Record{
		{ID: "HP:1", Label: "First"},
		{ID: "HP:1", Label: "Second"},
	})

	rec, ok := idx.Node("HP:1")
	if !ok {
		t.Fatal("HP:1 should be indexed")
	}
	assertEqual(t, rec.Label, "First", "expected first label to win, got %q", rec.Label)
	assertEqual(t, idx.Len(), 1, "expected 1 record, got %d", idx.Len())
	assertEqual(t, idx.Duplicates(), 1, "expected 1 duplicate, got %d", idx.Duplicates())
}

func Test_Index_HasChildren(t *testing.T) {
	idx := NewIndex(deepRecords())

	tests := []struct {
		id       string
		expected bool
	}{
		{id: "HP:10", expected: true},
		{id: "HP:11", expected: true},
		{id: "HP:12", expected: false},
		{id: "HP:14", expected: false},
		{id: "HP:20", expected: true},
		{id: "HP:404", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assertEqual(t, idx.HasChildren(tt.id), tt.expected, "HasChildren(%s) expected %v", tt.id, tt.expected)
			assertEqual(t, len(idx.Children(tt.id)) > 0, tt.expected, "Children(%s) disagrees with HasChildren", tt.id)
		})
	}
}

func Test_Index_Descendants(t *testing.T) {
	idx := NewIndex(deepRecords())

	got := idx.Descendants("HP:10")
	slices.Sort(got)
	want := []string{"HP:11", "HP:12", "HP:13", "HP:14"}
	if !slices.Equal(got, want) {
		t.Errorf("expected descendants %v, got %v", want, got)
	}

	if d := idx.Descendants("HP:12"); len(d) != 0 {
		t.Errorf("leaf should have no descendants, got %v", d)
	}
	if d := idx.Descendants("HP:404"); len(d) != 0 {
		t.Errorf("unknown id should have no descendants, got %v", d)
	}
}

func Test_Index_Ancestors(t *testing.T) {
	idx := NewIndex(deepRecords())

	if got := idx.Ancestors("HP:12"); !slices.Equal(got, []string{"HP:11", "HP:10"}) {
		t.Errorf("expected ancestors [HP:11 HP:10], got %v", got)
	}
	if got := idx.Ancestors("HP:10"); len(got) != 0 {
		t.Errorf("root should have no ancestors, got %v", got)
	}
}

func Test_Index_cycles(t *testing.T) {
	idx := NewIndex([]Record{
		{ID: "A", Label: "a", ParentID: "B"},
		{ID: "B", Label: "b", ParentID: "A"},
		{ID: "S", Label: "self", ParentID: "S"},
		{ID: "R", Label: "root"},
	})

	if got := idx.Descendants("A"); !slices.Equal(got, []string{"B"}) {
		t.Errorf("expected descendants of A to be [B], got %v", got)
	}
	if got := idx.Ancestors("A"); !slices.Equal(got, []string{"B"}) {
		t.Errorf("expected ancestors of A to be [B], got %v", got)
	}
	if got := idx.Descendants("S"); len(got) != 0 {
		t.Errorf("self parented node should have no descendants, got %v", got)
	}
	if got := idx.Ancestors("S"); len(got) != 0 {
		t.Errorf("self parented node should have no ancestors, got %v", got)
	}
	if !slices.Equal(idx.Roots(), []string{"R"}) {
		t.Errorf("expected roots [R], got %v", idx.Roots())
	}
}
