package hierarchy

import (
	"slices"
	"sort"
	"testing"
)

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func Test_Projector_Plain(t *testing.T) {
	p := NewProjector(NewIndex(deepRecords()))

	tests := []struct {
		name     string
		expanded []string
		want     []string
	}{
		{
			name: "all collapsed shows roots",
			want: []string{"HP:10", "HP:20"},
		},
		{
			name:     "expanding a root shows its children",
			expanded: []string{"HP:10"},
			want:     []string{"HP:10", "HP:11", "HP:14", "HP:20"},
		},
		{
			name:     "nested expansion keeps preorder",
			expanded: []string{"HP:10", "HP:11", "HP:20"},
			want:     []string{"HP:10", "HP:11", "HP:12", "HP:13", "HP:14", "HP:20", "HP:21"},
		},
		{
			name:     "expanded child under collapsed parent stays hidden",
			expanded: []string{"HP:11"},
			want:     []string{"HP:10", "HP:20"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Plain(func(id string) bool { return slices.Contains(tt.expanded, id) })
			assertIDs(t, got, tt.want...)
		})
	}
}

func Test_Projector_Search(t *testing.T) {
	p := NewProjector(NewIndex(deepRecords()))

	tests := []struct {
		name string
		term string
		want []string
	}{
		{
			name: "leaf match brings its ancestor chain",
			term: "cataract",
			want: []string{"HP:10", "HP:11", "HP:12"},
		},
		{
			name: "case insensitive label match",
			term: "ABNORMALITY OF",
			want: []string{"HP:10", "HP:11", "HP:14"},
		},
		{
			name: "id match",
			term: "hp:21",
			want: []string{"HP:20", "HP:21"},
		},
		{
			name: "matching parent does not drag unmatched children",
			term: "mode of",
			want: []string{"HP:20"},
		},
		{
			name: "no matches yields nothing",
			term: "zzz",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertIDs(t, p.Search(tt.term), tt.want...)
		})
	}
}

func Test_Projector_Included(t *testing.T) {
	p := NewProjector(NewIndex(deepRecords()))

	matches, ancestors := p.Included("myopia")

	if got := keys(matches); !slices.Equal(got, []string{"HP:13"}) {
		t.Errorf("expected matches [HP:13], got %v", got)
	}
	if got := keys(ancestors); !slices.Equal(got, []string{"HP:10", "HP:11"}) {
		t.Errorf("expected ancestors [HP:10 HP:11], got %v", got)
	}
}

func Test_Projector_AutoExpand(t *testing.T) {
	p := NewProjector(NewIndex(deepRecords()))

	// HP:11 matches and has children, so it is expanded too; leaves are left out
	got := keys(p.AutoExpand("eye"))
	if !slices.Equal(got, []string{"HP:10", "HP:11"}) {
		t.Errorf("expected [HP:10 HP:11], got %v", got)
	}
}

func Test_Projector_matchCache(t *testing.T) {
	p := NewProjector(NewIndex(deepRecords()))

	first := p.Matches("Abnormality")
	if !p.matches.Contains("abnormality") {
		t.Fatal("expected lower-cased term to be cached")
	}
	second := p.Matches("abnormality")
	assertEqual(t, len(second), len(first), "cached lookup should return the same set")
}

func Test_Projector_cyclicDataTerminates(t *testing.T) {
	p := NewProjector(NewIndex([]Record{
		{ID: "R", Label: "root"},
		{ID: "A", Label: "loop a", ParentID: "B"},
		{ID: "B", Label: "loop b", ParentID: "A"},
		{ID: "C", Label: "child", ParentID: "R"},
	}))

	assertIDs(t, p.Plain(func(string) bool { return true }), "R", "C")
	assertIDs(t, p.Search("loop"))
	if got := keys(p.AutoExpand("loop")); !slices.Equal(got, []string{"A", "B"}) {
		t.Errorf("expected cyclic ancestors [A B], got %v", got)
	}
}
