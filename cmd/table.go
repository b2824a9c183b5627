package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/JakeTRogers/hpoBuddy/hierarchy"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// newTable returns a table writer mirrored to w and styled like the rest of the CLI output.
func newTable(w io.Writer, colorEnabled bool) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	if colorEnabled {
		t.SetStyle(table.StyleColoredBlackOnBlueWhite)
		t.Style().Title.Colors = text.Colors{text.BgHiBlue, text.FgHiWhite}
		t.Style().Color.IndexColumn = text.Colors{text.BgHiBlue, text.FgHiWhite, text.Bold}
		t.Style().Color.RowAlternate = text.Colors{text.Color(30), text.Color(47)}
	} else {
		t.SetStyle(table.StyleRounded)
		t.Style().Options.DoNotColorBordersAndSeparators = true
		t.Style().Options.SeparateColumns = false
		t.Style().Color.IndexColumn = text.Colors{text.FgHiBlue, text.Bold}
	}
	t.Style().Title.Align = text.AlignCenter
	return t
}

// stateMarker renders the checkbox of a node.
func stateMarker(f hierarchy.Flags) string {
	switch {
	case f.Selected:
		return "[✓]"
	case f.Partial:
		return "[-]"
	default:
		return "[ ]"
	}
}

// printSelectionTable prints the selected terms in table order.
func printSelectionTable(w io.Writer, tree *hierarchy.Tree, colorEnabled bool) {
	t := newTable(w, colorEnabled)
	selected := tree.Selected()
	t.SetTitle("Selected Phenotypes: %d", len(selected))
	t.AppendHeader(table.Row{"#", "ID", "Label", "Parent"})
	for i, rec := range selected {
		t.AppendRow(table.Row{i + 1, rec.ID, rec.Label, tree.Index().ParentOf(rec.ID)})
	}
	if len(selected) == 0 {
		t.SetCaption("nothing selected, use `hpoBuddy select` or `hpoBuddy browse`")
	}
	t.Render()
}

// printSearchTable prints the rows visible for the active search term: every match plus its
// ancestors, indented by level. The index column marks matches.
func printSearchTable(w io.Writer, tree *hierarchy.Tree, colorEnabled bool) {
	t := newTable(w, colorEnabled)
	t.SetTitle("Search %q: %d match(es)", tree.SearchTerm(), tree.MatchCount())
	t.AppendHeader(table.Row{"", "", "ID", "Label", "Coverage"})

	for _, rec := range tree.Visible() {
		f := tree.Flags(rec.ID)
		match := ""
		if f.Match {
			match = "*"
		}
		coverage := ""
		if f.HasChildren {
			selected, total := tree.Coverage(rec.ID)
			coverage = fmt.Sprintf("%d/%d", selected, total)
		}
		label := strings.Repeat("  ", rec.Level) + rec.Label
		t.AppendRow(table.Row{match, stateMarker(f), rec.ID, label, coverage})
	}
	if tree.MatchCount() == 0 {
		t.SetCaption("no matches")
	}
	t.Render()
}
