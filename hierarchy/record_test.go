package hierarchy

import "testing"

func Test_Normalize(t *testing.T) {
	tests := []struct {
		name     string
		row      map[string]string
		expected Record
		dropped  bool
	}{
		{
			name: "plain row",
			row: map[string]string{
				ColumnID: "HP:0000118", ColumnLabel: "Phenotypic abnormality", ColumnParentID: "HP:0000001", ColumnLevel: "1",
			},
			expected: Record{ID: "HP:0000118", Label: "Phenotypic abnormality", ParentID: "HP:0000001", Level: 1},
		},
		{
			name: "quoted fields are trimmed",
			row: map[string]string{
				ColumnID: `"HP:0000478"`, ColumnLabel: `"Abnormality of the eye"`, ColumnParentID: `'HP:0000118'`, ColumnLevel: `"2"`,
			},
			expected: Record{ID: "HP:0000478", Label: "Abnormality of the eye", ParentID: "HP:0000118", Level: 2},
		},
		{
			name:     "missing parent is a root",
			row:      map[string]string{ColumnID: "HP:0000001", ColumnLabel: "All", ColumnLevel: "0"},
			expected: Record{ID: "HP:0000001", Label: "All"},
		},
		{
			name:     "null parent is a root",
			row:      map[string]string{ColumnID: "HP:0000001", ColumnLabel: "All", ColumnParentID: "NULL"},
			expected: Record{ID: "HP:0000001", Label: "All"},
		},
		{
			name:     "unparseable level defaults to zero",
			row:      map[string]string{ColumnID: "HP:1", ColumnLabel: "A", ColumnLevel: "deep"},
			expected: Record{ID: "HP:1", Label: "A"},
		},
		{
			name:     "negative level clamps to zero",
			row:      map[string]string{ColumnID: "HP:1", ColumnLabel: "A", ColumnLevel: "-3"},
			expected: Record{ID: "HP:1", Label: "A"},
		},
		{
			name:    "empty id is dropped",
			row:     map[string]string{ColumnID: `""`, ColumnLabel: "A"},
			dropped: true,
		},
		{
			name:    "missing label is dropped",
			row:     map[string]string{ColumnID: "HP:1"},
			dropped: true,
		},
		{
			name:    "whitespace label is dropped",
			row:     map[string]string{ColumnID: "HP:1", ColumnLabel: ` " " `},
			dropped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, dropped := Normalize([]map[string]string{tt.row})

			if tt.dropped {
				assertEqual(t, dropped, 1, "expected row to be dropped")
				assertEqual(t, len(records), 0, "expected no records, got %d", len(records))
				return
			}
			assertEqual(t, dropped, 0, "expected row to be kept")
			if len(records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(records))
			}
			assertEqual(t, records[0], tt.expected, "expected %+v, got %+v", tt.expected, records[0])
		})
	}
}

func Test_Normalize_preservesOrder(t *testing.T) {
	rows := []map[string]string{
		{ColumnID: "HP:3", ColumnLabel: "C"},
		{ColumnID: "", ColumnLabel: "dropped"},
		{ColumnID: "HP:1", ColumnLabel: "A"},
		{ColumnID: "HP:2", ColumnLabel: "B"},
	}

	records, dropped := Normalize(rows)

	assertEqual(t, dropped, 1, "expected 1 dropped row, got %d", dropped)
	assertIDs(t, records, "HP:3", "HP:1", "HP:2")
}

func Test_Record_IsRoot(t *testing.T) {
	assertEqual(t, Record{ID: "HP:1"}.IsRoot(), true, "record without parent should be a root")
	assertEqual(t, Record{ID: "HP:2", ParentID: "HP:1"}.IsRoot(), false, "record with parent should not be a root")
}
