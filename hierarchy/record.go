// Package hierarchy holds the in-memory phenotype term forest: normalized records, the parent/child
// index, the selection set, and the visible-row projection used by the presentation layer.
package hierarchy

import (
	"strconv"
	"strings"
)

// Column names of the tabular term export.
const (
	ColumnID       = "TERM_ID"
	ColumnLabel    = "TERM_FULL_NAME"
	ColumnParentID = "PARENT_ID"
	ColumnLevel    = "LEVEL"
)

// Record is one phenotype term. An empty ParentID marks a root.
type Record struct {
	ID       string
	Label    string
	ParentID string
	Level    int
}

// IsRoot reports whether the record declares no parent.
func (r Record) IsRoot() bool {
	return r.ParentID == ""
}

// Normalize turns decoded rows into records, dropping rows without an id or label.
// The second return value is the number of rows dropped.
func Normalize(rows []map[string]string) ([]Record, int) {
	records := make([]Record, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		rec, ok := normalizeRow(row)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}
	return records, dropped
}

func normalizeRow(row map[string]string) (Record, bool) {
	rec := Record{
		ID:       trimField(row[ColumnID]),
		Label:    trimField(row[ColumnLabel]),
		ParentID: trimField(row[ColumnParentID]),
		Level:    parseLevel(row[ColumnLevel]),
	}
	if rec.ID == "" || rec.Label == "" {
		return Record{}, false
	}
	// exports spell a missing parent as a literal null
	if strings.EqualFold(rec.ParentID, "null") {
		rec.ParentID = ""
	}
	return rec, true
}

// trimField strips whitespace and any surrounding quote characters.
func trimField(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
}

func parseLevel(s string) int {
	n, err := strconv.Atoi(trimField(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
