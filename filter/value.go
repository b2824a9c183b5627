// Package filter converts a selection into the host filter value and moves that value through the
// host filter channel.
package filter

import (
	"fmt"
	"strings"

	"github.com/JakeTRogers/hpoBuddy/hierarchy"
	json "github.com/goccy/go-json"
)

// DefaultName identifies the host filter variable.
const DefaultName = "hpo-phenotype-filter"

// Mode selects the representation written to the host.
type Mode string

const (
	// ModeString writes "{id} - {label}" entries joined by commas.
	ModeString Mode = "string"
	// ModeArray writes a JSON array of ids.
	ModeArray Mode = "array"
)

// ParseMode validates a mode name from configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeString:
		return ModeString, nil
	case ModeArray:
		return ModeArray, nil
	default:
		return "", fmt.Errorf("unknown filter format %q, expected %q or %q", s, ModeString, ModeArray)
	}
}

// entrySeparator sits between an id and its label in the string form.
const entrySeparator = " - "

// Format renders selected records as "{id} - {label}" joined by commas. An empty selection gives "".
func Format(selected []hierarchy.Record) string {
	entries := make([]string, len(selected))
	for i, rec := range selected {
		entries[i] = rec.ID + entrySeparator + rec.Label
	}
	return strings.Join(entries, ",")
}

// FormatIDs renders the ids of selected records as a JSON array.
func FormatIDs(selected []hierarchy.Record) (string, error) {
	ids := make([]string, len(selected))
	for i, rec := range selected {
		ids[i] = rec.ID
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encoding filter ids: %w", err)
	}
	return string(b), nil
}

// Encode renders selected records in the given mode.
func Encode(mode Mode, selected []hierarchy.Record) (string, error) {
	if mode == ModeArray {
		return FormatIDs(selected)
	}
	return Format(selected), nil
}

// Parse reads a host value in either representation and returns the ids it names.
// In the string form, comma-split fragments without a separator continue the previous label and are skipped.
func Parse(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if strings.HasPrefix(value, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(value), &ids); err != nil {
			return nil, fmt.Errorf("decoding filter ids: %w", err)
		}
		return compact(ids), nil
	}

	var ids []string
	for _, entry := range strings.Split(value, ",") {
		id, _, found := strings.Cut(entry, entrySeparator)
		if !found {
			continue
		}
		ids = append(ids, id)
	}
	return compact(ids), nil
}

// compact trims ids and drops empty ones and repeats.
func compact(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
