package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/JakeTRogers/hpoBuddy/hierarchy"
	"github.com/JakeTRogers/hpoBuddy/logger"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var l = logger.GetLogger()

// ErrDataUnavailable reports that the table could not be fully retrieved.
var ErrDataUnavailable = errors.New("phenotype data unavailable")

// DefaultDelimiter separates fields when none is configured.
const DefaultDelimiter = ','

// fetchLimit bounds concurrent chunk downloads.
const fetchLimit = 8

// Load fetches every chunk concurrently, joins them in the given order, and decodes the result into
// rows keyed by the header line. Any chunk failure fails the whole load with ErrDataUnavailable.
func Load(ctx context.Context, f Fetcher, chunks []string, delimiter rune) ([]map[string]string, error) {
	if len(chunks) == 0 {
		return nil, errors.WithStack(fmt.Errorf("%w: no chunks configured", ErrDataUnavailable))
	}

	parts := make([][]byte, len(chunks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)

	for i, name := range chunks {
		g.Go(func() error {
			data, err := fetchChunk(ctx, f, name)
			if err != nil {
				return errors.WithStack(fmt.Errorf("%w: chunk %s: %w", ErrDataUnavailable, name, err))
			}
			parts[i] = data
			l.Debug().Str("chunk", name).Int("bytes", len(data)).Msg("chunk fetched")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := Decode(bytes.Join(parts, nil), delimiter)
	l.Info().Int("chunks", len(chunks)).Int("rows", len(rows)).Msg("phenotype table loaded")
	return rows, nil
}

func fetchChunk(ctx context.Context, f Fetcher, name string) ([]byte, error) {
	rc, err := f.Fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// LoadTree loads the table and builds a tree from it.
func LoadTree(ctx context.Context, f Fetcher, chunks []string, delimiter rune) (*hierarchy.Tree, error) {
	rows, err := Load(ctx, f, chunks, delimiter)
	if err != nil {
		return nil, err
	}

	records, dropped := hierarchy.Normalize(rows)
	if dropped > 0 {
		l.Debug().Int("dropped", dropped).Msg("rows without id or label skipped")
	}
	idx := hierarchy.NewIndex(records)
	if n := idx.Duplicates(); n > 0 {
		l.Warn().Int("duplicates", n).Msg("repeated term ids ignored")
	}
	return hierarchy.NewTree(idx), nil
}

// ParseDelimiter validates a configured delimiter. An empty value gives DefaultDelimiter.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return DefaultDelimiter, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == '"' || r == '[' || r == ']' || r == '\n' {
		return 0, fmt.Errorf("invalid delimiter %q, expected a single character", s)
	}
	return r, nil
}

// Decode splits delimited text into rows keyed by the first line's column names. Delimiters and
// line breaks inside double quotes or inside [...] brackets do not split. Quotes are kept in the
// values. Blank lines are skipped and short rows simply lack the trailing columns.
func Decode(data []byte, delimiter rune) []map[string]string {
	lines := splitRecords(string(data), delimiter)
	if len(lines) == 0 {
		return nil
	}

	header := lines[0]
	for i, name := range header {
		header[i] = strings.Trim(strings.TrimSpace(name), `"'`)
	}

	rows := make([]map[string]string, 0, len(lines)-1)
	for _, fields := range lines[1:] {
		row := make(map[string]string, len(header))
		for i, value := range fields {
			if i >= len(header) {
				break
			}
			row[header[i]] = value
		}
		rows = append(rows, row)
	}
	return rows
}

// splitRecords tokenizes text into records of fields.
func splitRecords(text string, delimiter rune) [][]string {
	var (
		records [][]string
		fields  []string
		field   strings.Builder
		quoted  bool
		depth   int
	)

	endRecord := func() {
		fields = append(fields, field.String())
		field.Reset()
		if len(fields) > 1 || strings.TrimSpace(fields[0]) != "" {
			records = append(records, fields)
		}
		fields = nil
	}

	for _, r := range text {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '[':
			depth++
		case r == ']' && depth > 0:
			depth--
		case depth > 0:
		case r == delimiter:
			fields = append(fields, field.String())
			field.Reset()
			continue
		case r == '\n':
			endRecord()
			continue
		case r == '\r':
			continue
		}
		field.WriteRune(r)
	}
	if field.Len() > 0 || len(fields) > 0 {
		endRecord()
	}
	return records
}
