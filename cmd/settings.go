package cmd

import (
	"context"
	"path/filepath"

	"github.com/JakeTRogers/hpoBuddy/filter"
	"github.com/JakeTRogers/hpoBuddy/hierarchy"
	"github.com/JakeTRogers/hpoBuddy/source"
)

// settings holds the data and filter options shared by every command.
type settings struct {
	source       string
	chunks       []string
	delimiter    string
	filterFile   string
	filterFormat string
	s3           source.S3Options
}

// filterPath returns the configured filter file, or the default one in the config directory.
func (s settings) filterPath() string {
	if s.filterFile != "" {
		return s.filterFile
	}
	return filepath.Join(configDir(), filter.DefaultName)
}

// loadTree fetches the term table and builds the hierarchy.
func (s settings) loadTree(ctx context.Context) (*hierarchy.Tree, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	delimiter, err := source.ParseDelimiter(s.delimiter)
	if err != nil {
		return nil, err
	}
	f, err := source.NewFetcher(s.source, source.Options{Fs: appFs, S3: s.s3})
	if err != nil {
		return nil, err
	}
	l.Info().Str("source", s.source).Strs("chunks", s.chunks).Msg("loading phenotype table")
	return source.LoadTree(ctx, f, s.chunks, delimiter)
}

// channel opens the filter file and validates the configured representation.
func (s settings) channel() (*filter.FileChannel, filter.Mode, error) {
	mode, err := filter.ParseMode(s.filterFormat)
	if err != nil {
		return nil, "", err
	}
	return filter.NewFileChannel(appFs, s.filterPath()), mode, nil
}

// restoreSelection applies the value stored in ch to tree without writing it back. Unreadable
// values leave the selection empty.
func restoreSelection(tree *hierarchy.Tree, ch filter.Channel) {
	ids, err := filter.Load(ch)
	if err != nil {
		l.Warn().Err(err).Msg("ignoring stored filter")
		return
	}
	if restored := tree.Restore(ids); restored < len(ids) {
		l.Warn().Int("stored", len(ids)).Int("restored", restored).Msg("stored filter names unknown terms")
	}
}
