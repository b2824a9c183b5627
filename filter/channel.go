package filter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeTRogers/hpoBuddy/hierarchy"
	"github.com/JakeTRogers/hpoBuddy/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
)

var l = logger.GetLogger()

// Channel carries the filter value between this program and its host.
type Channel interface {
	Read() (string, error)
	Write(value string) error
}

// FileChannel stores the filter value in a single file.
type FileChannel struct {
	fs   afero.Fs
	path string
}

// NewFileChannel returns a channel backed by path on fs.
func NewFileChannel(fs afero.Fs, path string) *FileChannel {
	return &FileChannel{fs: fs, path: path}
}

// Path returns the backing file path.
func (c *FileChannel) Path() string {
	return c.path
}

// Read returns the stored value. A missing file reads as an empty value.
func (c *FileChannel) Read() (string, error) {
	b, err := afero.ReadFile(c.fs, c.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading filter %s: %w", c.path, err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// Write replaces the stored value. The file is written beside the target and renamed over it so
// readers never see a partial value.
func (c *FileChannel) Write(value string) error {
	dir := filepath.Dir(c.path)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating filter directory %s: %w", dir, err)
	}

	tmp := c.path + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, []byte(value+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing filter %s: %w", tmp, err)
	}
	if err := c.fs.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replacing filter %s: %w", c.path, err)
	}
	return nil
}

// Watch reports host-side changes to the channel file until ctx is done. It watches the
// containing directory so atomic replacements are seen, and only works for files on the OS
// filesystem. The returned channel is closed when watching stops.
func (c *FileChannel) Watch(ctx context.Context) (<-chan string, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("starting filter watcher: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("creating filter directory %s: %w", dir, err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	out := make(chan string)
	target := filepath.Base(c.path)
	go func() {
		defer close(out)
		defer fsw.Close()

		last, _ := c.Read()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				value, err := c.Read()
				if err != nil {
					l.Warn().Err(err).Str("path", c.path).Msg("reading changed filter")
					continue
				}
				if value == last {
					continue
				}
				last = value
				select {
				case out <- value:
				case <-ctx.Done():
					return
				}

			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				l.Warn().Err(err).Str("path", c.path).Msg("filter watcher")
			}
		}
	}()

	return out, nil
}

// Publisher writes every selection change to a channel in one representation.
type Publisher struct {
	channel Channel
	mode    Mode
	last    string
	err     error
}

// NewPublisher returns a publisher writing to ch in mode.
func NewPublisher(ch Channel, mode Mode) *Publisher {
	return &Publisher{channel: ch, mode: mode}
}

// Publish encodes selected and writes it. Failures are kept for Err and logged, never returned,
// so it can be used directly as a hierarchy.Notifier.
func (p *Publisher) Publish(selected []hierarchy.Record) {
	value, err := Encode(p.mode, selected)
	if err == nil {
		err = p.channel.Write(value)
	}
	p.err = err
	if err != nil {
		l.Error().Err(err).Msg("publishing filter")
		return
	}
	p.last = value
	l.Debug().Int("selected", len(selected)).Msg("filter published")
}

// Last returns the last value written successfully.
func (p *Publisher) Last() string {
	return p.last
}

// Err returns the error of the most recent Publish, if any.
func (p *Publisher) Err() error {
	return p.err
}

// Load reads the channel and parses the stored ids.
func Load(ch Channel) ([]string, error) {
	value, err := ch.Read()
	if err != nil {
		return nil, err
	}
	return Parse(value)
}
