// Package source retrieves the phenotype table from its chunked storage and decodes it into rows.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

// Fetcher opens a single named chunk of the table.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
}

// Options carries the settings fetchers may need besides the location.
type Options struct {
	// Fs backs local directories. Defaults to the OS filesystem.
	Fs afero.Fs
	// Client is used for http(s) locations. Defaults to a client with a 30s timeout.
	Client *http.Client
	S3     S3Options
}

// NewFetcher picks a fetcher for location: an http(s) URL, an s3://bucket/prefix URL, or a local
// directory.
func NewFetcher(location string, opts Options) (Fetcher, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("source location is required")
	}

	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTPFetcher(location, opts.Client)
	case strings.HasPrefix(location, "s3://"):
		return NewS3Fetcher(location, opts.S3)
	default:
		fs := opts.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return NewFileFetcher(fs, location), nil
	}
}

// FileFetcher reads chunks from a directory.
type FileFetcher struct {
	fs  afero.Fs
	dir string
}

// NewFileFetcher returns a fetcher reading chunks under dir on fs.
func NewFileFetcher(fs afero.Fs, dir string) *FileFetcher {
	return &FileFetcher{fs: fs, dir: dir}
}

func (f *FileFetcher) Fetch(_ context.Context, name string) (io.ReadCloser, error) {
	file, err := f.fs.Open(filepath.Join(f.dir, filepath.FromSlash(name)))
	if err != nil {
		return nil, err
	}
	return file, nil
}

// HTTPFetcher downloads chunks relative to a base URL.
type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
}

// NewHTTPFetcher returns a fetcher resolving chunk names against base.
func NewHTTPFetcher(base string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parsing source url %s: %w", base, err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFetcher{base: u, client: client}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	u := *f.base
	u.Path = path.Join(u.Path, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", u.String(), resp.Status)
	}
	return resp.Body, nil
}
