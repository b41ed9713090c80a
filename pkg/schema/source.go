package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceKind enumerates where a document is read from.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source identifies a document by kind and location.
type Source struct {
	Kind     SourceKind
	Location string
}

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return Source{Kind: SourceKindFile, Location: filepath.Clean(path)}
}

// SourceFromFS returns a Source identifying a resource inside the loader's
// fs.FS.
func SourceFromFS(name string) Source {
	return Source{Kind: SourceKindFS, Location: name}
}

// SourceFromURL validates raw and returns an HTTP(S) Source.
func SourceFromURL(raw string) (Source, error) {
	parsed, err := url.ParseRequestURI(strings.TrimSpace(raw))
	if err != nil {
		return Source{}, fmt.Errorf("schema: invalid URL %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Source{}, fmt.Errorf("schema: unsupported URL scheme %q", parsed.Scheme)
	}
	return Source{Kind: SourceKindURL, Location: parsed.String()}, nil
}

// ParseSource treats http(s) locations as URLs and everything else as a
// file path.
func ParseSource(location string) (Source, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return SourceFromURL(location)
	}
	if strings.TrimSpace(location) == "" {
		return Source{}, errors.New("schema: source location is required")
	}
	return SourceFromFile(location), nil
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFileSystem sets the fs.FS that SourceKindFS locations resolve against.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(l *Loader) {
		l.fs = files
	}
}

// WithHTTPClient enables URL sources using client. A zero timeout keeps the
// client's own.
func WithHTTPClient(client *http.Client, timeout time.Duration) LoaderOption {
	return func(l *Loader) {
		l.http = client
		l.timeout = timeout
	}
}

// Loader reads raw documents. URL sources are refused unless an HTTP client
// was configured.
type Loader struct {
	fs      fs.FS
	http    *http.Client
	timeout time.Duration
}

// NewLoader constructs a Loader.
func NewLoader(options ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Load fetches the raw bytes of src.
func (l *Loader) Load(ctx context.Context, src Source) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(src.Location) == "" {
		return nil, errors.New("schema loader: source location is required")
	}

	switch src.Kind {
	case SourceKindFile:
		return os.ReadFile(src.Location)
	case SourceKindFS:
		if l.fs == nil {
			return nil, errors.New("schema loader: filesystem is not configured")
		}
		return fs.ReadFile(l.fs, src.Location)
	case SourceKindURL:
		if l.http == nil {
			return nil, errors.New("schema loader: http support disabled")
		}
		return l.loadHTTP(ctx, src.Location)
	default:
		return nil, fmt.Errorf("schema loader: unsupported source kind %q", src.Kind)
	}
}

func (l *Loader) loadHTTP(ctx context.Context, location string) ([]byte, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("schema loader: unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
