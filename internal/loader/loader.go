// Package loader fetches form documents for the codec: schemas, attribute
// tables, saved answers and attachment lists.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-appform/pkg/schema"
)

// DefaultMaxBytes caps a single document.
const DefaultMaxBytes = 16 << 20

var (
	// ErrNoSource is returned for the zero schema.Source.
	ErrNoSource = errors.New("loader: no source")
	// ErrHTTPDisabled is returned for URL sources when no client is set.
	ErrHTTPDisabled = errors.New("loader: http support disabled")
	// ErrNoFileSystem is returned for fs sources when no fs.FS is set.
	ErrNoFileSystem = errors.New("loader: no file system configured")
	// ErrTooLarge is returned when a document exceeds the size cap.
	ErrTooLarge = errors.New("loader: document too large")
)

// StatusError reports a non 2xx answer from a remote document.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("loader: %s returned %d %s", e.URL, e.Status, http.StatusText(e.Status))
}

// Option configures a Loader.
type Option func(*Loader)

// WithFS serves schema.SourceKindFS sources from files.
func WithFS(files fs.FS) Option {
	return func(l *Loader) {
		l.files = files
	}
}

// WithHTTPClient enables URL sources through client.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Loader) {
		l.client = client
	}
}

// WithHTTP enables URL sources with a default client.
func WithHTTP(timeout time.Duration) Option {
	return func(l *Loader) {
		if l.client == nil {
			l.client = &http.Client{}
		}
		l.timeout = timeout
	}
}

// WithHeader adds a header sent with every remote request.
func WithHeader(key, value string) Option {
	return func(l *Loader) {
		l.header.Add(key, value)
	}
}

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(limit int64) Option {
	return func(l *Loader) {
		if limit > 0 {
			l.maxBytes = limit
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

type fetchFunc func(ctx context.Context, location string) ([]byte, error)

// Loader implements schema.Loader.
type Loader struct {
	files    fs.FS
	client   *http.Client
	timeout  time.Duration
	header   http.Header
	maxBytes int64
	logger   *zap.Logger
	fetchers map[schema.SourceKind]fetchFunc
}

var _ schema.Loader = (*Loader)(nil)

// New creates a Loader. Files are always readable; fs and URL sources need
// WithFS and WithHTTP or WithHTTPClient.
func New(options ...Option) *Loader {
	l := &Loader{
		header:   make(http.Header),
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(l)
		}
	}
	l.fetchers = map[schema.SourceKind]fetchFunc{
		schema.SourceKindFile: l.fetchFile,
		schema.SourceKindFS:   l.fetchFS,
		schema.SourceKindURL:  l.fetchURL,
	}
	return l
}

// Load fetches src and wraps the payload in a schema.Document.
func (l *Loader) Load(ctx context.Context, src schema.Source) (schema.Document, error) {
	if src.IsZero() {
		return schema.Document{}, ErrNoSource
	}
	fetch, ok := l.fetchers[src.Kind()]
	if !ok {
		return schema.Document{}, fmt.Errorf("loader: unsupported source kind %q", src.Kind())
	}
	if err := ctx.Err(); err != nil {
		return schema.Document{}, err
	}

	started := time.Now()
	data, err := fetch(ctx, src.Location())
	if err != nil {
		l.logger.Debug("document fetch failed", zap.Stringer("source", src), zap.Error(err))
		return schema.Document{}, err
	}
	l.logger.Debug("document fetched",
		zap.Stringer("source", src),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return schema.NewDocument(src, data)
}
