package schema

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// SourceKind tells a Loader how to fetch a document.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

// Source names a form document: the schema, the attributes table, saved
// answers or an attachment list. The zero Source names nothing.
type Source struct {
	kind     SourceKind
	location string
}

func (s Source) Kind() SourceKind { return s.kind }
func (s Source) Location() string { return s.location }
func (s Source) IsZero() bool     { return s.kind == "" }

func (s Source) String() string {
	if s.IsZero() {
		return "<none>"
	}
	return string(s.kind) + ":" + s.location
}

// FileSource names a file on disk.
func FileSource(path string) Source {
	return Source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// FSSource names an entry of the fs.FS configured on the loader.
func FSSource(name string) Source {
	return Source{kind: SourceKindFS, location: name}
}

// URLSource names a document served over HTTP(S).
func URLSource(raw string) (Source, error) {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return Source{}, fmt.Errorf("schema: invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Source{}, fmt.Errorf("schema: unsupported URL scheme %q", u.Scheme)
	}
	return Source{kind: SourceKindURL, location: raw}, nil
}

// ParseSource reads a command line or config value: http(s) URLs become URL
// sources, anything else a file path. Blank input yields the zero Source.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return Source{}, nil
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return URLSource(raw)
	default:
		return FileSource(raw), nil
	}
}
