package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-appform/pkg/schema"
)

const formJSON = `{"sections":[]}`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "form.json")
	if err := os.WriteFile(path, []byte(formJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc, err := New(WithLogger(zaptest.NewLogger(t))).Load(context.Background(), schema.FileSource(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(doc.Raw()) != formJSON {
		t.Fatalf("raw = %s", doc.Raw())
	}
	if doc.Location() != path || doc.Format() != schema.FormatJSON {
		t.Fatalf("unexpected document %s (%s)", doc.Location(), doc.Format())
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, []byte("  \n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	large := filepath.Join(dir, "large.json")
	if err := os.WriteFile(large, []byte(`{"sections":[],"padding":"xxxxxxxxxxxxxxxx"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		loader *Loader
		ctx    context.Context
		src    schema.Source
		want   error
	}{
		{name: "zero source", loader: New(), ctx: context.Background(), want: ErrNoSource},
		{name: "missing file", loader: New(), ctx: context.Background(), src: schema.FileSource(filepath.Join(dir, "missing.json")), want: os.ErrNotExist},
		{name: "empty document", loader: New(), ctx: context.Background(), src: schema.FileSource(empty), want: schema.ErrEmptyDocument},
		{name: "cancelled", loader: New(), ctx: cancelled, src: schema.FileSource(empty), want: context.Canceled},
		{name: "no file system", loader: New(), ctx: context.Background(), src: schema.FSSource("form.json"), want: ErrNoFileSystem},
		{name: "too large", loader: New(WithMaxBytes(16)), ctx: context.Background(), src: schema.FileSource(large), want: ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.loader.Load(tt.ctx, tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFS(t *testing.T) {
	files := fstest.MapFS{"forms/grant.yaml": {Data: []byte("sections: []\n")}}

	doc, err := New(WithFS(files)).Load(context.Background(), schema.FSSource("forms/grant.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Format() != schema.FormatYAML {
		t.Fatalf("format = %s", doc.Format())
	}
	data, err := doc.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if string(data) != formJSON {
		t.Fatalf("json = %s", data)
	}
}

func TestLoadHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token abc" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if got := r.Header.Get("Accept"); !strings.HasPrefix(got, "application/json") {
			http.Error(w, "bad accept "+got, http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(formJSON))
	}))
	defer server.Close()

	src, err := schema.URLSource(server.URL + "/forms/1/")
	if err != nil {
		t.Fatalf("source: %v", err)
	}

	if _, err := New().Load(context.Background(), src); !errors.Is(err, ErrHTTPDisabled) {
		t.Fatalf("expected ErrHTTPDisabled, got %v", err)
	}

	_, err = New(WithHTTPClient(server.Client())).Load(context.Background(), src)
	var status *StatusError
	if !errors.As(err, &status) || status.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}

	l := New(WithHTTP(5*time.Second), WithHeader("Authorization", "Token abc"))
	doc, err := l.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(doc.Raw()) != formJSON {
		t.Fatalf("raw = %s", doc.Raw())
	}
}

func TestLoadHTTP_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	src, err := schema.URLSource(server.URL)
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if _, err := New(WithHTTP(50*time.Millisecond)).Load(context.Background(), src); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
