// Package testsupport holds fixture and golden helpers shared by the package
// tests. Fixtures live under testsupport/testdata and describe a small grant
// application form.
package testsupport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-appform/pkg/answers"
	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/schema"
)

const (
	FormFixture        = "form.json"
	AttributesFixture  = "attributes.json"
	AnswersFixture     = "answers.json"
	AttachmentsFixture = "attachments.json"
)

// FixturePath returns the absolute path of a shared fixture so tests in any
// package can reach it.
func FixturePath(name string) string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("testdata", name)
	}
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

// MustReadFixture returns the raw bytes of a shared fixture.
func MustReadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(FixturePath(name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

// LoadDocumentFromPath returns a Document without requiring testing.T.
func LoadDocumentFromPath(path string) (schema.Document, error) {
	if path == "" {
		return schema.Document{}, errors.New("testsupport: document path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Document{}, fmt.Errorf("testsupport: read document: %w", err)
	}
	doc, err := schema.NewDocument(schema.FileSource(path), data)
	if err != nil {
		return schema.Document{}, fmt.Errorf("testsupport: new document: %w", err)
	}
	return doc, nil
}

// MustLoadForm validates and decodes a form fixture.
func MustLoadForm(t *testing.T, name string) schema.Form {
	t.Helper()
	doc, err := LoadDocumentFromPath(FixturePath(name))
	if err != nil {
		t.Fatalf("load form: %v", err)
	}
	form, err := schema.ParseForm(doc)
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return form
}

// MustLoadFieldTypes decodes the field type table of an attributes fixture.
func MustLoadFieldTypes(t *testing.T, name string) schema.FieldTypes {
	t.Helper()
	doc, err := LoadDocumentFromPath(FixturePath(name))
	if err != nil {
		t.Fatalf("load attributes: %v", err)
	}
	types, err := schema.ParseFieldTypes(doc)
	if err != nil {
		t.Fatalf("parse attributes: %v", err)
	}
	return types
}

// MustLoadAnswers decodes a saved answers fixture.
func MustLoadAnswers(t *testing.T, name string) *answers.Node {
	t.Helper()
	node, err := answers.Decode(MustReadFixture(t, name))
	if err != nil {
		t.Fatalf("decode answers: %v", err)
	}
	return node
}

// MustLoadAttachments decodes an attachment list fixture.
func MustLoadAttachments(t *testing.T, name string) []entries.Attachment {
	t.Helper()
	var out []entries.Attachment
	if err := json.Unmarshal(MustReadFixture(t, name), &out); err != nil {
		t.Fatalf("decode attachments: %v", err)
	}
	return out
}

// WriteGolden writes value as indented JSON when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	payload = append(payload, '\n')
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// AssertJSONGolden marshals got and compares it structurally with the golden
// at path, refreshing the golden first when UPDATE_GOLDENS is set. Key order
// and whitespace do not matter.
func AssertJSONGolden(t *testing.T, path string, got any) {
	t.Helper()

	WriteGolden(t, path, got)

	payload, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal value: %v", err)
	}
	var gotJSON, wantJSON any
	if err := json.Unmarshal(payload, &gotJSON); err != nil {
		t.Fatalf("decode value: %v", err)
	}
	if err := json.Unmarshal(MustReadGolden(t, path), &wantJSON); err != nil {
		t.Fatalf("decode golden %s: %v", path, err)
	}
	if diff := cmp.Diff(wantJSON, gotJSON); diff != "" {
		t.Fatalf("%s mismatch (-want +got):\n%s", filepath.Base(path), diff)
	}
}

// JSONEqual reports a diff between two JSON documents, ignoring formatting.
func JSONEqual(t *testing.T, want, got []byte) string {
	t.Helper()
	var w, g any
	if err := json.Unmarshal(want, &w); err != nil {
		t.Fatalf("decode want: %v", err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("decode got: %v", err)
	}
	return cmp.Diff(w, g)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}
