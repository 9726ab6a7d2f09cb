package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/submission"
	"github.com/goliatone/go-appform/pkg/testsupport"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("%s: %v", strings.Join(args, " "), err)
	}
	return out
}

func schemaArgs() []string {
	return []string{
		"--schema", testsupport.FixturePath(testsupport.FormFixture),
		"--attributes", testsupport.FixturePath(testsupport.AttributesFixture),
	}
}

func uploadsArgs(t *testing.T) []string {
	t.Helper()
	return []string{"--uploads-file", filepath.Join(t.TempDir(), "uploads.json")}
}

func TestBuildCommand(t *testing.T) {
	out := mustRun(t, append([]string{"build"}, schemaArgs()...)...)

	want := testsupport.MustReadGolden(t, filepath.Join("..", "..", "pkg", "builder", "testdata", "grant_build.golden.json"))
	if diff := testsupport.JSONEqual(t, want, []byte(out)); diff != "" {
		t.Fatalf("build mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCommand_OutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	if out := mustRun(t, append([]string{"build", "-o", path}, schemaArgs()...)...); out != "" {
		t.Fatalf("expected no stdout with -o, got %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !json.Valid(data) {
		t.Fatalf("output is not valid JSON: %s", data)
	}
}

func TestBuildCommand_MissingSchema(t *testing.T) {
	_, err := run(t, "build", "--attributes", testsupport.FixturePath(testsupport.AttributesFixture))
	if err == nil || !strings.Contains(err.Error(), "--schema is required") {
		t.Fatalf("expected missing schema error, got %v", err)
	}
}

func TestReshapeCommand(t *testing.T) {
	args := append([]string{"reshape"}, schemaArgs()...)
	args = append(args,
		"--answers", testsupport.FixturePath(testsupport.AnswersFixture),
		"--attachments", testsupport.FixturePath(testsupport.AttachmentsFixture),
	)
	out := mustRun(t, args...)

	var got struct {
		Entries json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := testsupport.MustReadGolden(t, filepath.Join("..", "..", "pkg", "answers", "testdata", "grant_reshape.golden.json"))
	if diff := testsupport.JSONEqual(t, want, got.Entries); diff != "" {
		t.Fatalf("reshape mismatch (-want +got):\n%s", diff)
	}
}

func TestReshapeCommand_FromSubmission(t *testing.T) {
	built := filepath.Join(t.TempDir(), "built.json")
	mustRun(t, append([]string{"build", "-o", built}, schemaArgs()...)...)

	out := mustRun(t, append([]string{"reshape", "--from-submission", "--answers", built}, schemaArgs()...)...)
	reshaped, err := decodeTree([]byte(out))
	if err != nil {
		t.Fatalf("decode tree: %v", err)
	}

	applicant, ok := reshaped.Sections["applicant"].Single()
	if !ok {
		t.Fatalf("applicant should be a single section")
	}
	if got := applicant.Fields["full_name"].Value; !got.Equal(entries.String("")) {
		t.Fatalf("full_name = %v, want empty string", got)
	}
	references, ok := reshaped.Sections["references"].Single()
	if !ok {
		t.Fatalf("references should be a single section")
	}
	if _, found := references.Fields["legacy_code"]; found {
		t.Fatalf("disabled legacy_code should not be reshaped")
	}
	projects, ok := reshaped.Sections["projects"].Items()
	if !ok || len(projects) != 1 {
		t.Fatalf("projects = %v (repeated %v), want one instance", projects, ok)
	}
	if _, found := projects[0].Fields["budget_docs"]; !found {
		t.Fatalf("projects[0] should carry budget_docs")
	}
	if !reshaped.IsFileField("budget_docs") {
		t.Fatalf("budget_docs should be a file field, got %v", reshaped.FileFieldIDs)
	}
}

func TestUploadsAndPrepare(t *testing.T) {
	store := uploadsArgs(t)

	out := mustRun(t, append([]string{"uploads", "add", "budget_docs", "budget.pdf"}, store...)...)
	var budget entries.Attachment
	if err := json.Unmarshal([]byte(out), &budget); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if budget.Field != "budget_docs" || budget.ID == "" {
		t.Fatalf("unexpected upload %+v", budget)
	}
	mustRun(t, append([]string{"uploads", "add", "cv", "cv.pdf"}, store...)...)

	out = mustRun(t, append([]string{"uploads", "list"}, store...)...)
	for _, want := range []string{"ID", "budget.pdf", "cv.pdf"} {
		if !strings.Contains(out, want) {
			t.Fatalf("uploads list should contain %q:\n%s", want, out)
		}
	}

	out = mustRun(t, append([]string{"uploads", "list", "--json"}, store...)...)
	var listed []entries.Attachment
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("listed %d uploads, want 2", len(listed))
	}

	built := filepath.Join(t.TempDir(), "built.json")
	mustRun(t, append([]string{"build", "-o", built}, schemaArgs()...)...)

	args := append([]string{"prepare", "--entries", built, "--form-id", "12", "--targets", `{"program":3}`}, store...)
	out = mustRun(t, args...)
	var payload submission.Payload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Form != 12 {
		t.Fatalf("form = %d, want 12", payload.Form)
	}
	if diff := testsupport.JSONEqual(t, []byte(`{"program":3}`), payload.Targets); diff != "" {
		t.Fatalf("targets mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]entries.AttachmentID{budget.ID}, payload.Attachments); diff != "" {
		t.Fatalf("attachments mismatch (-want +got):\n%s", diff)
	}
	if _, found := payload.Entries.Sections["applicant"]; !found {
		t.Fatalf("payload entries should carry applicant")
	}

	mustRun(t, append([]string{"uploads", "rm", string(budget.ID)}, store...)...)
	if _, err := run(t, append([]string{"uploads", "remove", string(budget.ID)}, store...)...); err == nil {
		t.Fatalf("removing an unknown upload should fail")
	}

	out = mustRun(t, append([]string{"prepare", "--entries", built}, store...)...)
	payload = submission.Payload{}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Attachments) != 0 {
		t.Fatalf("attachments = %v, want none", payload.Attachments)
	}
}

func TestPrepareCommand_InvalidTargets(t *testing.T) {
	built := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(built, []byte(`{"sections":{},"fileFieldIds":[]}`), 0o644); err != nil {
		t.Fatalf("write tree: %v", err)
	}

	args := append([]string{"prepare", "--entries", built, "--targets", "{"}, uploadsArgs(t)...)
	_, err := run(t, args...)
	if err == nil || !strings.Contains(err.Error(), "--targets must be valid JSON") {
		t.Fatalf("expected invalid targets error, got %v", err)
	}
}

func TestDecodeTree(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare", `{"sections":{"a":{"sections":{},"fields":{"x":{"value":"1"}}}},"fileFieldIds":["f"]}`},
		{"wrapper", `{"entries":{"sections":{"a":{"sections":{},"fields":{"x":{"value":"1"}}}},"fileFieldIds":["f"]}}`},
		{"yaml", "entries:\n  sections:\n    a:\n      sections: {}\n      fields:\n        x:\n          value: \"1\"\n  fileFieldIds: [f]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, err := decodeTree([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			instance, ok := tree.Sections["a"].Single()
			if !ok {
				t.Fatalf("a should be a single section")
			}
			if value, _ := instance.Fields["x"].Value.Str(); value != "1" {
				t.Fatalf("x = %q, want 1", value)
			}
			if !tree.IsFileField("f") {
				t.Fatalf("f should be a file field")
			}
		})
	}

	payload, err := decodeTree([]byte(`{"form":1,"entries":{"sections":{}},"targets":null,"attachments":[]}`))
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Sections) != 0 {
		t.Fatalf("sections = %v, want none", payload.Sections)
	}

	if _, err := decodeTree([]byte(`[1]`)); err == nil {
		t.Fatalf("decoding an array should fail")
	}
}
