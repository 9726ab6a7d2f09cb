package schema

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "testsupport", "testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return data
}

func TestParseForm_Fixture(t *testing.T) {
	path := filepath.Join("..", "testsupport", "testdata", "form.json")
	doc, err := NewDocument(FileSource(path), fixture(t, "form.json"))
	if err != nil {
		t.Fatalf("document: %v", err)
	}

	form, err := ParseForm(doc)
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if form.ID != 12 || len(form.Sections) != 4 {
		t.Fatalf("unexpected form header: id=%d sections=%d", form.ID, len(form.Sections))
	}
	applicant := form.Sections[0]
	if applicant.Identifier != "applicant" || !applicant.Visible || applicant.AddNewAllowed {
		t.Fatalf("unexpected applicant section: %+v", applicant)
	}
	if got := applicant.Fields[1].Type; got != 2 {
		t.Fatalf("string type id should decode, got %d", got)
	}
	country := applicant.Fields[2]
	if !country.Choices[1].HasTextInput || country.Choices[1].Key() != "other" {
		t.Fatalf("unexpected country choices: %+v", country.Choices)
	}
	if key := applicant.Fields[3].Choices[0].Key(); key != "1" {
		t.Fatalf("numeric choice key = %q", key)
	}
	if !form.Sections[1].Subsections[0].AddNewAllowed {
		t.Fatalf("milestones should be repeatable")
	}
	if form.Sections[3].Fields[0].Enabled {
		t.Fatalf("legacy_code should be disabled")
	}
}

func TestDecodeForm_YAML(t *testing.T) {
	raw := []byte(`
sections:
  - identifier: household
    visible: true
    add_new_allowed: true
    fields:
      - identifier: member
        type: 1
        enabled: true
    subsections: []
`)
	form, err := DecodeForm(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Form{Sections: []Section{{
		Identifier:    "household",
		Visible:       true,
		AddNewAllowed: true,
		Fields:        []Field{{Identifier: "member", Type: 1, Enabled: true}},
		Subsections:   []Section{},
	}}}
	if diff := cmp.Diff(want, form); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantErr     bool
		missingID   bool
		wantMessage string
	}{
		{
			name: "valid",
			raw:  `{"sections":[{"identifier":"a","visible":true,"fields":[{"identifier":"x","type":"3"}],"subsections":[{"identifier":"b"}]}]}`,
		},
		{
			name: "unknown keys allowed",
			raw:  `{"sections":[],"theme":"dark"}`,
		},
		{
			name:        "missing sections",
			raw:         `{"title":"x"}`,
			wantErr:     true,
			wantMessage: "sections",
		},
		{
			name:      "section without identifier",
			raw:       `{"sections":[{"visible":true}]}`,
			wantErr:   true,
			missingID: true,
		},
		{
			name:      "empty field identifier",
			raw:       `{"sections":[{"identifier":"a","fields":[{"identifier":"","type":1}]}]}`,
			wantErr:   true,
			missingID: true,
		},
		{
			name:      "nested section without identifier",
			raw:       `{"sections":[{"identifier":"a","subsections":[{"visible":true}]}]}`,
			wantErr:   true,
			missingID: true,
		},
		{
			name:    "non numeric type",
			raw:     `{"sections":[{"identifier":"a","fields":[{"identifier":"x","type":"big"}]}]}`,
			wantErr: true,
		},
		{
			name:    "visible not boolean",
			raw:     `{"sections":[{"identifier":"a","visible":"yes"}]}`,
			wantErr: true,
		},
		{
			name:        "not json",
			raw:         `{`,
			wantErr:     true,
			wantMessage: "decode",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var validation *ValidationError
			if !errors.As(err, &validation) || len(validation.Issues) == 0 {
				t.Fatalf("expected ValidationError with issues, got %v", err)
			}
			if got := errors.Is(err, ErrMissingIdentifier); got != tt.missingID {
				t.Fatalf("errors.Is(ErrMissingIdentifier) = %v (%v)", got, err)
			}
			if tt.wantMessage != "" && !strings.Contains(err.Error(), tt.wantMessage) {
				t.Fatalf("error %q should mention %q", err, tt.wantMessage)
			}
		})
	}
}

func TestFieldTypesFromAttributes(t *testing.T) {
	types, err := FieldTypesFromAttributes(fixture(t, "attributes.json"))
	if err != nil {
		t.Fatalf("field types: %v", err)
	}
	want := FieldTypes{
		1: TypeTextbox,
		2: TypeTextarea,
		3: TypeDropdown,
		4: TypeRadioButton,
		5: TypeRadioButtonInline,
		6: TypeCheckbox,
		7: TypeUploadFiles,
	}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldTypesFromAttributes_Envelope(t *testing.T) {
	raw := `{"fields":{"sections":{"child":{"children":{"fields":{"child":{"children":{"type":{"choices":[
		{"value":"9","display_name":" Signature "},
		{"value":"n/a","display_name":"Broken"}
	]}}}}}}}}}`
	types, err := FieldTypesFromAttributes([]byte(raw))
	if err != nil {
		t.Fatalf("field types: %v", err)
	}
	if diff := cmp.Diff(FieldTypes{9: "signature"}, types); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestNewFieldTypes_ChoiceValues(t *testing.T) {
	choices := []TypeChoice{
		{Value: 1, DisplayName: "Textbox"},
		{Value: float64(2), DisplayName: "Textarea"},
		{Value: json.Number("3"), DisplayName: "Dropdown"},
		{Value: " 4 ", DisplayName: "Checkbox"},
		{Value: 1e300, DisplayName: "Huge"},
		{Value: -1e300, DisplayName: "Tiny"},
		{Value: 2.5, DisplayName: "Fraction"},
		{Value: json.Number("1e3"), DisplayName: "Exponent"},
		{Value: "99999999999", DisplayName: "Overflow"},
		{Value: true, DisplayName: "Bool"},
	}
	want := FieldTypes{
		1: TypeTextbox,
		2: TypeTextarea,
		3: TypeDropdown,
		4: TypeCheckbox,
	}
	if diff := cmp.Diff(want, NewFieldTypes(choices)); diff != "" {
		t.Fatalf("types mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldTypesFromAttributes_MissingPath(t *testing.T) {
	_, err := FieldTypesFromAttributes([]byte(`{"sections":{"child":{}}}`))
	if err == nil || !strings.Contains(err.Error(), "sections.child.children") {
		t.Fatalf("expected missing path error, got %v", err)
	}
}

func TestFieldTypesResolve(t *testing.T) {
	types := FieldTypes{1: TypeTextbox}
	if got := types.Tag(Field{Type: 1}); got != TypeTextbox {
		t.Fatalf("Tag = %q", got)
	}
	if got := types.Resolve(2); got != TypeUnknown {
		t.Fatalf("unknown id should resolve to TypeUnknown, got %q", got)
	}
	var none FieldTypes
	if got := none.Resolve(1); got != TypeUnknown {
		t.Fatalf("nil table should resolve to TypeUnknown, got %q", got)
	}
}

func TestChoiceLabel(t *testing.T) {
	tests := []struct {
		choice Choice
		key    string
		label  string
	}{
		{Choice{Value: "nl", Text: "Netherlands"}, "nl", "Netherlands"},
		{Choice{Value: float64(3)}, "3", "3"},
		{Choice{Value: true, Text: "  "}, "true", "true"},
		{Choice{}, "", ""},
	}
	for _, tt := range tests {
		if got := tt.choice.Key(); got != tt.key {
			t.Fatalf("Key() = %q, want %q", got, tt.key)
		}
		if got := tt.choice.Label(); got != tt.label {
			t.Fatalf("Label() = %q, want %q", got, tt.label)
		}
	}
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		kind     SourceKind
		location string
		wantErr  bool
	}{
		{name: "blank", raw: "  "},
		{name: "file", raw: "a/../b.json", kind: SourceKindFile, location: "b.json"},
		{name: "https", raw: "https://example.com/forms/1/", kind: SourceKindURL, location: "https://example.com/forms/1/"},
		{name: "broken url", raw: "http://[::1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := ParseSource(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", src)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if src.Kind() != tt.kind || src.Location() != tt.location {
				t.Fatalf("got %s", src)
			}
			if src.IsZero() != (tt.kind == "") {
				t.Fatalf("IsZero mismatch for %s", src)
			}
		})
	}

	if _, err := URLSource("ftp://example.com/form.json"); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}

func TestDocument(t *testing.T) {
	if _, err := NewDocument(FSSource("x.json"), []byte("  ")); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := ToJSON([]byte(`{"a":`)); err == nil {
		t.Fatalf("expected invalid JSON error")
	}

	raw := []byte("sections:\n  - identifier: a\n    visible: true\n    fields: []\n    subsections: []\n1: numeric key\n")
	doc, err := NewDocument(FSSource("form.yaml"), raw)
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if doc.Format() != FormatYAML {
		t.Fatalf("format = %s", doc.Format())
	}
	raw[0] = 'X'
	if doc.Raw()[0] != 's' {
		t.Fatalf("document should own its bytes")
	}

	var got map[string]any
	if err := doc.Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["1"] != "numeric key" {
		t.Fatalf("numeric keys should become strings: %v", got)
	}
	form, err := ParseForm(doc)
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if len(form.Sections) != 1 || form.Sections[0].Identifier != "a" {
		t.Fatalf("unexpected form %+v", form)
	}
}
