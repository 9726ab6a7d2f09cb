package answers

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-appform/pkg/entries"
)

func TestNodeUnmarshal_Layouts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"bare siblings", `{"fields":{"a":{"value":"x"}},"child":{"fields":{"b":{"value":"y"}}}}`},
		{"sections object", `{"fields":{"a":{"value":"x"}},"sections":{"child":{"fields":{"b":{"value":"y"}}}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Decode([]byte(tt.raw))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got, _ := node.Field("a").Value.Str(); got != "x" {
				t.Fatalf("field a = %q", got)
			}
			child, ok := node.Child("child")
			if !ok {
				t.Fatalf("child missing")
			}
			if got, _ := child.Field("b").Value.Str(); got != "y" {
				t.Fatalf("field b = %q", got)
			}
		})
	}
}

func TestNodeUnmarshal_NullsAndScalars(t *testing.T) {
	node, err := Decode([]byte(`{"gone":null,"count":3,"label":"x","kept":{}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := node.Child("gone"); ok {
		t.Fatalf("null section should read as absent")
	}
	if _, ok := node.Sections["count"]; ok {
		t.Fatalf("scalar member should be ignored")
	}
	if _, ok := node.Child("kept"); !ok {
		t.Fatalf("empty object section should be kept")
	}
	if diff := cmp.Diff([]string{"gone", "kept"}, node.SortedKeys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_YAML(t *testing.T) {
	raw := []byte(`
applicant:
  fields:
    full_name:
      value: Ada
      extra_value: ""
`)
	node, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	child, ok := node.Child("applicant")
	if !ok {
		t.Fatalf("applicant missing")
	}
	want := entries.FieldEntry{Value: entries.String("Ada"), ExtraValue: entries.String("")}
	if diff := cmp.Diff(want, child.Field("full_name")); diff != "" {
		t.Fatalf("field mismatch (-want +got):\n%s", diff)
	}
}

func TestNodeField_Missing(t *testing.T) {
	var nilNode *Node
	if nilNode.Field("x").Value.IsDefined() {
		t.Fatalf("nil node should yield undefined values")
	}
	if NewNode().Field("x").ExtraValue.IsDefined() {
		t.Fatalf("missing field should yield undefined values")
	}
}

func TestEncode_BracketKeys(t *testing.T) {
	first := entries.NewSectionEntries()
	first.Fields["name"] = entries.FieldEntry{Value: entries.String("one"), ExtraValue: entries.String("")}
	second := entries.NewSectionEntries()
	second.Fields["name"] = entries.FieldEntry{Value: entries.String("two")}
	single := entries.NewSectionEntries()
	single.Sections["items"] = entries.Repeated(first, second)

	node := Encode(map[string]entries.Slot{"wrapper": entries.Single(single)})

	payload, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"sections":{"wrapper":{"sections":{
		"items[0]":{"fields":{"name":{"value":"one","extra_value":""}}},
		"items[1]":{"fields":{"name":{"value":"two"}}}
	}}}}`
	var gotJSON, wantJSON any
	if err := json.Unmarshal(payload, &gotJSON); err != nil {
		t.Fatalf("decode got: %v", err)
	}
	if err := json.Unmarshal([]byte(want), &wantJSON); err != nil {
		t.Fatalf("decode want: %v", err)
	}
	if diff := cmp.Diff(wantJSON, gotJSON); diff != "" {
		t.Fatalf("encode mismatch (-want +got):\n%s", diff)
	}
}

func TestRepeatedInstances(t *testing.T) {
	node, err := Decode([]byte(`{
		"a[2]": {"fields": {"n": {"value": "two"}}},
		"a[0]": {"fields": {"n": {"value": "zero"}}},
		"a[01]": {"fields": {"n": {"value": "padded"}}},
		"a[1]": {"fields": {"n": {"value": "one"}}},
		"a[3]": null,
		"a[x]": {},
		"a": {},
		"a[4]extra": {},
		"ab[5]": {},
		"b[7]": {}
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got := RepeatedInstances(node, "a")
	var keys []string
	var values []string
	for _, instance := range got {
		keys = append(keys, instance.Key)
		value, _ := instance.Node.Field("n").Value.Str()
		values = append(values, value)
	}
	if diff := cmp.Diff([]string{"a[0]", "a[1]", "a[2]"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"zero", "one", "two"}, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRepeatedInstances_EscapesIdentifier(t *testing.T) {
	node, err := Decode([]byte(`{"a.b[0]": {}, "axb[1]": {}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := RepeatedInstances(node, "a.b")
	if len(got) != 1 || got[0].Key != "a.b[0]" {
		t.Fatalf("expected only a.b[0], got %+v", got)
	}
}

func TestRepeatedInstances_NilNode(t *testing.T) {
	if got := RepeatedInstances(nil, "a"); len(got) != 0 {
		t.Fatalf("expected no instances, got %d", len(got))
	}
}
