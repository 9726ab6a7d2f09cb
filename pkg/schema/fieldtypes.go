package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// TypeTag is the canonical name of a field's editing behaviour.
type TypeTag string

const (
	TypeTextbox           TypeTag = "textbox"
	TypeTextarea          TypeTag = "textarea"
	TypeDropdown          TypeTag = "dropdown"
	TypeRadioButton       TypeTag = "radiobutton"
	TypeRadioButtonInline TypeTag = "radiobuttoninline"
	TypeCheckbox          TypeTag = "checkbox"
	TypeUploadFiles       TypeTag = "uploadfiles"
	// TypeUnknown is returned for ids missing from the table. Consumers treat
	// it like a textual field.
	TypeUnknown TypeTag = ""
)

// NormalizeTag trims and lower-cases a display name into a TypeTag.
func NormalizeTag(displayName string) TypeTag {
	return TypeTag(strings.ToLower(strings.TrimSpace(displayName)))
}

// TypeChoice is one entry of the attributes `type.choices` list. Value is a
// number or a numeric string.
type TypeChoice struct {
	Value       any    `json:"value"`
	DisplayName string `json:"display_name"`
}

// FieldTypes maps server type ids to tags.
type FieldTypes map[TypeID]TypeTag

// NewFieldTypes builds a table from attribute choices. Entries with a
// non-numeric value are skipped.
func NewFieldTypes(choices []TypeChoice) FieldTypes {
	table := make(FieldTypes, len(choices))
	for _, choice := range choices {
		id, ok := choiceID(choice.Value)
		if !ok {
			continue
		}
		table[id] = NormalizeTag(choice.DisplayName)
	}
	return table
}

// choiceID accepts integral values in the int32 range.
func choiceID(value any) (TypeID, bool) {
	switch typed := value.(type) {
	case int:
		if typed < math.MinInt32 || typed > math.MaxInt32 {
			return 0, false
		}
		return TypeID(typed), true
	case float64:
		if typed < math.MinInt32 || typed > math.MaxInt32 || typed != math.Trunc(typed) {
			return 0, false
		}
		return TypeID(int(typed)), true
	case json.Number:
		return parseChoiceID(typed.String())
	case string:
		return parseChoiceID(strings.TrimSpace(typed))
	default:
		return 0, false
	}
}

func parseChoiceID(s string) (TypeID, bool) {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return TypeID(id), true
}

// Resolve returns the tag registered for id, or TypeUnknown.
func (t FieldTypes) Resolve(id TypeID) TypeTag {
	if t == nil {
		return TypeUnknown
	}
	return t[id]
}

// Tag resolves the tag of field.
func (t FieldTypes) Tag(field Field) TypeTag {
	return t.Resolve(field.Type)
}

// attributesPath is where the form attributes document nests the field type
// choices.
var attributesPath = []string{"sections", "child", "children", "fields", "child", "children", "type", "choices"}

// FieldTypesFromAttributes extracts the field type table from a form
// attributes document (JSON).
func FieldTypesFromAttributes(raw []byte) (FieldTypes, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("schema: decode attributes: %w", err)
	}
	// Attribute payloads are sometimes wrapped in {"fields": ...}.
	if wrapped, ok := root["fields"]; ok {
		if _, hasSections := root["sections"]; !hasSections {
			if err := json.Unmarshal(wrapped, &root); err != nil {
				return nil, fmt.Errorf("schema: decode attributes: %w", err)
			}
		}
	}

	current := root
	for idx, key := range attributesPath {
		node, ok := current[key]
		if !ok {
			return nil, fmt.Errorf("schema: attributes missing %q", strings.Join(attributesPath[:idx+1], "."))
		}
		if idx == len(attributesPath)-1 {
			var choices []TypeChoice
			if err := json.Unmarshal(node, &choices); err != nil {
				return nil, fmt.Errorf("schema: decode type choices: %w", err)
			}
			return NewFieldTypes(choices), nil
		}
		var next map[string]json.RawMessage
		if err := json.Unmarshal(node, &next); err != nil {
			return nil, fmt.Errorf("schema: decode attributes %q: %w", key, err)
		}
		current = next
	}
	return nil, nil
}
