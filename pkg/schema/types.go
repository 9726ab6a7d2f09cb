package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Form is the server supplied application form. It is read-only for the
// lifetime of an edit session.
type Form struct {
	ID       int       `json:"id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Title    string    `json:"title,omitempty"`
	Sections []Section `json:"sections"`
}

// Section groups fields and nested subsections. AddNewAllowed marks a
// repeatable section: the applicant may add zero or more instances of it.
type Section struct {
	Identifier    string    `json:"identifier"`
	Title         string    `json:"title,omitempty"`
	Visible       bool      `json:"visible"`
	AddNewAllowed bool      `json:"add_new_allowed"`
	Fields        []Field   `json:"fields"`
	Subsections   []Section `json:"subsections"`
}

// Field is a single input. Type is the opaque server id that FieldTypes
// resolves to a TypeTag.
type Field struct {
	Identifier string   `json:"identifier"`
	Label      string   `json:"label,omitempty"`
	HintText   string   `json:"hint_text,omitempty"`
	Type       TypeID   `json:"type"`
	Enabled    bool     `json:"enabled"`
	Required   bool     `json:"required,omitempty"`
	Choices    []Choice `json:"choices,omitempty"`
}

// Choice is a selectable option of dropdown, radio and checkbox fields.
type Choice struct {
	Value        any    `json:"value"`
	Text         string `json:"text,omitempty"`
	HasTextInput bool   `json:"has_text_input,omitempty"`
}

// Key returns the choice value in the string form stored in entries.
func (c Choice) Key() string {
	switch typed := c.Value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

// Label returns the display text, falling back to the key.
func (c Choice) Label() string {
	if text := strings.TrimSpace(c.Text); text != "" {
		return text
	}
	return c.Key()
}

// TypeID is the server's opaque field type id. It decodes from JSON numbers
// and numeric strings.
type TypeID int

// UnmarshalJSON accepts 3 and "3".
func (t *TypeID) UnmarshalJSON(data []byte) error {
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("schema: field type: %w", err)
	}
	if number == "" {
		*t = 0
		return nil
	}
	value, err := strconv.Atoi(string(number))
	if err != nil {
		return fmt.Errorf("schema: field type %q: %w", number, err)
	}
	*t = TypeID(value)
	return nil
}
