package entries

import (
	"encoding/json"
	"fmt"
)

// FieldEntry is the editable state of one field.
type FieldEntry struct {
	Value      Value
	ExtraValue Value
}

// TextEntry returns {value: "", extraValue: ""}.
func TextEntry() FieldEntry {
	return FieldEntry{Value: String(""), ExtraValue: String("")}
}

// Clone returns a deep copy.
func (f FieldEntry) Clone() FieldEntry {
	return FieldEntry{Value: f.Value.Clone(), ExtraValue: f.ExtraValue.Clone()}
}

type fieldEntryJSON struct {
	Value      *Value `json:"value,omitempty"`
	ExtraValue *Value `json:"extraValue,omitempty"`
}

// MarshalJSON omits undefined members.
func (f FieldEntry) MarshalJSON() ([]byte, error) {
	var out fieldEntryJSON
	if f.Value.IsDefined() {
		value := f.Value
		out.Value = &value
	}
	if f.ExtraValue.IsDefined() {
		extra := f.ExtraValue
		out.ExtraValue = &extra
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts both extraValue and the server's extra_value.
func (f *FieldEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("entries: decode field entry: %w", err)
	}
	var entry FieldEntry
	if msg, ok := raw["value"]; ok {
		if err := entry.Value.UnmarshalJSON(msg); err != nil {
			return err
		}
	}
	extra, ok := raw["extraValue"]
	if !ok {
		extra, ok = raw["extra_value"]
	}
	if ok {
		if err := entry.ExtraValue.UnmarshalJSON(extra); err != nil {
			return err
		}
	}
	*f = entry
	return nil
}
