package schema

import (
	"encoding/json"
	"fmt"
)

// DecodeForm parses a JSON or YAML form payload. It does not validate; run
// Validate first when the payload is untrusted.
func DecodeForm(raw []byte) (Form, error) {
	data, err := ToJSON(raw)
	if err != nil {
		return Form{}, err
	}
	var form Form
	if err := json.Unmarshal(data, &form); err != nil {
		return Form{}, fmt.Errorf("schema: decode form: %w", err)
	}
	return form, nil
}

// ParseForm validates and decodes the form held by doc.
func ParseForm(doc Document) (Form, error) {
	data, err := doc.JSON()
	if err != nil {
		return Form{}, err
	}
	if err := Validate(data); err != nil {
		return Form{}, fmt.Errorf("schema: %s: %w", doc.Location(), err)
	}
	return DecodeForm(data)
}

// ParseFieldTypes decodes the field type table from an attributes document.
func ParseFieldTypes(doc Document) (FieldTypes, error) {
	data, err := doc.JSON()
	if err != nil {
		return nil, err
	}
	types, err := FieldTypesFromAttributes(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, doc.Location())
	}
	return types, nil
}
