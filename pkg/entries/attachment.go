package entries

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AttachmentID is an upload id. Server ids are numeric, locally registered
// uploads use UUIDs, so both forms are accepted.
type AttachmentID string

// MarshalJSON writes ids in canonical decimal form ("42", "-3") as JSON
// numbers, the way the server issues them. Any other spelling, "007" or "+5"
// included, stays a JSON string.
func (id AttachmentID) MarshalJSON() ([]byte, error) {
	if id.numeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id AttachmentID) numeric() bool {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return err == nil && strconv.FormatInt(n, 10) == string(id)
}

func (id *AttachmentID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("entries: attachment id: %w", err)
		}
		*id = AttachmentID(s)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return fmt.Errorf("entries: attachment id: %w", err)
	}
	*id = AttachmentID(number.String())
	return nil
}

// Attachment references an uploaded file and the file field it belongs to.
type Attachment struct {
	ID    AttachmentID `json:"id"`
	Field string       `json:"field"`
	Name  string       `json:"name,omitempty"`
}

// AttachmentsForField returns, in order, the attachments owned by field.
// The input is never modified.
func AttachmentsForField(all []Attachment, field string) []Attachment {
	out := make([]Attachment, 0)
	for _, file := range all {
		if file.Field == field {
			out = append(out, file)
		}
	}
	return out
}
