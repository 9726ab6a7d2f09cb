package fieldcodec

import (
	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/schema"
)

// Text covers textbox, textarea and any unrecognised tag.
type Text struct{}

func (Text) DefaultEntry(schema.Field) (entries.FieldEntry, Placement) {
	return entries.TextEntry(), PlaceEntry
}

func (Text) ExtractValue(_ schema.Field, answer entries.FieldEntry, _ []entries.Attachment) entries.FieldEntry {
	return answer.Clone()
}

// Dropdown defaults to empty text. Saved answers of a dropdown without
// declared choices read a missing value as null.
type Dropdown struct{}

func (Dropdown) DefaultEntry(schema.Field) (entries.FieldEntry, Placement) {
	return entries.TextEntry(), PlaceEntry
}

func (Dropdown) ExtractValue(field schema.Field, answer entries.FieldEntry, _ []entries.Attachment) entries.FieldEntry {
	return nullWhenChoiceless(field, answer)
}

// Radio defaults to empty text but reads a missing value as null, never as
// an empty string. The asymmetry is deliberate.
type Radio struct{}

func (Radio) DefaultEntry(schema.Field) (entries.FieldEntry, Placement) {
	return entries.TextEntry(), PlaceEntry
}

func (Radio) ExtractValue(_ schema.Field, answer entries.FieldEntry, _ []entries.Attachment) entries.FieldEntry {
	out := answer.Clone()
	if !out.Value.IsDefined() {
		out.Value = entries.Null()
	}
	if !out.ExtraValue.IsDefined() {
		out.ExtraValue = entries.Null()
	}
	return out
}

// Checkbox is list valued when more than one choice is declared and a
// boolean toggle otherwise. Only the choice count decides.
type Checkbox struct{}

// IsMultiSelect reports whether field holds a list of selected choices.
func IsMultiSelect(field schema.Field) bool {
	return len(field.Choices) > 1
}

func (Checkbox) DefaultEntry(field schema.Field) (entries.FieldEntry, Placement) {
	if IsMultiSelect(field) {
		return entries.FieldEntry{Value: entries.Strings(), ExtraValue: entries.String("")}, PlaceEntry
	}
	return entries.FieldEntry{Value: entries.Bool(false), ExtraValue: entries.String("")}, PlaceEntry
}

func (Checkbox) ExtractValue(field schema.Field, answer entries.FieldEntry, _ []entries.Attachment) entries.FieldEntry {
	return nullWhenChoiceless(field, answer)
}

// Upload fields never live in the entries tree; their value is the list of
// attachments tagged with the field identifier.
type Upload struct{}

func (Upload) DefaultEntry(schema.Field) (entries.FieldEntry, Placement) {
	return entries.FieldEntry{}, PlaceFileField
}

func (Upload) ExtractValue(field schema.Field, _ entries.FieldEntry, attachments []entries.Attachment) entries.FieldEntry {
	return entries.FieldEntry{
		Value:      entries.Attachments(entries.AttachmentsForField(attachments, field.Identifier)),
		ExtraValue: entries.String(""),
	}
}

func nullWhenChoiceless(field schema.Field, answer entries.FieldEntry) entries.FieldEntry {
	out := answer.Clone()
	if len(field.Choices) == 0 && !out.Value.IsDefined() {
		out.Value = entries.Null()
	}
	return out
}
