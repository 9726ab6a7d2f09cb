// Package submission flattens an edited entries tree and the pending uploads
// list into the payload sent on save and submit.
package submission

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-appform/pkg/entries"
)

// Entries wraps the submitted sections.
type Entries struct {
	Sections map[string]entries.Slot `json:"sections"`
}

// Payload is the wire body for application save and submit.
type Payload struct {
	Form        int                    `json:"form"`
	Entries     Entries                `json:"entries"`
	Targets     json.RawMessage        `json:"targets"`
	Attachments []entries.AttachmentID `json:"attachments"`
}

// Sanitizer rewrites free text before it leaves the client.
type Sanitizer interface {
	Sanitize(string) string
}

// Option configures a Preparer.
type Option func(*Preparer)

// WithSanitizer runs every string value and extra value through s. The live
// tree is never touched; sanitising works on a copy.
func WithSanitizer(s Sanitizer) Option {
	return func(p *Preparer) {
		p.sanitizer = s
	}
}

// WithStrictSanitizer strips all markup using bluemonday's strict policy.
func WithStrictSanitizer() Option {
	return WithSanitizer(strictPolicy())
}

var (
	strictOnce   sync.Once
	strictShared *bluemonday.Policy
)

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictShared = bluemonday.StrictPolicy()
	})
	return strictShared
}

// Preparer builds submission payloads.
type Preparer struct {
	sanitizer Sanitizer
}

// New creates a Preparer.
func New(options ...Option) *Preparer {
	p := &Preparer{}
	for _, opt := range options {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Prepare reads tree and a snapshot of the pending uploads. Sections are
// taken as they are; attachments keep the pending uploads belonging to one
// of the tree's file fields, in order, reduced to their ids. Neither input is
// modified.
func (p *Preparer) Prepare(tree *entries.Tree, pending []entries.Attachment, formID int, targets json.RawMessage) Payload {
	if tree == nil {
		tree = entries.NewTree()
	}
	sections := tree.Sections
	if p.sanitizer != nil {
		sections = sanitizeSections(tree.Sections, p.sanitizer)
	}
	if sections == nil {
		sections = map[string]entries.Slot{}
	}

	ids := make([]entries.AttachmentID, 0)
	for _, upload := range pending {
		if slices.Contains(tree.FileFieldIDs, upload.Field) {
			ids = append(ids, upload.ID)
		}
	}

	return Payload{
		Form:        formID,
		Entries:     Entries{Sections: sections},
		Targets:     cloneRaw(targets),
		Attachments: ids,
	}
}

// Prepare uses a Preparer without options.
func Prepare(tree *entries.Tree, pending []entries.Attachment, formID int, targets json.RawMessage) Payload {
	return New().Prepare(tree, pending, formID, targets)
}

func sanitizeSections(sections map[string]entries.Slot, s Sanitizer) map[string]entries.Slot {
	out := make(map[string]entries.Slot, len(sections))
	for id, slot := range sections {
		if items, ok := slot.Items(); ok {
			clean := make([]*entries.SectionEntries, len(items))
			for idx, item := range items {
				clean[idx] = sanitizeInstance(item, s)
			}
			out[id] = entries.Repeated(clean...)
			continue
		}
		single, _ := slot.Single()
		out[id] = entries.Single(sanitizeInstance(single, s))
	}
	return out
}

func sanitizeInstance(instance *entries.SectionEntries, s Sanitizer) *entries.SectionEntries {
	out := entries.NewSectionEntries()
	if instance == nil {
		return out
	}
	out.Sections = sanitizeSections(instance.Sections, s)
	clean := s.Sanitize
	for id, field := range instance.Fields {
		out.Fields[id] = entries.FieldEntry{
			Value:      field.Value.MapStrings(clean),
			ExtraValue: field.ExtraValue.MapStrings(clean),
		}
	}
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage{}, raw...)
}
