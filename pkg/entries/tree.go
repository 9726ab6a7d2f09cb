package entries

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// SectionEntries is one instance of a section.
type SectionEntries struct {
	Sections map[string]Slot       `json:"sections"`
	Fields   map[string]FieldEntry `json:"fields"`
}

// NewSectionEntries allocates an empty instance.
func NewSectionEntries() *SectionEntries {
	return &SectionEntries{
		Sections: make(map[string]Slot),
		Fields:   make(map[string]FieldEntry),
	}
}

// Clone deep copies the instance. Cloning nil yields an empty instance.
func (e *SectionEntries) Clone() *SectionEntries {
	out := NewSectionEntries()
	if e == nil {
		return out
	}
	for id, slot := range e.Sections {
		out.Sections[id] = slot.Clone()
	}
	for id, field := range e.Fields {
		out.Fields[id] = field.Clone()
	}
	return out
}

// Equal compares two instances structurally; nil equals an empty instance.
func (e *SectionEntries) Equal(other *SectionEntries) bool {
	left, right := e, other
	if left == nil {
		left = NewSectionEntries()
	}
	if right == nil {
		right = NewSectionEntries()
	}
	if !maps.EqualFunc(left.Sections, right.Sections, Slot.Equal) {
		return false
	}
	return maps.EqualFunc(left.Fields, right.Fields, func(a, b FieldEntry) bool {
		return a.Value.Equal(b.Value) && a.ExtraValue.Equal(b.ExtraValue)
	})
}

// UnmarshalJSON keeps both maps non-nil.
func (e *SectionEntries) UnmarshalJSON(data []byte) error {
	type plain SectionEntries
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("entries: decode section entries: %w", err)
	}
	if decoded.Sections == nil {
		decoded.Sections = make(map[string]Slot)
	}
	if decoded.Fields == nil {
		decoded.Fields = make(map[string]FieldEntry)
	}
	*e = SectionEntries(decoded)
	return nil
}

// Tree is the root of an application's entries.
type Tree struct {
	Sections     map[string]Slot `json:"sections"`
	FileFieldIDs []string        `json:"fileFieldIds"`
}

// NewTree allocates an empty tree.
func NewTree() *Tree {
	return &Tree{
		Sections:     make(map[string]Slot),
		FileFieldIDs: []string{},
	}
}

// Root exposes the top level sections as a SectionEntries sharing the tree's
// map, so helpers written against instances work on the root as well.
func (t *Tree) Root() *SectionEntries {
	if t.Sections == nil {
		t.Sections = make(map[string]Slot)
	}
	return &SectionEntries{Sections: t.Sections, Fields: map[string]FieldEntry{}}
}

// AddFileField records a file field identifier once.
func (t *Tree) AddFileField(id string) {
	if slices.Contains(t.FileFieldIDs, id) {
		return
	}
	t.FileFieldIDs = append(t.FileFieldIDs, id)
}

// IsFileField reports whether id was recorded as a file field.
func (t *Tree) IsFileField(id string) bool {
	return slices.Contains(t.FileFieldIDs, id)
}

// Clone deep copies the tree.
func (t *Tree) Clone() *Tree {
	out := NewTree()
	if t == nil {
		return out
	}
	for id, slot := range t.Sections {
		out.Sections[id] = slot.Clone()
	}
	out.FileFieldIDs = append(out.FileFieldIDs, t.FileFieldIDs...)
	return out
}

// Equal compares sections and file field ids.
func (t *Tree) Equal(other *Tree) bool {
	left, right := t, other
	if left == nil {
		left = NewTree()
	}
	if right == nil {
		right = NewTree()
	}
	if !slices.Equal(left.FileFieldIDs, right.FileFieldIDs) {
		return false
	}
	return maps.EqualFunc(left.Sections, right.Sections, Slot.Equal)
}

func (t Tree) MarshalJSON() ([]byte, error) {
	type plain Tree
	out := plain{Sections: t.Sections, FileFieldIDs: t.FileFieldIDs}
	if out.Sections == nil {
		out.Sections = map[string]Slot{}
	}
	if out.FileFieldIDs == nil {
		out.FileFieldIDs = []string{}
	}
	return json.Marshal(out)
}

func (t *Tree) UnmarshalJSON(data []byte) error {
	type plain Tree
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("entries: decode tree: %w", err)
	}
	if decoded.Sections == nil {
		decoded.Sections = make(map[string]Slot)
	}
	if decoded.FileFieldIDs == nil {
		decoded.FileFieldIDs = []string{}
	}
	*t = Tree(decoded)
	return nil
}

// Templates holds one blank instance per repeatable section identifier.
type Templates map[string]*SectionEntries

// Capture stores a deep copy of blank under id unless one is already held.
// Templates never change after their first capture.
func (t Templates) Capture(id string, blank *SectionEntries) {
	if _, exists := t[id]; exists {
		return
	}
	t[id] = blank.Clone()
}

// Instantiate returns a fresh deep copy of the template for id.
func (t Templates) Instantiate(id string) (*SectionEntries, bool) {
	blank, ok := t[id]
	if !ok {
		return nil, false
	}
	return blank.Clone(), true
}

// Equal compares two registries.
func (t Templates) Equal(other Templates) bool {
	return maps.EqualFunc(t, other, (*SectionEntries).Equal)
}
