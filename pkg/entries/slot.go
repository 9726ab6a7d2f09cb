package entries

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Slot is the value stored under a section identifier: one instance for a
// singular section, a list for a repeatable one. The variant is fixed when
// the slot is created.
type Slot struct {
	repeated bool
	single   *SectionEntries
	items    []*SectionEntries
}

// Single wraps the instance of a non-repeatable section.
func Single(entries *SectionEntries) Slot {
	if entries == nil {
		entries = NewSectionEntries()
	}
	return Slot{single: entries}
}

// Repeated wraps the instances of a repeatable section. Zero instances is a
// valid, empty list.
func Repeated(items ...*SectionEntries) Slot {
	list := make([]*SectionEntries, 0, len(items))
	for _, item := range items {
		if item == nil {
			item = NewSectionEntries()
		}
		list = append(list, item)
	}
	return Slot{repeated: true, items: list}
}

func (s Slot) IsRepeated() bool { return s.repeated }

// Single returns the wrapped instance of a singular slot.
func (s Slot) Single() (*SectionEntries, bool) {
	if s.repeated {
		return nil, false
	}
	return s.single, s.single != nil
}

// Items returns the instances of a repeated slot. The slice is a copy; the
// instances are shared.
func (s Slot) Items() ([]*SectionEntries, bool) {
	if !s.repeated {
		return nil, false
	}
	return append([]*SectionEntries{}, s.items...), true
}

// Len is the number of instances (1 for a singular slot).
func (s Slot) Len() int {
	if s.repeated {
		return len(s.items)
	}
	if s.single == nil {
		return 0
	}
	return 1
}

// Clone deep copies the slot.
func (s Slot) Clone() Slot {
	if s.repeated {
		items := make([]*SectionEntries, len(s.items))
		for idx, item := range s.items {
			items[idx] = item.Clone()
		}
		return Slot{repeated: true, items: items}
	}
	return Slot{single: s.single.Clone()}
}

// Equal compares variant and content.
func (s Slot) Equal(other Slot) bool {
	if s.repeated != other.repeated {
		return false
	}
	if !s.repeated {
		return s.single.Equal(other.single)
	}
	if len(s.items) != len(other.items) {
		return false
	}
	for idx := range s.items {
		if !s.items[idx].Equal(other.items[idx]) {
			return false
		}
	}
	return true
}

func (s Slot) MarshalJSON() ([]byte, error) {
	if s.repeated {
		if s.items == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.items)
	}
	if s.single == nil {
		return json.Marshal(NewSectionEntries())
	}
	return json.Marshal(s.single)
}

// UnmarshalJSON picks the variant from the JSON shape: arrays are repeated,
// objects singular.
func (s *Slot) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("entries: empty section slot")
	}
	switch trimmed[0] {
	case '[':
		var items []*SectionEntries
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("entries: decode repeated section: %w", err)
		}
		*s = Repeated(items...)
	case '{':
		single := NewSectionEntries()
		if err := json.Unmarshal(trimmed, single); err != nil {
			return fmt.Errorf("entries: decode section: %w", err)
		}
		*s = Single(single)
	default:
		return fmt.Errorf("entries: section slot must be an object or array")
	}
	return nil
}
