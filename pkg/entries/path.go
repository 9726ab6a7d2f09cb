package entries

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrUnknownSection is returned when a path names a section missing from
	// the tree (never built, or invisible in the schema).
	ErrUnknownSection = errors.New("entries: unknown section")
	// ErrIndexOutOfRange is returned for an instance index past the end.
	ErrIndexOutOfRange = errors.New("entries: instance index out of range")
	// ErrNotRepeatable is returned when an index is applied to a singular
	// section, or an append/remove targets one.
	ErrNotRepeatable = errors.New("entries: section is not repeatable")
	// ErrIndexRequired is returned when a path walks through a repeatable
	// section without selecting an instance.
	ErrIndexRequired = errors.New("entries: instance index required")
	// ErrInvalidPath is returned for unparsable paths.
	ErrInvalidPath = errors.New("entries: invalid path")
)

// Step is one segment of an instance path.
type Step struct {
	Section string
	Index   int
	Indexed bool
}

func (s Step) String() string {
	if s.Indexed {
		return s.Section + "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Section
}

// Path addresses a section instance, e.g. "applicant[1].address".
type Path []Step

func (p Path) String() string {
	parts := make([]string, len(p))
	for idx, step := range p {
		parts[idx] = step.String()
	}
	return strings.Join(parts, ".")
}

// Parent returns the path without its last step.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1]
}

// ParsePath parses dotted section paths with optional bracket indexes. The
// empty string is the root.
func ParsePath(raw string) (Path, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), ".")
	if trimmed == "" {
		return Path{}, nil
	}
	parts := strings.Split(trimmed, ".")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		step, err := parseStep(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPath, raw, err)
		}
		path = append(path, step)
	}
	return path, nil
}

func parseStep(part string) (Step, error) {
	if part == "" {
		return Step{}, errors.New("empty segment")
	}
	open := strings.IndexByte(part, '[')
	if open < 0 {
		if strings.ContainsRune(part, ']') {
			return Step{}, fmt.Errorf("unbalanced bracket in %q", part)
		}
		return Step{Section: part}, nil
	}
	if open == 0 || !strings.HasSuffix(part, "]") {
		return Step{}, fmt.Errorf("malformed segment %q", part)
	}
	index, err := strconv.Atoi(part[open+1 : len(part)-1])
	if err != nil || index < 0 {
		return Step{}, fmt.Errorf("bad index in %q", part)
	}
	return Step{Section: part[:open], Index: index, Indexed: true}, nil
}

// Lookup resolves path to a section instance. Every repeatable step needs an
// index.
func (t *Tree) Lookup(path Path) (*SectionEntries, error) {
	current := t.Root()
	for depth, step := range path {
		next, err := current.child(step)
		if err != nil {
			return nil, fmt.Errorf("%w (at %s)", err, path[:depth+1])
		}
		current = next
	}
	return current, nil
}

func (e *SectionEntries) child(step Step) (*SectionEntries, error) {
	slot, ok := e.Sections[step.Section]
	if !ok {
		return nil, ErrUnknownSection
	}
	if !slot.IsRepeated() {
		if step.Indexed {
			return nil, ErrNotRepeatable
		}
		single, _ := slot.Single()
		return single, nil
	}
	if !step.Indexed {
		return nil, ErrIndexRequired
	}
	if step.Index >= len(slot.items) {
		return nil, ErrIndexOutOfRange
	}
	return slot.items[step.Index], nil
}

// AppendInstance adds instance to the repeatable section id and returns its
// index.
func (e *SectionEntries) AppendInstance(id string, instance *SectionEntries) (int, error) {
	slot, ok := e.Sections[id]
	if !ok {
		return -1, ErrUnknownSection
	}
	if !slot.IsRepeated() {
		return -1, ErrNotRepeatable
	}
	if instance == nil {
		instance = NewSectionEntries()
	}
	slot.items = append(slot.items, instance)
	e.Sections[id] = slot
	return len(slot.items) - 1, nil
}

// RemoveInstance drops instance index of the repeatable section id.
func (e *SectionEntries) RemoveInstance(id string, index int) error {
	slot, ok := e.Sections[id]
	if !ok {
		return ErrUnknownSection
	}
	if !slot.IsRepeated() {
		return ErrNotRepeatable
	}
	if index < 0 || index >= len(slot.items) {
		return ErrIndexOutOfRange
	}
	items := make([]*SectionEntries, 0, len(slot.items)-1)
	items = append(items, slot.items[:index]...)
	items = append(items, slot.items[index+1:]...)
	e.Sections[id] = Slot{repeated: true, items: items}
	return nil
}
