package answers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/schema"
)

const (
	fieldsKey   = "fields"
	sectionsKey = "sections"
)

// Node is one level of a saved answer. Section keys are kept verbatim, so
// instances of repeatable sections appear as "<identifier>[<index>]"
// siblings. A nil child stands for an explicit null and counts as absent.
type Node struct {
	Fields   map[string]entries.FieldEntry
	Sections map[string]*Node
}

// NewNode allocates an empty node.
func NewNode() *Node {
	return &Node{
		Fields:   make(map[string]entries.FieldEntry),
		Sections: make(map[string]*Node),
	}
}

// Decode parses a JSON or YAML answer document.
func Decode(raw []byte) (*Node, error) {
	data, err := schema.ToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("answers: %w", err)
	}
	node := NewNode()
	if err := json.Unmarshal(data, node); err != nil {
		return nil, err
	}
	return node, nil
}

// Child returns the node stored under key.
func (n *Node) Child(key string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	child, ok := n.Sections[key]
	if !ok || child == nil {
		return nil, false
	}
	return child, true
}

// Field returns the saved answer of a field; missing answers are undefined.
func (n *Node) Field(id string) entries.FieldEntry {
	if n == nil {
		return entries.FieldEntry{}
	}
	return n.Fields[id]
}

// UnmarshalJSON reads "fields" as field answers and every other object
// member as a section. Members nested under a "sections" object are merged
// with bare siblings, so both layouts servers emit are understood.
func (n *Node) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("answers: decode node: %w", err)
	}
	out := NewNode()
	for key, raw := range members {
		switch key {
		case fieldsKey:
			if isNull(raw) {
				continue
			}
			if err := json.Unmarshal(raw, &out.Fields); err != nil {
				return fmt.Errorf("answers: decode fields: %w", err)
			}
		case sectionsKey:
			if err := out.mergeSections(raw); err != nil {
				return err
			}
		default:
			if err := out.addSection(key, raw); err != nil {
				return err
			}
		}
	}
	if out.Fields == nil {
		out.Fields = make(map[string]entries.FieldEntry)
	}
	*n = *out
	return nil
}

func (n *Node) mergeSections(raw json.RawMessage) error {
	if isNull(raw) {
		return nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(raw, &members); err != nil {
		return fmt.Errorf("answers: decode sections: %w", err)
	}
	for key, member := range members {
		if err := n.addSection(key, member); err != nil {
			return err
		}
	}
	return nil
}

func (n *Node) addSection(key string, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		n.Sections[key] = nil
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '{' {
		// Scalars next to sections carry no answers.
		return nil
	}
	child := NewNode()
	if err := json.Unmarshal(trimmed, child); err != nil {
		return fmt.Errorf("answers: section %q: %w", key, err)
	}
	n.Sections[key] = child
	return nil
}

type fieldAnswerJSON struct {
	Value      *entries.Value `json:"value,omitempty"`
	ExtraValue *entries.Value `json:"extra_value,omitempty"`
}

// MarshalJSON writes the server layout: {"fields": {...}, "sections": {...}}
// with extra_value keys.
func (n *Node) MarshalJSON() ([]byte, error) {
	out := struct {
		Fields   map[string]fieldAnswerJSON `json:"fields,omitempty"`
		Sections map[string]*Node           `json:"sections,omitempty"`
	}{}
	if n == nil {
		return []byte("null"), nil
	}
	if len(n.Fields) > 0 {
		out.Fields = make(map[string]fieldAnswerJSON, len(n.Fields))
		for id, entry := range n.Fields {
			var encoded fieldAnswerJSON
			if entry.Value.IsDefined() {
				value := entry.Value
				encoded.Value = &value
			}
			if entry.ExtraValue.IsDefined() {
				extra := entry.ExtraValue
				encoded.ExtraValue = &extra
			}
			out.Fields[id] = encoded
		}
	}
	if len(n.Sections) > 0 {
		out.Sections = n.Sections
	}
	return json.Marshal(out)
}

// SortedKeys lists section keys in a stable order.
func (n *Node) SortedKeys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, 0, len(n.Sections))
	for key := range n.Sections {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Encode converts an entries sections map into the saved answer layout the
// server echoes back: repeated instances become bracket-indexed siblings.
func Encode(sections map[string]entries.Slot) *Node {
	node := NewNode()
	for id, slot := range sections {
		if items, ok := slot.Items(); ok {
			for idx, item := range items {
				node.Sections[id+"["+strconv.Itoa(idx)+"]"] = encodeInstance(item)
			}
			continue
		}
		single, _ := slot.Single()
		node.Sections[id] = encodeInstance(single)
	}
	return node
}

func encodeInstance(instance *entries.SectionEntries) *Node {
	if instance == nil {
		return NewNode()
	}
	node := Encode(instance.Sections)
	for id, field := range instance.Fields {
		node.Fields[id] = field.Clone()
	}
	return node
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
