package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned for blank payloads.
var ErrEmptyDocument = errors.New("schema: document is empty")

// Format is the encoding detected for a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat treats payloads opening with '{' or '[' as JSON and
// everything else as YAML.
func DetectFormat(raw []byte) Format {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return FormatJSON
	}
	return FormatYAML
}

// Document is a fetched payload together with where it came from.
type Document struct {
	source Source
	format Format
	raw    []byte
}

// NewDocument copies raw and records its format.
func NewDocument(src Source, raw []byte) (Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, fmt.Errorf("%w: %s", ErrEmptyDocument, src)
	}
	return Document{
		source: src,
		format: DetectFormat(raw),
		raw:    bytes.Clone(raw),
	}, nil
}

func (d Document) Source() Source   { return d.source }
func (d Document) Location() string { return d.source.Location() }
func (d Document) Format() Format   { return d.format }

// Raw returns a copy of the payload as fetched.
func (d Document) Raw() []byte {
	return bytes.Clone(d.raw)
}

// JSON returns the payload as JSON.
func (d Document) JSON() ([]byte, error) {
	return ToJSON(d.raw)
}

// Decode unmarshals the payload into dest through its JSON form, so JSON
// struct tags apply to YAML documents as well.
func (d Document) Decode(dest any) error {
	data, err := d.JSON()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("schema: decode %s: %w", d.source, err)
	}
	return nil
}

// ToJSON validates JSON payloads and converts YAML ones.
func ToJSON(raw []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrEmptyDocument
	}
	if DetectFormat(trimmed) == FormatJSON {
		if !json.Valid(trimmed) {
			return nil, errors.New("schema: invalid JSON document")
		}
		return bytes.Clone(trimmed), nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil {
		return nil, fmt.Errorf("schema: decode yaml: %w", err)
	}
	value, err := yamlValue(&node)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("schema: convert yaml: %w", err)
	}
	return out, nil
}

// yamlValue converts a YAML node into JSON compatible values. Mapping keys
// are always strings, so `1: x` becomes {"1": "x"}.
func yamlValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return yamlValue(node.Content[0])
	case yaml.AliasNode:
		return yamlValue(node.Alias)
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for idx := 0; idx+1 < len(node.Content); idx += 2 {
			value, err := yamlValue(node.Content[idx+1])
			if err != nil {
				return nil, err
			}
			out[node.Content[idx].Value] = value
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, value)
		}
		return out, nil
	default:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, fmt.Errorf("schema: decode yaml line %d: %w", node.Line, err)
		}
		return value, nil
	}
}
