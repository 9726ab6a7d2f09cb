package entries

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Kind discriminates Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindString
	KindStrings
	KindBool
	KindAttachments
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	case KindBool:
		return "bool"
	case KindAttachments:
		return "attachments"
	case KindRaw:
		return "raw"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a field value. The zero Value is undefined.
type Value struct {
	kind  Kind
	str   string
	strs  []string
	flag  bool
	files []Attachment
	raw   json.RawMessage
}

func Undefined() Value { return Value{} }

func Null() Value { return Value{kind: KindNull} }

func String(s string) Value { return Value{kind: KindString, str: s} }

// Strings builds a list value. A call without arguments yields an empty,
// non-nil list which encodes as [].
func Strings(items ...string) Value {
	return Value{kind: KindStrings, strs: append([]string{}, items...)}
}

func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Attachments builds a value listing uploaded files.
func Attachments(files []Attachment) Value {
	return Value{kind: KindAttachments, files: append([]Attachment{}, files...)}
}

// Raw keeps a JSON value the tree has no dedicated kind for.
func Raw(msg json.RawMessage) Value {
	return Value{kind: KindRaw, raw: append(json.RawMessage(nil), msg...)}
}

func (v Value) Kind() Kind { return v.kind }

// IsDefined reports whether the value is anything but undefined.
func (v Value) IsDefined() bool { return v.kind != KindUndefined }

func (v Value) Str() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) StringList() ([]string, bool) {
	if v.kind != KindStrings {
		return nil, false
	}
	return append([]string{}, v.strs...), true
}

func (v Value) BoolValue() (bool, bool) {
	return v.flag, v.kind == KindBool
}

func (v Value) Files() ([]Attachment, bool) {
	if v.kind != KindAttachments {
		return nil, false
	}
	return append([]Attachment{}, v.files...), true
}

func (v Value) RawJSON() (json.RawMessage, bool) {
	if v.kind != KindRaw {
		return nil, false
	}
	return append(json.RawMessage(nil), v.raw...), true
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	out := Value{kind: v.kind, str: v.str, flag: v.flag}
	if v.strs != nil {
		out.strs = append([]string{}, v.strs...)
	}
	if v.files != nil {
		out.files = append([]Attachment{}, v.files...)
	}
	if v.raw != nil {
		out.raw = append(json.RawMessage(nil), v.raw...)
	}
	return out
}

// Equal compares kind and payload. go-cmp picks this method up.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindStrings:
		return slices.Equal(v.strs, other.strs)
	case KindBool:
		return v.flag == other.flag
	case KindAttachments:
		return slices.Equal(v.files, other.files)
	case KindRaw:
		return bytes.Equal(compact(v.raw), compact(other.raw))
	default:
		return true
	}
}

// MapStrings applies fn to every string held by the value.
func (v Value) MapStrings(fn func(string) string) Value {
	switch v.kind {
	case KindString:
		return String(fn(v.str))
	case KindStrings:
		out := make([]string, len(v.strs))
		for idx, item := range v.strs {
			out[idx] = fn(item)
		}
		return Value{kind: KindStrings, strs: out}
	default:
		return v.Clone()
	}
}

// MarshalJSON encodes undefined as null; FieldEntry omits undefined values
// before they get here.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindUndefined, KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.str)
	case KindStrings:
		if v.strs == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.strs)
	case KindBool:
		return json.Marshal(v.flag)
	case KindAttachments:
		if v.files == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.files)
	case KindRaw:
		if len(v.raw) == 0 {
			return []byte("null"), nil
		}
		return compact(v.raw), nil
	default:
		return nil, fmt.Errorf("entries: cannot encode value of %s", v.kind)
	}
}

// UnmarshalJSON decodes any JSON value. Arrays of strings become KindStrings,
// arrays of objects carrying an "id" become KindAttachments, everything
// without a dedicated kind is kept as KindRaw.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*v = Undefined()
		return nil
	}
	switch trimmed[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var flag bool
		if err := json.Unmarshal(trimmed, &flag); err != nil {
			return fmt.Errorf("entries: decode value: %w", err)
		}
		*v = Bool(flag)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("entries: decode value: %w", err)
		}
		*v = String(s)
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return fmt.Errorf("entries: decode value: %w", err)
		}
		if decoded, ok := decodeStringList(items); ok {
			*v = Value{kind: KindStrings, strs: decoded}
			return nil
		}
		if files, ok := decodeAttachmentList(items); ok {
			*v = Value{kind: KindAttachments, files: files}
			return nil
		}
	}
	*v = Raw(trimmed)
	return nil
}

func decodeStringList(items []json.RawMessage) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func decodeAttachmentList(items []json.RawMessage) ([]Attachment, bool) {
	out := make([]Attachment, 0, len(items))
	for _, item := range items {
		var members map[string]json.RawMessage
		if err := json.Unmarshal(item, &members); err != nil {
			return nil, false
		}
		if _, ok := members["id"]; !ok {
			return nil, false
		}
		var file Attachment
		if err := json.Unmarshal(item, &file); err != nil {
			return nil, false
		}
		out = append(out, file)
	}
	return out, true
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
