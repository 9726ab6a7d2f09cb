// Package fieldcodec maps field type tags to the rules that produce a
// field's default entry and read its value back from a saved answer.
package fieldcodec

import (
	"sync"

	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/schema"
)

// Placement says where a default entry goes.
type Placement int

const (
	// PlaceNone drops the field; disabled fields end up here.
	PlaceNone Placement = iota
	// PlaceEntry stores the entry under the section's fields.
	PlaceEntry
	// PlaceFileField keeps the field out of the tree and records its
	// identifier in Tree.FileFieldIDs.
	PlaceFileField
)

// Strategy holds the rules for one type tag.
type Strategy interface {
	DefaultEntry(field schema.Field) (entries.FieldEntry, Placement)
	ExtractValue(field schema.Field, answer entries.FieldEntry, attachments []entries.Attachment) entries.FieldEntry
}

// Codec dispatches to the strategy registered for a tag. Unknown tags use
// the fallback, which treats the field as text.
type Codec struct {
	mu         sync.RWMutex
	strategies map[schema.TypeTag]Strategy
	fallback   Strategy
}

// Option customises a Codec.
type Option func(*Codec)

// WithStrategy registers or replaces the strategy for tag.
func WithStrategy(tag schema.TypeTag, strategy Strategy) Option {
	return func(c *Codec) {
		c.register(tag, strategy)
	}
}

// WithFallback replaces the strategy used for unknown tags.
func WithFallback(strategy Strategy) Option {
	return func(c *Codec) {
		if strategy != nil {
			c.fallback = strategy
		}
	}
}

// New returns a codec with the built-in strategies registered.
func New(options ...Option) *Codec {
	c := &Codec{
		strategies: make(map[schema.TypeTag]Strategy),
		fallback:   Text{},
	}
	c.register(schema.TypeTextbox, Text{})
	c.register(schema.TypeTextarea, Text{})
	c.register(schema.TypeDropdown, Dropdown{})
	c.register(schema.TypeRadioButton, Radio{})
	c.register(schema.TypeRadioButtonInline, Radio{})
	c.register(schema.TypeCheckbox, Checkbox{})
	c.register(schema.TypeUploadFiles, Upload{})
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var (
	defaultOnce  sync.Once
	defaultCodec *Codec
)

// Default returns a shared codec with only the built-in strategies.
func Default() *Codec {
	defaultOnce.Do(func() {
		defaultCodec = New()
	})
	return defaultCodec
}

// Register adds or replaces the strategy for tag after construction.
func (c *Codec) Register(tag schema.TypeTag, strategy Strategy) {
	if c == nil {
		return
	}
	c.register(tag, strategy)
}

func (c *Codec) register(tag schema.TypeTag, strategy Strategy) {
	if strategy == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strategies[tag] = strategy
}

// Lookup returns the strategy for tag, falling back to text handling.
func (c *Codec) Lookup(tag schema.TypeTag) Strategy {
	if c == nil {
		return Text{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if strategy, ok := c.strategies[tag]; ok {
		return strategy
	}
	return c.fallback
}

// DefaultEntry returns the build-time entry of field. Disabled fields are
// never placed.
func (c *Codec) DefaultEntry(tag schema.TypeTag, field schema.Field) (entries.FieldEntry, Placement) {
	if !field.Enabled {
		return entries.FieldEntry{}, PlaceNone
	}
	return c.Lookup(tag).DefaultEntry(field)
}

// ExtractValue converts a saved answer into the entry the editor expects.
// attachments is read, never modified.
func (c *Codec) ExtractValue(tag schema.TypeTag, field schema.Field, answer entries.FieldEntry, attachments []entries.Attachment) entries.FieldEntry {
	return c.Lookup(tag).ExtractValue(field, answer, attachments)
}
