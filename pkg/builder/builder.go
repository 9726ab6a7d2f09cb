// Package builder materialises the default entries tree of a form together
// with the blank templates of its repeatable sections.
package builder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/fieldcodec"
	"github.com/goliatone/go-appform/pkg/schema"
)

// DefaultMaxDepth bounds section nesting. Server schemas are trees, so the
// limit only trips on malformed input.
const DefaultMaxDepth = 64

// ErrMaxDepth is returned when sections nest deeper than the configured limit.
var ErrMaxDepth = errors.New("builder: section nesting exceeds max depth")

// Result is the outcome of Build.
type Result struct {
	Tree      *entries.Tree     `json:"entries"`
	Templates entries.Templates `json:"templates"`
}

// Option configures a Builder.
type Option func(*Builder)

// WithCodec overrides the field codec.
func WithCodec(codec *fieldcodec.Codec) Option {
	return func(b *Builder) {
		if codec != nil {
			b.codec = codec
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(b *Builder) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// Builder converts a form schema into its default entries tree.
type Builder struct {
	codec    *fieldcodec.Codec
	maxDepth int
}

// New creates a Builder with the supplied options.
func New(options ...Option) *Builder {
	b := &Builder{
		codec:    fieldcodec.Default(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range options {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Build walks the form depth first. Invisible sections are left out,
// repeatable sections get a one element list and a template, disabled
// fields are skipped and file fields are only recorded by identifier.
func (b *Builder) Build(form schema.Form, types schema.FieldTypes) (Result, error) {
	run := &buildRun{
		builder:   b,
		types:     types,
		tree:      entries.NewTree(),
		templates: entries.Templates{},
	}
	root := run.tree.Root()
	for idx, section := range form.Sections {
		if err := run.section(section, root, 1); err != nil {
			return Result{}, fmt.Errorf("builder: section %d: %w", idx, err)
		}
	}
	return Result{Tree: run.tree, Templates: run.templates}, nil
}

type buildRun struct {
	builder   *Builder
	types     schema.FieldTypes
	tree      *entries.Tree
	templates entries.Templates
}

func (r *buildRun) section(section schema.Section, parent *entries.SectionEntries, depth int) error {
	if !section.Visible {
		return nil
	}
	id := strings.TrimSpace(section.Identifier)
	if id == "" {
		return schema.ErrMissingIdentifier
	}
	if depth > r.builder.maxDepth {
		return fmt.Errorf("%w (%d) at %q", ErrMaxDepth, r.builder.maxDepth, id)
	}

	working := entries.NewSectionEntries()
	for _, sub := range section.Subsections {
		if err := r.section(sub, working, depth+1); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}

	for _, field := range section.Fields {
		if strings.TrimSpace(field.Identifier) == "" {
			return fmt.Errorf("%s: field: %w", id, schema.ErrMissingIdentifier)
		}
		entry, placement := r.builder.codec.DefaultEntry(r.types.Tag(field), field)
		switch placement {
		case fieldcodec.PlaceEntry:
			working.Fields[field.Identifier] = entry
		case fieldcodec.PlaceFileField:
			r.tree.AddFileField(field.Identifier)
		}
	}

	if section.AddNewAllowed {
		r.templates.Capture(id, working)
		parent.Sections[id] = entries.Repeated(working)
		return nil
	}
	parent.Sections[id] = entries.Single(working)
	return nil
}
