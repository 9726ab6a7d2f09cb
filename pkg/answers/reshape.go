// Package answers turns previously saved application answers back into the
// entries tree the editor works on, and encodes trees into the saved layout.
package answers

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-appform/pkg/builder"
	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/fieldcodec"
	"github.com/goliatone/go-appform/pkg/schema"
)

// Option configures a Reshaper.
type Option func(*Reshaper)

// WithCodec overrides the field codec.
func WithCodec(codec *fieldcodec.Codec) Option {
	return func(r *Reshaper) {
		if codec != nil {
			r.codec = codec
		}
	}
}

// WithMaxDepth overrides builder.DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(r *Reshaper) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// Reshaper maps saved answers onto the canonical tree shape.
type Reshaper struct {
	codec    *fieldcodec.Codec
	maxDepth int
}

// NewReshaper creates a Reshaper with the supplied options.
func NewReshaper(options ...Option) *Reshaper {
	r := &Reshaper{
		codec:    fieldcodec.Default(),
		maxDepth: builder.DefaultMaxDepth,
	}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Reshape builds an entries tree from saved answers. Each slot takes the
// same variant the builder would give it; missing answers at any depth leave
// an empty instance (or an empty list) behind instead of failing. File
// fields read their value from attachments, which is never modified.
func (r *Reshaper) Reshape(form schema.Form, types schema.FieldTypes, answers *Node, attachments []entries.Attachment) (*entries.Tree, error) {
	run := &reshapeRun{
		reshaper:    r,
		types:       types,
		attachments: attachments,
		tree:        entries.NewTree(),
	}
	root := run.tree.Root()
	for _, section := range form.Sections {
		run.fileFields(section, 1)
	}
	for idx, section := range form.Sections {
		if err := run.section(section, root, answers, 1); err != nil {
			return nil, fmt.Errorf("answers: section %d: %w", idx, err)
		}
	}
	return run.tree, nil
}

type reshapeRun struct {
	reshaper    *Reshaper
	types       schema.FieldTypes
	attachments []entries.Attachment
	tree        *entries.Tree
}

// fileFields records the upload fields of every visible section in builder
// order, so repeatable sections without saved instances still own theirs.
// Depth and identifier errors are left to section.
func (r *reshapeRun) fileFields(section schema.Section, depth int) {
	if !section.Visible || depth > r.reshaper.maxDepth {
		return
	}
	for _, sub := range section.Subsections {
		r.fileFields(sub, depth+1)
	}
	for _, field := range section.Fields {
		if field.Enabled && r.types.Tag(field) == schema.TypeUploadFiles {
			r.tree.AddFileField(field.Identifier)
		}
	}
}

func (r *reshapeRun) section(section schema.Section, parent *entries.SectionEntries, answers *Node, depth int) error {
	if !section.Visible {
		return nil
	}
	id := strings.TrimSpace(section.Identifier)
	if id == "" {
		return schema.ErrMissingIdentifier
	}
	if depth > r.reshaper.maxDepth {
		return fmt.Errorf("%w (%d) at %q", builder.ErrMaxDepth, r.reshaper.maxDepth, id)
	}

	if !section.AddNewAllowed {
		instance := entries.NewSectionEntries()
		if saved, ok := answers.Child(id); ok {
			filled, err := r.instance(section, saved, depth)
			if err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			instance = filled
		}
		parent.Sections[id] = entries.Single(instance)
		return nil
	}

	parent.Sections[id] = entries.Repeated()
	for _, match := range RepeatedInstances(answers, id) {
		instance, err := r.instance(section, match.Node, depth)
		if err != nil {
			return fmt.Errorf("%s[%d]: %w", id, match.Index, err)
		}
		if _, err := parent.AppendInstance(id, instance); err != nil {
			return err
		}
	}
	return nil
}

func (r *reshapeRun) instance(section schema.Section, saved *Node, depth int) (*entries.SectionEntries, error) {
	data := entries.NewSectionEntries()
	for _, sub := range section.Subsections {
		if err := r.section(sub, data, saved, depth+1); err != nil {
			return nil, err
		}
	}
	for _, field := range section.Fields {
		if strings.TrimSpace(field.Identifier) == "" {
			return nil, fmt.Errorf("field: %w", schema.ErrMissingIdentifier)
		}
		if !field.Enabled {
			continue
		}
		tag := r.types.Tag(field)
		data.Fields[field.Identifier] = r.reshaper.codec.ExtractValue(tag, field, saved.Field(field.Identifier), r.attachments)
	}
	return data, nil
}

// Instance is a saved instance of a repeatable section.
type Instance struct {
	Index int
	Key   string
	Node  *Node
}

// RepeatedInstances collects the "<id>[<n>]" members of node ordered by n.
// Gaps are not filled, null members are dropped and keys that do not match
// the pattern exactly are ignored. When two keys carry the same index (for
// example "a[1]" and "a[01]") the canonical spelling wins.
func RepeatedInstances(node *Node, id string) []Instance {
	if node == nil || len(node.Sections) == 0 {
		return nil
	}
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(id) + `\[(\d+)\]$`)

	byIndex := make(map[int]Instance)
	for _, key := range node.SortedKeys() {
		match := pattern.FindStringSubmatch(key)
		if match == nil {
			continue
		}
		child, ok := node.Child(key)
		if !ok {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if existing, seen := byIndex[index]; seen && existing.Key == id+"["+strconv.Itoa(index)+"]" {
			continue
		}
		byIndex[index] = Instance{Index: index, Key: key, Node: child}
	}

	out := make([]Instance, 0, len(byIndex))
	for _, instance := range byIndex {
		out = append(out, instance)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
