// Package session drives one applicant's edit session: it builds or resumes
// the entries tree, applies edits, materialises new repeated instances from
// templates and prepares the submission payload.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/goliatone/go-appform/pkg/answers"
	"github.com/goliatone/go-appform/pkg/builder"
	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/fieldcodec"
	"github.com/goliatone/go-appform/pkg/schema"
	"github.com/goliatone/go-appform/pkg/submission"
	"github.com/goliatone/go-appform/pkg/uploads"
)

var (
	// ErrNotStarted is returned by edits before Start or Resume.
	ErrNotStarted = errors.New("session: not started")
	// ErrNoTemplate is returned when appending to a section without a
	// captured template.
	ErrNoTemplate = errors.New("session: no template for section")
	// ErrUnknownField is returned for fields the schema does not declare on
	// the addressed section, or declares disabled.
	ErrUnknownField = errors.New("session: unknown field")
	// ErrFileField is returned when editing a file field through SetField.
	// File fields are fed by the uploads store.
	ErrFileField = errors.New("session: file fields take uploads, not values")
)

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCodec sets the field codec used to build and reshape.
func WithCodec(codec *fieldcodec.Codec) Option {
	return func(s *Session) {
		s.codec = codec
	}
}

// WithMaxDepth bounds section nesting.
func WithMaxDepth(depth int) Option {
	return func(s *Session) {
		s.maxDepth = depth
	}
}

// WithPreparer overrides the submission preparer.
func WithPreparer(p *submission.Preparer) Option {
	return func(s *Session) {
		if p != nil {
			s.preparer = p
		}
	}
}

// Session owns the live tree. Methods are safe for concurrent use and never
// hand out references into the live tree.
type Session struct {
	mu        sync.RWMutex
	form      schema.Form
	types     schema.FieldTypes
	codec     *fieldcodec.Codec
	maxDepth  int
	preparer  *submission.Preparer
	logger    *zap.Logger
	tree      *entries.Tree
	templates entries.Templates
}

// New creates a session for form. Call Start or Resume before editing.
func New(form schema.Form, types schema.FieldTypes, options ...Option) *Session {
	s := &Session{
		form:     form,
		types:    types,
		preparer: submission.New(),
		logger:   zap.NewNop(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Session) build() (builder.Result, error) {
	return builder.New(builder.WithCodec(s.codec), builder.WithMaxDepth(s.maxDepth)).Build(s.form, s.types)
}

// Start initialises the tree with defaults.
func (s *Session) Start() error {
	result, err := s.build()
	if err != nil {
		return fmt.Errorf("session: start: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = result.Tree
	s.templates = result.Templates
	s.logger.Debug("session started",
		zap.Int("sections", len(result.Tree.Sections)),
		zap.Int("templates", len(result.Templates)),
		zap.Strings("file_fields", result.Tree.FileFieldIDs),
	)
	return nil
}

// Resume initialises the tree from saved answers. Templates still come from
// the schema defaults.
func (s *Session) Resume(saved *answers.Node, attachments []entries.Attachment) error {
	result, err := s.build()
	if err != nil {
		return fmt.Errorf("session: resume: %w", err)
	}
	reshaper := answers.NewReshaper(answers.WithCodec(s.codec), answers.WithMaxDepth(s.maxDepth))
	tree, err := reshaper.Reshape(s.form, s.types, saved, attachments)
	if err != nil {
		return fmt.Errorf("session: resume: %w", err)
	}
	for _, id := range result.Tree.FileFieldIDs {
		tree.AddFileField(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
	s.templates = result.Templates
	s.logger.Debug("session resumed",
		zap.Int("sections", len(tree.Sections)),
		zap.Int("attachments", len(attachments)),
	)
	return nil
}

// Form returns the schema the session edits.
func (s *Session) Form() schema.Form { return s.form }

// Types returns the field type table.
func (s *Session) Types() schema.FieldTypes { return s.types }

// Snapshot returns a deep copy of the live tree.
func (s *Session) Snapshot() (*entries.Tree, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return nil, ErrNotStarted
	}
	return s.tree.Clone(), nil
}

// Templates returns a deep copy of the template registry.
func (s *Session) Templates() entries.Templates {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(entries.Templates, len(s.templates))
	for id, blank := range s.templates {
		out[id] = blank.Clone()
	}
	return out
}

// AppendInstance appends a fresh copy of the template to the repeatable
// section addressed by path ("a", "a[0].b") and returns its index.
func (s *Session) AppendInstance(path string) (int, error) {
	parsed, err := entries.ParsePath(path)
	if err != nil {
		return -1, err
	}
	if len(parsed) == 0 {
		return -1, fmt.Errorf("%w: empty path", entries.ErrInvalidPath)
	}
	last := parsed[len(parsed)-1]
	if last.Indexed {
		return -1, fmt.Errorf("%w: %q addresses an instance, not a section", entries.ErrInvalidPath, path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return -1, ErrNotStarted
	}
	parent, err := s.tree.Lookup(parsed.Parent())
	if err != nil {
		return -1, err
	}
	blank, ok := s.templates.Instantiate(last.Section)
	if !ok {
		return -1, fmt.Errorf("%w %q", ErrNoTemplate, last.Section)
	}
	index, err := parent.AppendInstance(last.Section, blank)
	if err != nil {
		return -1, fmt.Errorf("session: append %q: %w", path, err)
	}
	s.logger.Debug("instance appended", zap.String("path", path), zap.Int("index", index))
	return index, nil
}

// RemoveInstance drops one instance of the repeatable section at path.
func (s *Session) RemoveInstance(path string, index int) error {
	parsed, err := entries.ParsePath(path)
	if err != nil {
		return err
	}
	if len(parsed) == 0 || parsed[len(parsed)-1].Indexed {
		return fmt.Errorf("%w: %q", entries.ErrInvalidPath, path)
	}
	last := parsed[len(parsed)-1]

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return ErrNotStarted
	}
	parent, err := s.tree.Lookup(parsed.Parent())
	if err != nil {
		return err
	}
	if err := parent.RemoveInstance(last.Section, index); err != nil {
		return fmt.Errorf("session: remove %q[%d]: %w", path, index, err)
	}
	s.logger.Debug("instance removed", zap.String("path", path), zap.Int("index", index))
	return nil
}

// SetField replaces the entry of field in the instance at path.
func (s *Session) SetField(path, field string, entry entries.FieldEntry) error {
	parsed, err := entries.ParsePath(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree == nil {
		return ErrNotStarted
	}
	if s.tree.IsFileField(field) {
		return fmt.Errorf("%w: %q", ErrFileField, field)
	}
	instance, err := s.tree.Lookup(parsed)
	if err != nil {
		return err
	}
	if _, ok := instance.Fields[field]; !ok && !s.declares(parsed, field) {
		return fmt.Errorf("%w %q at %q", ErrUnknownField, field, path)
	}
	instance.Fields[field] = entry.Clone()
	return nil
}

// Field reads the entry of field in the instance at path.
func (s *Session) Field(path, field string) (entries.FieldEntry, error) {
	parsed, err := entries.ParsePath(path)
	if err != nil {
		return entries.FieldEntry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return entries.FieldEntry{}, ErrNotStarted
	}
	instance, err := s.tree.Lookup(parsed)
	if err != nil {
		return entries.FieldEntry{}, err
	}
	entry, ok := instance.Fields[field]
	if !ok {
		// Resumed instances without saved answers carry no entries.
		if s.declares(parsed, field) {
			return entries.FieldEntry{}, nil
		}
		return entries.FieldEntry{}, fmt.Errorf("%w %q at %q", ErrUnknownField, field, path)
	}
	return entry.Clone(), nil
}

// declares reports whether the section addressed by path declares field as
// an enabled field.
func (s *Session) declares(path entries.Path, field string) bool {
	if len(path) == 0 {
		return false
	}
	sections := s.form.Sections
	var current schema.Section
	for _, step := range path {
		idx := slices.IndexFunc(sections, func(candidate schema.Section) bool {
			return candidate.Visible && candidate.Identifier == step.Section
		})
		if idx < 0 {
			return false
		}
		current = sections[idx]
		sections = current.Subsections
	}
	return slices.ContainsFunc(current.Fields, func(candidate schema.Field) bool {
		return candidate.Enabled && candidate.Identifier == field
	})
}

// Submit snapshots the pending uploads and the tree and prepares the
// payload. A nil store means no uploads.
func (s *Session) Submit(ctx context.Context, store uploads.Store, formID int, targets json.RawMessage) (submission.Payload, error) {
	var pending []entries.Attachment
	if store != nil {
		list, err := store.List(ctx)
		if err != nil {
			return submission.Payload{}, fmt.Errorf("session: list uploads: %w", err)
		}
		pending = list
	}

	tree, err := s.Snapshot()
	if err != nil {
		return submission.Payload{}, err
	}
	payload := s.preparer.Prepare(tree, pending, formID, targets)
	s.logger.Info("submission prepared",
		zap.Int("form", formID),
		zap.Int("sections", len(payload.Entries.Sections)),
		zap.Int("attachments", len(payload.Attachments)),
	)
	return payload, nil
}

// Count returns the number of instances of the repeatable section at path.
func (s *Session) Count(path string) (int, error) {
	parsed, err := entries.ParsePath(path)
	if err != nil {
		return 0, err
	}
	if len(parsed) == 0 || parsed[len(parsed)-1].Indexed {
		return 0, fmt.Errorf("%w: %q", entries.ErrInvalidPath, path)
	}
	last := parsed[len(parsed)-1]

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tree == nil {
		return 0, ErrNotStarted
	}
	parent, err := s.tree.Lookup(parsed.Parent())
	if err != nil {
		return 0, err
	}
	slot, ok := parent.Sections[last.Section]
	if !ok {
		return 0, entries.ErrUnknownSection
	}
	if !slot.IsRepeated() {
		return 0, entries.ErrNotRepeatable
	}
	return slot.Len(), nil
}
