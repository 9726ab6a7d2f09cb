// Package fill lets an applicant answer a form from the terminal. It walks
// the schema in tree order and writes every answer through the session, so
// repeated instances come from the session's templates.
package fill

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/fieldcodec"
	"github.com/goliatone/go-appform/pkg/schema"
	"github.com/goliatone/go-appform/pkg/session"
)

// Option configures a Filler.
type Option func(*Filler)

// WithPromptDriver overrides the terminal driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(f *Filler) {
		if driver != nil {
			f.driver = driver
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Filler prompts for every visible, enabled field of a session.
type Filler struct {
	driver PromptDriver
	logger *zap.Logger
}

// New creates a Filler using the survey driver by default.
func New(options ...Option) *Filler {
	f := &Filler{driver: SurveyDriver(), logger: zap.NewNop()}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fill walks the session's form. The session must be started.
func (f *Filler) Fill(ctx context.Context, s *session.Session) error {
	form := s.Form()
	for _, section := range form.Sections {
		if err := f.section(ctx, s, section, ""); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) section(ctx context.Context, s *session.Session, section schema.Section, parent string) error {
	if !section.Visible {
		return nil
	}
	path := joinPath(parent, section.Identifier)
	if !section.AddNewAllowed {
		return f.instance(ctx, s, section, path)
	}

	count, err := s.Count(path)
	if err != nil {
		return err
	}
	for idx := 0; idx < count; idx++ {
		if err := f.instance(ctx, s, section, indexed(path, idx)); err != nil {
			return err
		}
	}
	for {
		more, err := f.driver.Confirm(ctx, ConfirmConfig{
			Message: fmt.Sprintf("Add another %s?", sectionTitle(section)),
		})
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		idx, err := s.AppendInstance(path)
		if err != nil {
			return err
		}
		if err := f.instance(ctx, s, section, indexed(path, idx)); err != nil {
			return err
		}
	}
}

func (f *Filler) instance(ctx context.Context, s *session.Session, section schema.Section, path string) error {
	if err := f.driver.Info(ctx, "== "+sectionTitle(section)); err != nil {
		return err
	}
	for _, field := range section.Fields {
		if !field.Enabled {
			continue
		}
		if err := f.field(ctx, s, field, path); err != nil {
			return fmt.Errorf("fill: %s.%s: %w", path, field.Identifier, err)
		}
	}
	for _, sub := range section.Subsections {
		if err := f.section(ctx, s, sub, path); err != nil {
			return err
		}
	}
	return nil
}

func (f *Filler) field(ctx context.Context, s *session.Session, field schema.Field, path string) error {
	tag := s.Types().Tag(field)
	label := fieldLabel(field)

	if tag == schema.TypeUploadFiles {
		return f.driver.Info(ctx, fmt.Sprintf("%s: attach files with `appform uploads add %s <name>`", label, field.Identifier))
	}

	current, err := s.Field(path, field.Identifier)
	if err != nil {
		return err
	}

	next := current.Clone()
	switch tag {
	case schema.TypeTextarea:
		text, _ := current.Value.Str()
		answer, err := f.driver.TextArea(ctx, InputConfig{Message: label, Default: text, Help: field.HintText})
		if err != nil {
			return err
		}
		next.Value = entries.String(answer)
	case schema.TypeDropdown, schema.TypeRadioButton, schema.TypeRadioButtonInline:
		if len(field.Choices) == 0 {
			return f.text(ctx, s, field, path, current)
		}
		selected, _ := current.Value.Str()
		idx, err := f.driver.Select(ctx, SelectConfig{
			Message:      label,
			Options:      choiceLabels(field.Choices),
			DefaultIndex: choiceIndex(field.Choices, selected),
			Help:         field.HintText,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(field.Choices) {
			return nil
		}
		choice := field.Choices[idx]
		next.Value = entries.String(choice.Key())
		if choice.HasTextInput {
			if next.ExtraValue, err = f.extra(ctx, choice, current); err != nil {
				return err
			}
		}
	case schema.TypeCheckbox:
		if !fieldcodec.IsMultiSelect(field) {
			checked, _ := current.Value.BoolValue()
			answer, err := f.driver.Confirm(ctx, ConfirmConfig{Message: label, Default: checked, Help: field.HintText})
			if err != nil {
				return err
			}
			next.Value = entries.Bool(answer)
			break
		}
		selected, _ := current.Value.StringList()
		picked, err := f.driver.MultiSelect(ctx, SelectConfig{
			Message:  label,
			Options:  choiceLabels(field.Choices),
			Defaults: choiceIndices(field.Choices, selected),
			Help:     field.HintText,
		})
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(picked))
		for _, idx := range picked {
			if idx >= 0 && idx < len(field.Choices) {
				keys = append(keys, field.Choices[idx].Key())
			}
		}
		next.Value = entries.Strings(keys...)
	default:
		return f.text(ctx, s, field, path, current)
	}
	f.logger.Debug("field answered",
		zap.String("path", path),
		zap.String("field", field.Identifier),
		zap.String("type", string(tag)),
	)
	return s.SetField(path, field.Identifier, next)
}

func (f *Filler) text(ctx context.Context, s *session.Session, field schema.Field, path string, current entries.FieldEntry) error {
	text, _ := current.Value.Str()
	answer, err := f.driver.Input(ctx, InputConfig{Message: fieldLabel(field), Default: text, Help: field.HintText})
	if err != nil {
		return err
	}
	next := current.Clone()
	next.Value = entries.String(answer)
	return s.SetField(path, field.Identifier, next)
}

func (f *Filler) extra(ctx context.Context, choice schema.Choice, current entries.FieldEntry) (entries.Value, error) {
	text, _ := current.ExtraValue.Str()
	answer, err := f.driver.Input(ctx, InputConfig{Message: choice.Label() + ":", Default: text})
	if err != nil {
		return entries.Value{}, err
	}
	return entries.String(answer), nil
}

func joinPath(parent, id string) string {
	if parent == "" {
		return id
	}
	return parent + "." + id
}

func indexed(path string, idx int) string {
	return path + "[" + strconv.Itoa(idx) + "]"
}

func sectionTitle(section schema.Section) string {
	if title := strings.TrimSpace(section.Title); title != "" {
		return title
	}
	return section.Identifier
}

func fieldLabel(field schema.Field) string {
	if label := strings.TrimSpace(field.Label); label != "" {
		return label
	}
	return field.Identifier
}

func choiceLabels(choices []schema.Choice) []string {
	out := make([]string, len(choices))
	for idx, choice := range choices {
		out[idx] = choice.Label()
	}
	return out
}

func choiceIndex(choices []schema.Choice, key string) int {
	for idx, choice := range choices {
		if choice.Key() == key {
			return idx
		}
	}
	return -1
}

func choiceIndices(choices []schema.Choice, keys []string) []int {
	var out []int
	for idx, choice := range choices {
		if slices.Contains(keys, choice.Key()) {
			out = append(out, idx)
		}
	}
	return out
}
