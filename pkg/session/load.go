package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-appform/pkg/answers"
	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/schema"
)

// Sources names the documents of an edit session. Answers and Attachments
// are optional and may be left zero.
type Sources struct {
	Form        schema.Source
	Attributes  schema.Source
	Answers     schema.Source
	Attachments schema.Source
}

// Bundle is the decoded content of Sources.
type Bundle struct {
	Form        schema.Form
	Types       schema.FieldTypes
	Answers     *answers.Node
	Attachments []entries.Attachment
}

// Load fetches and decodes every source concurrently. The form is validated
// before decoding.
func Load(ctx context.Context, loader schema.Loader, sources Sources) (Bundle, error) {
	if loader == nil {
		return Bundle{}, errors.New("session: loader is required")
	}
	if sources.Form.IsZero() || sources.Attributes.IsZero() {
		return Bundle{}, errors.New("session: form and attributes sources are required")
	}

	var bundle Bundle
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		doc, err := loader.Load(gctx, sources.Form)
		if err != nil {
			return fmt.Errorf("session: load form: %w", err)
		}
		form, err := schema.ParseForm(doc)
		if err != nil {
			return err
		}
		bundle.Form = form
		return nil
	})

	group.Go(func() error {
		doc, err := loader.Load(gctx, sources.Attributes)
		if err != nil {
			return fmt.Errorf("session: load attributes: %w", err)
		}
		types, err := schema.ParseFieldTypes(doc)
		if err != nil {
			return err
		}
		bundle.Types = types
		return nil
	})

	if !sources.Answers.IsZero() {
		group.Go(func() error {
			doc, err := loader.Load(gctx, sources.Answers)
			if err != nil {
				return fmt.Errorf("session: load answers: %w", err)
			}
			node, err := answers.Decode(doc.Raw())
			if err != nil {
				return err
			}
			bundle.Answers = node
			return nil
		})
	}

	if !sources.Attachments.IsZero() {
		group.Go(func() error {
			doc, err := loader.Load(gctx, sources.Attachments)
			if err != nil {
				return fmt.Errorf("session: load attachments: %w", err)
			}
			list, err := DecodeAttachments(doc.Raw())
			if err != nil {
				return err
			}
			bundle.Attachments = list
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return Bundle{}, err
	}
	return bundle, nil
}

// Open loads sources and returns a started session: resumed from the saved
// answers when present, built from defaults otherwise.
func Open(ctx context.Context, loader schema.Loader, sources Sources, options ...Option) (*Session, error) {
	bundle, err := Load(ctx, loader, sources)
	if err != nil {
		return nil, err
	}
	s := New(bundle.Form, bundle.Types, options...)
	if bundle.Answers != nil {
		if err := s.Resume(bundle.Answers, bundle.Attachments); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// DecodeAttachments reads an attachment list, either a bare JSON/YAML array
// or a paginated {"results": [...]} envelope.
func DecodeAttachments(raw []byte) ([]entries.Attachment, error) {
	data, err := schema.ToJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("session: attachments: %w", err)
	}
	var list []entries.Attachment
	if data[0] == '[' {
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("session: decode attachments: %w", err)
		}
		return list, nil
	}
	var envelope struct {
		Results []entries.Attachment `json:"results"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("session: decode attachments: %w", err)
	}
	return envelope.Results, nil
}
