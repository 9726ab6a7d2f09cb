package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-appform/pkg/answers"
	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/session"
)

const keyFromSubmission = "from-submission"

func newReshapeCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reshape",
		Short: "Reshape saved answers into the entries tree of a form",
		Long: `Reshape reads the answers stored for an application and rebuilds the
entries tree the form expects, restoring repeatable sections from their
bracket indexed keys and attaching uploaded files to their fields.

With --from-submission the answers document is a previously prepared payload
(or an entries tree) and is encoded back into the answer layout first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			form, types, err := app.loadSchema(ctx)
			if err != nil {
				return err
			}
			saved, err := app.loadAnswers(ctx)
			if err != nil {
				return err
			}
			attachments, err := app.loadAttachments(ctx)
			if err != nil {
				return err
			}
			reshaper := answers.NewReshaper(answers.WithMaxDepth(app.v.GetInt(keyMaxDepth)))
			tree, err := reshaper.Reshape(form, types, saved, attachments)
			if err != nil {
				return err
			}
			app.logger.Debug("answers reshaped",
				zap.Int("sections", len(tree.Sections)),
				zap.Int("attachments", len(attachments)),
			)
			return app.writeJSON(map[string]any{"entries": tree})
		},
	}
	cmd.Flags().String(keyAnswers, "", "saved answers document (path or URL)")
	cmd.Flags().String(keyAttachments, "", "uploaded attachments list (path or URL)")
	cmd.Flags().Bool(keyFromSubmission, false, "treat --answers as a submission payload or entries tree")
	return cmd
}

func (c *cli) loadAnswers(ctx context.Context) (*answers.Node, error) {
	src, err := c.source(keyAnswers, false)
	if err != nil || src.IsZero() {
		return answers.NewNode(), err
	}
	doc, err := c.loader().Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if c.v.GetBool(keyFromSubmission) {
		tree, err := decodeTree(doc.Raw())
		if err != nil {
			return nil, err
		}
		return answers.Encode(tree.Sections), nil
	}
	node, err := answers.Decode(doc.Raw())
	if err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	return node, nil
}

func (c *cli) loadAttachments(ctx context.Context) ([]entries.Attachment, error) {
	src, err := c.source(keyAttachments, false)
	if err != nil || src.IsZero() {
		return nil, err
	}
	doc, err := c.loader().Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return session.DecodeAttachments(doc.Raw())
}
