package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-appform/pkg/fill"
	"github.com/goliatone/go-appform/pkg/session"
	"github.com/goliatone/go-appform/pkg/submission"
)

func newFillCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Answer a form interactively and print the submission payload",
		Long: `Fill walks the form section by section in the terminal. Saved answers given
with --answers are used as defaults. Repeatable sections offer to add further
instances. Upload fields are managed with the uploads command; pending uploads
for the form's file fields are attached to the resulting payload.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sources := session.Sources{}
			var err error
			if sources.Form, err = app.source(keySchema, true); err != nil {
				return err
			}
			if sources.Attributes, err = app.source(keyAttributes, true); err != nil {
				return err
			}
			if sources.Answers, err = app.source(keyAnswers, false); err != nil {
				return err
			}
			if sources.Attachments, err = app.source(keyAttachments, false); err != nil {
				return err
			}

			var preparerOptions []submission.Option
			if app.v.GetBool(keySanitize) {
				preparerOptions = append(preparerOptions, submission.WithStrictSanitizer())
			}
			s, err := session.Open(ctx, app.loader(), sources,
				session.WithLogger(app.logger),
				session.WithMaxDepth(app.v.GetInt(keyMaxDepth)),
				session.WithPreparer(submission.New(preparerOptions...)),
			)
			if err != nil {
				return err
			}

			filler := fill.New(fill.WithLogger(app.logger))
			if err := filler.Fill(ctx, s); err != nil {
				return err
			}

			var targets json.RawMessage
			if raw := app.v.GetString(keyTargets); raw != "" {
				if !json.Valid([]byte(raw)) {
					return fmt.Errorf("--%s must be valid JSON", keyTargets)
				}
				targets = json.RawMessage(raw)
			}
			payload, err := s.Submit(ctx, app.uploadsStore(), app.v.GetInt(keyFormID), targets)
			if err != nil {
				return err
			}
			return app.writeJSON(payload)
		},
	}
	cmd.Flags().String(keyAnswers, "", "saved answers used as defaults (path or URL)")
	cmd.Flags().String(keyAttachments, "", "uploaded attachments list (path or URL)")
	cmd.Flags().Int(keyFormID, 0, "form identifier written to the payload")
	cmd.Flags().String(keyTargets, "", "targets JSON passed through unchanged")
	cmd.Flags().Bool(keySanitize, false, "strip markup from free text values")
	return cmd
}
