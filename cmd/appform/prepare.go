package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-appform/pkg/entries"
	"github.com/goliatone/go-appform/pkg/schema"
	"github.com/goliatone/go-appform/pkg/submission"
)

const (
	keyEntries = "entries"
	keyFormID  = "form-id"
	keyTargets = "targets"
)

func newPrepareCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Prepare the submission payload of an edited entries tree",
		Long: `Prepare combines an entries tree (the output of build or reshape, or a bare
tree) with the pending uploads store and emits the payload sent on save and
submit. Only uploads that belong to file fields of the tree are attached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			src, err := app.source(keyEntries, true)
			if err != nil {
				return err
			}
			doc, err := app.loader().Load(ctx, src)
			if err != nil {
				return err
			}
			tree, err := decodeTree(doc.Raw())
			if err != nil {
				return err
			}

			var targets json.RawMessage
			if raw := app.v.GetString(keyTargets); raw != "" {
				if !json.Valid([]byte(raw)) {
					return fmt.Errorf("--%s must be valid JSON", keyTargets)
				}
				targets = json.RawMessage(raw)
			}

			pending, err := app.uploadsStore().List(ctx)
			if err != nil {
				return err
			}

			var options []submission.Option
			if app.v.GetBool(keySanitize) {
				options = append(options, submission.WithStrictSanitizer())
			}
			payload := submission.New(options...).Prepare(tree, pending, app.v.GetInt(keyFormID), targets)
			app.logger.Debug("payload prepared",
				zap.Int("form", payload.Form),
				zap.Int("pending", len(pending)),
				zap.Int("attachments", len(payload.Attachments)),
			)
			return app.writeJSON(payload)
		},
	}
	cmd.Flags().String(keyEntries, "", "entries tree document (path or URL)")
	cmd.Flags().Int(keyFormID, 0, "form identifier written to the payload")
	cmd.Flags().String(keyTargets, "", "targets JSON passed through unchanged")
	cmd.Flags().Bool(keySanitize, false, "strip markup from free text values")
	return cmd
}

// decodeTree accepts a bare tree, a {"entries": tree} wrapper as printed by
// build and reshape, or a submission payload.
func decodeTree(raw []byte) (*entries.Tree, error) {
	data, err := schema.ToJSON(raw)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, errors.New("entries document must be a JSON object")
	}

	var wrapper struct {
		Entries json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	if len(wrapper.Entries) > 0 && !bytes.Equal(wrapper.Entries, []byte("null")) {
		data = wrapper.Entries
	}

	tree := entries.NewTree()
	if err := json.Unmarshal(data, tree); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return tree, nil
}
