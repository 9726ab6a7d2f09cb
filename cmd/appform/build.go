package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-appform/pkg/builder"
)

func newBuildCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the default entries tree and section templates of a form",
		Example: `  appform build --schema form.json --attributes attributes.json
  appform build --schema https://api.example.com/forms/12/ --attributes https://api.example.com/forms/attributes/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form, types, err := app.loadSchema(cmd.Context())
			if err != nil {
				return err
			}
			result, err := builder.New(builder.WithMaxDepth(app.v.GetInt(keyMaxDepth))).Build(form, types)
			if err != nil {
				return err
			}
			app.logger.Debug("entries built",
				zap.Int("sections", len(result.Tree.Sections)),
				zap.Int("templates", len(result.Templates)),
				zap.Strings("file_fields", result.Tree.FileFieldIDs),
			)
			return app.writeJSON(result)
		},
	}
}
