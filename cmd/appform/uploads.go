package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-appform/pkg/entries"
)

const keyJSON = "json"

func newUploadsCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Manage the pending uploads store",
	}

	add := &cobra.Command{
		Use:   "add <field> <name>",
		Short: "Record a pending upload for a file field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			attachment, err := app.uploadsStore().Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return app.writeJSON(attachment)
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List pending uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pending, err := app.uploadsStore().List(cmd.Context())
			if err != nil {
				return err
			}
			if app.v.GetBool(keyJSON) {
				return app.writeJSON(pending)
			}
			w := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFIELD\tNAME")
			for _, item := range pending {
				fmt.Fprintf(w, "%s\t%s\t%s\n", item.ID, item.Field, item.Name)
			}
			return w.Flush()
		},
	}
	list.Flags().Bool(keyJSON, false, "print JSON instead of a table")

	rm := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove a pending upload",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.uploadsStore().Remove(cmd.Context(), entries.AttachmentID(args[0]))
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}
