package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write every note and card to a JSON archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				doc, err := a.archive.Export(ctx, a.tenant, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d notes and %d cards to %s\n", len(doc.Notes), len(doc.Cards), args[0])
				return nil
			})
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore notes and cards from a JSON archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res, err := a.archive.Import(ctx, a.tenant, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d notes, imported %d cards\n", res.NotesCreated, res.CardsImported)
				return nil
			})
		},
	}
}
