package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/spacer/internal/domain/note"
	"github.com/spf13/cobra"
)

func newNoteCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes",
	}
	cmd.AddCommand(newNoteAddCmd(opts), newNoteListCmd(opts))
	return cmd
}

func newNoteAddCmd(opts *rootOptions) *cobra.Command {
	var (
		title string
		tags  []string
	)
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Create a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := a.notes.Create(ctx, a.tenant, note.CreateRequest{Path: args[0], Title: title, Tags: tags})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created note %s (%s)\n", n.Path, n.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Display title (defaults to the file name)")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag (repeatable)")
	return cmd
}

func newNoteListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes with card counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				notes, err := a.notes.List(ctx, a.tenant, time.Now())
				if err != nil {
					return err
				}
				if len(notes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no notes")
					return nil
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "PATH\tCARDS\tNEW\tDUE\tTAGS")
				for _, n := range notes {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", n.Path, n.CardCount, n.NewCount, n.DueCount, strings.Join(n.Tags, ","))
				}
				return tw.Flush()
			})
		},
	}
}
