package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/rpggio/spacer/internal/scheduler"
	"github.com/spf13/cobra"
)

func newCardCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Manage cards",
	}
	cmd.AddCommand(newCardAddCmd(opts), newCardShowCmd(opts))
	return cmd
}

func newCardAddCmd(opts *rootOptions) *cobra.Command {
	var (
		notePath string
		id       string
		kind     string
		answer   string
		tags     []string
	)
	cmd := &cobra.Command{
		Use:   "add <prompt>",
		Short: "Register a card under a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				n, err := a.notes.GetOrCreateByPath(ctx, a.tenant, notePath)
				if err != nil {
					return err
				}
				c, err := a.cards.Register(ctx, a.tenant, card.RegisterRequest{
					ID:     id,
					NoteID: n.ID,
					Kind:   card.Kind(kind),
					Prompt: args[0],
					Answer: answer,
					Tags:   tags,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "registered card %s in %s\n", c.ID, n.Path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&notePath, "note", "Inbox", "Note path, created when missing")
	cmd.Flags().StringVar(&id, "id", "", "Card ID (generated when empty)")
	cmd.Flags().StringVar(&kind, "kind", string(card.KindBasic), "Card kind: basic or occlusion")
	cmd.Flags().StringVar(&answer, "answer", "", "Answer text")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag (repeatable)")
	return cmd
}

func newCardShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <card-id>",
		Short: "Show a card, its schedule and review history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				c, err := a.cards.Get(ctx, a.tenant, args[0])
				if err != nil {
					return err
				}
				return printCard(cmd.OutOrStdout(), c)
			})
		},
	}
}

func newReviewCmd(opts *rootOptions) *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "review <card-id> <quality>",
		Short: "Record a review graded 0 (blackout) to 5 (perfect)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			quality, err := scheduler.ParseQuality(args[1])
			if err != nil {
				return fmt.Errorf("%w: %q", err, args[1])
			}
			reviewedAt, err := parseTimeFlag("at", at)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				c, err := a.cards.SubmitReview(ctx, a.tenant, card.SubmitRequest{
					CardID:     args[0],
					Quality:    quality,
					ReviewedAt: reviewedAt,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, next review %s\n", c.ID, c.Phase(), formatOptionalTime(c.State.NextReviewDate))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Review time in RFC 3339 (defaults to now)")
	return cmd
}

func newStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <card-id>",
		Short: "Stop scheduling a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				c, err := a.cards.StopScheduling(ctx, a.tenant, card.StopRequest{CardID: args[0]})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stopped %s\n", c.ID)
				return nil
			})
		},
	}
}

// newSelectCmd builds the due, scheduled and new listings, which share filters.
func newSelectCmd(opts *rootOptions, which, short string) *cobra.Command {
	var (
		notePath string
		tags     []string
		query    string
		limit    int
		now      string
	)
	cmd := &cobra.Command{
		Use:   which,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseTimeFlag("now", now)
			if err != nil {
				return err
			}
			if at.IsZero() {
				at = time.Now()
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				listOpts := card.ListOptions{Tags: tags, Query: query, Limit: limit}
				if notePath != "" {
					n, err := a.notes.GetByPath(ctx, a.tenant, notePath)
					if err != nil {
						return err
					}
					listOpts.NoteID = n.ID
				}

				var refs []card.CardRef
				switch which {
				case "due":
					refs, err = a.cards.Due(ctx, a.tenant, at, listOpts)
				case "scheduled":
					refs, err = a.cards.Scheduled(ctx, a.tenant, at, listOpts)
				default:
					refs, err = a.cards.New(ctx, a.tenant, listOpts)
				}
				if err != nil {
					return err
				}
				return printCardRefs(cmd.OutOrStdout(), refs)
			})
		},
	}
	cmd.Flags().StringVar(&notePath, "note", "", "Only cards in this note")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Only cards carrying every given tag")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Full-text match on prompt and answer")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum cards to list (0 for all)")
	if which != "new" {
		cmd.Flags().StringVar(&now, "now", "", "Evaluate as of this RFC 3339 time")
	}
	return cmd
}

func newForecastCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Count cards coming due on each of the next days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				forecast, err := a.cards.Forecast(ctx, a.tenant, time.Now(), days)
				if err != nil {
					return err
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "DATE\tDUE")
				total := 0
				for _, day := range forecast {
					fmt.Fprintf(tw, "%s\t%d\n", day.Date, day.Due)
					total += day.Due
				}
				fmt.Fprintf(tw, "total\t%s\n", strconv.Itoa(total))
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "Days to forecast (1-365)")
	return cmd
}
