package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rpggio/spacer/internal/domain/card"
	"github.com/spf13/cobra"
)

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd.Context(), opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printCardRefs(w io.Writer, refs []card.CardRef) error {
	if len(refs) == 0 {
		_, err := fmt.Fprintln(w, "no cards")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPHASE\tNEXT REVIEW\tINTERVAL\tEF\tPROMPT")
	for _, ref := range refs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
			ref.ID, ref.Phase, formatOptionalTime(ref.NextReviewDate), ref.Interval, ref.EF, truncate(ref.Prompt, 48))
	}
	return tw.Flush()
}

func printCard(w io.Writer, c *card.Card) error {
	fmt.Fprintf(w, "id:       %s\n", c.ID)
	fmt.Fprintf(w, "note:     %s\n", c.NoteID)
	fmt.Fprintf(w, "kind:     %s\n", c.Kind)
	fmt.Fprintf(w, "prompt:   %s\n", c.Prompt)
	if c.Answer != "" {
		fmt.Fprintf(w, "answer:   %s\n", c.Answer)
	}
	if len(c.Tags) > 0 {
		fmt.Fprintf(w, "tags:     %s\n", strings.Join(c.Tags, ", "))
	}
	fmt.Fprintf(w, "phase:    %s\n", c.Phase())
	if c.State == nil {
		return nil
	}

	st := c.State
	fmt.Fprintf(w, "next:     %s\n", formatOptionalTime(st.NextReviewDate))
	fmt.Fprintf(w, "interval: %d days\n", st.Interval)
	fmt.Fprintf(w, "reps:     %d\n", st.Repetition)
	fmt.Fprintf(w, "ef:       %.2f\n", st.EF)
	if st.LearningStep != nil {
		fmt.Fprintf(w, "step:     %d\n", *st.LearningStep)
	}
	if len(st.RatingHistory) == 0 {
		return nil
	}
	fmt.Fprintln(w, "history:")
	tw := newTable(w)
	for _, entry := range st.RatingHistory {
		fmt.Fprintf(tw, "  %s\t%d (%s)\tef %.2f\n", entry.Timestamp.Format(time.RFC3339), entry.Rating, entry.Rating, entry.EF)
	}
	return tw.Flush()
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func parseTimeFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be RFC 3339: %w", name, err)
	}
	return t, nil
}
