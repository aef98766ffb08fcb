package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newAPIKeyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for the HTTP transport",
	}
	cmd.AddCommand(newAPIKeyCreateCmd(opts))
	return cmd
}

func newAPIKeyCreateCmd(opts *rootOptions) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <tenant>",
		Short: "Create an API key for a tenant and print it once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				token := newToken()
				if err := a.apiKeys.Create(ctx, token, args[0], description); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "What the key is for")
	return cmd
}

// newToken returns a random bearer token. Only its hash is stored.
func newToken() string {
	return "sk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
