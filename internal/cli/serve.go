package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/spacer/internal/config"
	"github.com/rpggio/spacer/internal/mcp"
	"github.com/rpggio/spacer/internal/transport"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdio, or MCP and the REST API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.transport, "transport", "", "stdio or http (overrides SPACER_TRANSPORT)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions) error {
	// Stdout carries JSON-RPC in stdio mode, so logs go to stderr.
	a, err := openApp(ctx, opts, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(mcp.Config{
		Services:      a.services(),
		Resolver:      a.apiKeys,
		AuthEnabled:   a.cfg.Auth.Enabled,
		TransportMode: a.cfg.Transport.Mode,
		Tenant:        a.tenant,
		NewCardLimit:  a.cfg.Review.NewCardLimit,
		Version:       VersionString(),
		Logger:        a.logger,
	})

	if a.cfg.Transport.Mode == config.TransportStdio {
		a.logger.Info("starting stdio transport", "auth", "disabled", "db", a.cfg.DB.Path)
		if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	}
	return runHTTP(ctx, a, server)
}

func runHTTP(ctx context.Context, a *app, server *sdkmcp.Server) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: 30 * time.Minute,
		},
	)

	auth := transport.StaticTenantMiddleware(a.tenant)
	if a.cfg.Auth.Enabled {
		auth = transport.AuthMiddleware(a.apiKeys)
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	httpServer := &http.Server{
		Addr: addr,
		Handler: transport.NewServer(transport.Options{
			Services:     a.services(),
			Auth:         auth,
			MCP:          mcpHandler,
			NewCardLimit: a.cfg.Review.NewCardLimit,
			Version:      VersionString(),
			Logger:       a.logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("server listening", "addr", addr, "auth", a.cfg.Auth.Enabled, "db", a.cfg.DB.Path)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.logger.Info("shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
