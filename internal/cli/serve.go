package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/http"
)

const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch the vault and serve the HTTP API",
		Long: `Start the indexer on the vault, keep it in sync with filesystem changes,
and serve the HTTP API until interrupted.

Example:
  vaultindex serve --vault ~/notes --port 9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Port, "port", "", "HTTP port (overrides API_PORT)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg := opts.Config
	port := cfg.APIPort
	if opts.Port != "" {
		port = opts.Port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = contextutil.WithLogger(ctx, slog.Default())

	svc, err := newService(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid vault", err)
	}
	if err := svc.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to start indexer", err)
	}
	defer svc.Stop()

	server := &nethttp.Server{
		Addr:              ":" + port,
		Handler:           http.NewRouter(&http.Deps{Engine: svc}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr, "vault", svc.Vault().Root())
		errCh <- server.ListenAndServe()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on :%s. Press Ctrl-C to stop.\n", svc.Vault().Root(), port)

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return WrapExitError(ExitFailure, "API server failed", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("API server shutdown failed", "error", err)
		}
	}

	slog.Info("stopped gracefully")
	return nil
}
