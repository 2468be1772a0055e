package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/indexer"
)

// NewRebuildCommand creates the rebuild command.
func NewRebuildCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Discard the index and re-index the whole vault",
		Long: `Delete the storage directory with the SQLite store and the search index,
then index every note from scratch and wait until the work is done.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := contextutil.WithLogger(cmd.Context(), slog.Default())
			return runRebuild(ctx, cmd, opts)
		},
	}
}

func runRebuild(ctx context.Context, cmd *cobra.Command, opts *RootOptions) error {
	svc, err := newService(opts.Config, indexer.WithoutWatcher())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid vault", err)
	}

	start := time.Now()
	if err := svc.RebuildIndex(ctx); err != nil {
		return WrapExitError(ExitFailure, "rebuild failed", err)
	}
	defer svc.Stop()

	if err := svc.WaitForIdle(ctx); err != nil {
		return WrapExitError(ExitFailure, "indexing did not finish", err)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to compute stats", err)
	}

	return printResult(cmd.OutOrStdout(), opts.Format, stats, func(w io.Writer) {
		fmt.Fprintf(w, "Rebuilt index for %s in %s\n", svc.Vault().Root(), time.Since(start).Round(time.Millisecond))
		printStats(w, stats)
	})
}
