package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"vaultindex/internal/indexer"
	"vaultindex/internal/search"
)

// NewSearchCommand creates the search command.
func NewSearchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over note contents",
		Long: `Index the vault, then print the notes matching every word of the query.

Example:
  vaultindex search "quarterly review"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return withIdleEngine(cmd.Context(), opts.Config, func(ctx context.Context, svc *indexer.Service) error {
				hits := svc.Search(ctx, query)
				return printResult(cmd.OutOrStdout(), opts.Format, hits, func(w io.Writer) {
					if len(hits) == 0 {
						fmt.Fprintln(w, "No matches.")
						return
					}
					for _, h := range hits {
						printHit(w, h)
					}
				})
			})
		},
	}
}

func printHit(w io.Writer, h search.Hit) {
	fmt.Fprintf(w, "%s  (%s)\n", h.Title, h.Path)
	if h.Highlight != "" {
		fmt.Fprintf(w, "    %s\n", strings.ReplaceAll(h.Highlight, "\n", " "))
	}
}

// NewBacklinksCommand creates the backlinks command.
func NewBacklinksCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backlinks <page>",
		Short: "List notes linking to a page",
		Long: `Index the vault, then print every note containing a link to the page.
The page may be given as a title ("Note A") or a note path ("pages/Note A.md").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIdleEngine(cmd.Context(), opts.Config, func(ctx context.Context, svc *indexer.Service) error {
				paths, err := svc.Backlinks(ctx, args[0])
				if err != nil {
					return WrapExitError(ExitFailure, "failed to query backlinks", err)
				}
				if paths == nil {
					paths = []string{}
				}
				return printResult(cmd.OutOrStdout(), opts.Format, paths, func(w io.Writer) {
					for _, p := range paths {
						fmt.Fprintln(w, p)
					}
				})
			})
		},
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withIdleEngine(cmd.Context(), opts.Config, func(ctx context.Context, svc *indexer.Service) error {
				stats, err := svc.Stats(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to compute stats", err)
				}
				return printResult(cmd.OutOrStdout(), opts.Format, stats, func(w io.Writer) {
					printStats(w, stats)
				})
			})
		},
	}
}

func printStats(w io.Writer, s *indexer.IndexStats) {
	fmt.Fprintf(w, "files:            %d\n", s.Files)
	fmt.Fprintf(w, "links:            %d\n", s.Links)
	fmt.Fprintf(w, "blocks:           %d\n", s.Blocks)
	fmt.Fprintf(w, "block instances:  %d\n", s.BlockInstances)
	fmt.Fprintf(w, "orphan blocks:    %d\n", s.OrphanBlocks)
	fmt.Fprintf(w, "search documents: %d\n", s.SearchDocuments)
	fmt.Fprintf(w, "block search:     %s\n", blockSearchMode(s))
}

func blockSearchMode(s *indexer.IndexStats) string {
	if s.FullTextBlocks && s.FullTextModule != "" {
		return s.FullTextModule
	}
	return "substring"
}
