// Package cli implements the vaultindex command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"vaultindex/internal/config"
)

// RootOptions holds global flags and the configuration loaded for every command.
type RootOptions struct {
	Vault   string
	Verbose bool
	Format  string // "json" | "text"

	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the vaultindex CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "vaultindex",
		Short: "Index and sync a vault of Markdown notes",
		Long: `vaultindex keeps a SQLite store and a full-text index in step with a
directory of Markdown notes: wiki-links, shared {{content blocks}}, renames
with link rewriting, and block edits propagated to every copy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			// Flags take precedence over the environment and .env.
			if opts.Vault != "" {
				if err := os.Setenv("VAULT_PATH", opts.Vault); err != nil {
					return WrapExitError(ExitCommandError, "failed to apply --vault", err)
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			if opts.Verbose {
				cfg.LogLevel = slog.LevelDebug
			}
			opts.Config = cfg
			configureLogging(cmd.ErrOrStderr(), cfg)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Vault, "vault", "", "vault root (overrides VAULT_PATH)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRebuildCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewBacklinksCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
