package cli

import (
	"context"
	"io"
	"log/slog"

	"vaultindex/internal/config"
	"vaultindex/internal/contextutil"
	"vaultindex/internal/indexer"
	"vaultindex/internal/vault"
)

// configureLogging installs the default slog logger for the configured level
// and format.
func configureLogging(w io.Writer, cfg *config.Config) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)
}

// newService builds an engine for the configured vault. Block-sync rewrites
// are reported through the log.
func newService(cfg *config.Config, extra ...indexer.Option) (*indexer.Service, error) {
	v, err := vault.New(cfg.VaultPath, cfg.StorageDir)
	if err != nil {
		return nil, err
	}

	notifier := indexer.NotifierFunc(func(path string) {
		slog.Info("file rewritten by block sync", "path", path)
	})
	opts := []indexer.Option{
		indexer.WithLogger(slog.Default()),
		indexer.WithNotifier(notifier),
		indexer.WithPollInterval(cfg.PollInterval),
		indexer.WithGCIdleInterval(cfg.GCIdleInterval),
		indexer.WithSearchLimit(cfg.SearchLimit),
		indexer.WithRenameSettle(cfg.RenameSettle),
	}
	return indexer.NewService(v, append(opts, extra...)...), nil
}

// withIdleEngine starts a non-watching engine, waits for the initial scan to be
// indexed, runs fn, and stops the engine.
func withIdleEngine(ctx context.Context, cfg *config.Config, fn func(context.Context, *indexer.Service) error) error {
	ctx = contextutil.WithLogger(ctx, slog.Default())

	svc, err := newService(cfg, indexer.WithoutWatcher())
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid vault", err)
	}
	if err := svc.Start(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to start indexer", err)
	}
	defer svc.Stop()

	if err := svc.WaitForIdle(ctx); err != nil {
		return WrapExitError(ExitFailure, "indexing did not finish", err)
	}
	return fn(ctx, svc)
}
