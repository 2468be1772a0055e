package indexer

import (
	"context"
	"errors"
	"os"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/markup"
	"vaultindex/internal/queue"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
)

// handleSyncBlock replaces every copy of a block with its edited text.
//
// When the edited text already exists as another block, the copies merge into
// it instead of creating a duplicate.
func (s *Service) handleSyncBlock(ctx context.Context, env *taskEnv, t queue.SyncBlock) error {
	logger := contextutil.LoggerFromContext(ctx)

	old, err := env.store.Blocks.Get(ctx, t.OldHash)
	if errors.Is(err, storage.ErrNotFound) {
		logger.WarnContext(ctx, "unknown block, nothing to sync", "old_hash", t.OldHash)
		return nil
	}
	if err != nil {
		return err
	}

	newHash := markup.Hash(t.NewContent)
	if newHash == t.OldHash {
		return nil
	}

	exists, err := env.store.Blocks.Exists(ctx, newHash)
	if err != nil {
		return err
	}
	if exists {
		logger.InfoContext(ctx, "edited block matches an existing block, merging", "new_hash", newHash)
	} else if err := env.store.Blocks.InsertIgnore(ctx, newHash, t.NewContent); err != nil {
		return err
	}

	files, err := env.store.Blocks.FilesForHash(ctx, t.OldHash)
	if err != nil {
		return err
	}

	var updated int
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.WarnContext(ctx, "failed to read file for block sync", "path", path, "error", err)
			continue
		}

		text, n := markup.ReplaceBlock(string(data), old.Content, t.NewContent)
		if n == 0 {
			// The index is behind the file; let a fresh upsert catch it up.
			logger.WarnContext(ctx, "block no longer present in file", "path", path)
			s.queue.Push(queue.Upsert{Path: path})
			continue
		}
		if err := vault.AtomicWrite(path, []byte(text)); err != nil {
			logger.ErrorContext(ctx, "failed to write synced block", "path", path, "error", err)
			continue
		}

		s.queue.Push(queue.Upsert{Path: path})
		if err := env.store.Blocks.RetargetInstance(ctx, path, t.OldHash, newHash); err != nil {
			logger.ErrorContext(ctx, "failed to retarget block instance", "path", path, "error", err)
		}
		s.notifier.FileModified(path)
		updated++
	}

	logger.InfoContext(ctx, "synced block",
		"old_hash", t.OldHash,
		"new_hash", newHash,
		"files", updated,
	)
	return nil
}

// handleGarbageCollect deletes every block no file references.
func (s *Service) handleGarbageCollect(ctx context.Context, env *taskEnv) error {
	n, err := env.store.Blocks.DeleteOrphans(ctx)
	if err != nil {
		return err
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "collected orphan blocks", "deleted", n)
	return nil
}
