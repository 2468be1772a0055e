package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/markup"
	"vaultindex/internal/queue"
	"vaultindex/internal/vault"
)

// handleRenameFile renames a note on disk, moves its index entries, and rewrites
// every link to the old title across the vault.
func (s *Service) handleRenameFile(ctx context.Context, env *taskEnv, t queue.RenameFile) error {
	logger := contextutil.LoggerFromContext(ctx)

	src, err := s.notePath("src_path", t.Src)
	if err != nil {
		return err
	}
	dest, err := s.notePath("dest_path", t.Dest)
	if err != nil {
		return err
	}
	if src == dest {
		return nil
	}

	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ValidationError{Field: "src_path", Message: "file does not exist"}
		}
		return WrapError(err, "failed to stat source")
	}
	if _, err := os.Stat(dest); err == nil {
		return &ValidationError{Field: "dest_path", Message: "file already exists"}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return WrapError(err, "failed to stat destination")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return WrapError(err, "failed to create destination directory")
	}
	if err := vault.MoveFile(src, dest); err != nil {
		return WrapError(err, "failed to rename file")
	}
	logger.InfoContext(ctx, "renamed file", "src", src, "dest", dest)

	// The file is already renamed; keep going so links still get rewritten.
	if err := s.handleMove(ctx, env, queue.Move{Src: src, Dest: dest}); err != nil {
		logger.ErrorContext(ctx, "failed to move index entries", "error", err)
	}

	oldTitle, newTitle := vault.Stem(src), vault.Stem(dest)
	if oldTitle != newTitle {
		s.rewriteLinks(ctx, oldTitle, newTitle)
	}

	s.queue.Push(queue.Upsert{Path: dest})
	return nil
}

// rewriteLinks points every link to oldTitle at newTitle, rewriting each
// affected file atomically and queueing an upsert for it.
func (s *Service) rewriteLinks(ctx context.Context, oldTitle, newTitle string) {
	logger := contextutil.LoggerFromContext(ctx)

	files, err := s.vault.Scan(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to scan vault for link rewrite", "error", err)
		return
	}

	var rewritten, links int
	for _, f := range files {
		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			logger.WarnContext(ctx, "failed to read file for link rewrite", "path", f.AbsPath, "error", err)
			continue
		}

		text, n := markup.RewriteLinks(string(data), oldTitle, newTitle)
		if n == 0 {
			continue
		}
		if err := vault.AtomicWrite(f.AbsPath, []byte(text)); err != nil {
			logger.ErrorContext(ctx, "failed to write rewritten links", "path", f.AbsPath, "error", err)
			continue
		}

		rewritten++
		links += n
		s.queue.Push(queue.Upsert{Path: f.AbsPath})
	}

	logger.InfoContext(ctx, "rewrote links",
		"old_title", oldTitle,
		"new_title", newTitle,
		"files", rewritten,
		"links", links,
	)
}
