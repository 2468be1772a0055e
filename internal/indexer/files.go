package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
	"unicode/utf8"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/markup"
	"vaultindex/internal/queue"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
)

// notePath resolves p against the vault and checks it names a Markdown file
// outside the storage directory.
func (s *Service) notePath(field, p string) (string, error) {
	abs := s.vault.Resolve(p)
	if !s.vault.Contains(abs) || s.vault.IsReserved(abs) {
		return "", &ValidationError{Field: field, Message: fmt.Sprintf("%s: %s", vault.ErrOutsideVault, p)}
	}
	if !vault.IsMarkdown(abs) {
		return "", &ValidationError{Field: field, Message: fmt.Sprintf("%s: %s", vault.ErrNotMarkdown, p)}
	}
	return abs, nil
}

// readNote returns the file's text and modification time. Content that is not
// valid UTF-8 is treated as unreadable and returned empty.
func readNote(ctx context.Context, path string) (string, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", time.Time{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, err
	}
	if !utf8.Valid(data) {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "file is not valid UTF-8, indexing as empty", "path", path)
		return "", info.ModTime(), nil
	}
	return string(data), info.ModTime(), nil
}

// handleUpsert re-derives everything the stores hold about one file.
func (s *Service) handleUpsert(ctx context.Context, env *taskEnv, t queue.Upsert) error {
	logger := contextutil.LoggerFromContext(ctx)

	path, err := s.notePath("path", t.Path)
	if err != nil {
		return err
	}

	content, modified, err := readNote(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WarnContext(ctx, "file vanished before indexing, skipping", "path", path)
		return nil
	}
	if err != nil {
		return WrapError(err, "failed to read file")
	}

	id, err := env.store.Files.Upsert(ctx, path, modified)
	if err != nil {
		return err
	}

	links := markup.Links(content)
	if err := env.store.Links.ReplaceForSource(ctx, id, links); err != nil {
		return err
	}

	if err := env.store.Blocks.DeleteInstancesByFile(ctx, path); err != nil {
		return err
	}
	blocks := markup.Blocks(content)
	for _, body := range blocks {
		hash := markup.Hash(body)
		if err := env.store.Blocks.InsertIgnore(ctx, hash, body); err != nil {
			return err
		}
		if err := env.store.Blocks.InsertInstance(ctx, hash, path); err != nil {
			return err
		}
	}

	if err := env.index.Upsert(path, []byte(content)); err != nil {
		return WrapError(err, "failed to update search document")
	}

	logger.DebugContext(ctx, "indexed file", "path", path, "links", len(links), "blocks", len(blocks))
	return nil
}

// handleDelete drops a file from both stores. Its relational writes are applied
// one by one, not in a transaction.
func (s *Service) handleDelete(ctx context.Context, env *taskEnv, t queue.Delete) error {
	logger := contextutil.LoggerFromContext(ctx)

	path, err := s.notePath("path", t.Path)
	if err != nil {
		return err
	}

	rec, err := env.store.Files.GetByPath(ctx, path)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		logger.DebugContext(ctx, "file was not indexed", "path", path)
	case err != nil:
		return err
	default:
		if err := env.store.Links.DeleteBySource(ctx, rec.ID); err != nil {
			return err
		}
	}

	if err := env.store.Blocks.DeleteInstancesByFile(ctx, path); err != nil {
		return err
	}
	if _, err := env.store.Files.DeleteByPath(ctx, path); err != nil {
		return err
	}
	if err := env.index.Delete(path); err != nil {
		return WrapError(err, "failed to delete search document")
	}

	logger.DebugContext(ctx, "removed file", "path", path)
	return nil
}

// handleMove records a rename that already happened on disk.
//
// Links are retargeted by file stem, not by file identity: when two files in
// different directories share a stem, links meant for the other one move too.
func (s *Service) handleMove(ctx context.Context, env *taskEnv, t queue.Move) error {
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

	var moved int64
	err = storage.InTx(ctx, env.conn, func(st *storage.Store) error {
		// A record already at dest is stale: the file there was just replaced.
		if _, err := st.Files.DeleteByPath(ctx, dest); err != nil {
			return err
		}
		if err := st.Blocks.DeleteInstancesByFile(ctx, dest); err != nil {
			return err
		}

		n, err := st.Files.UpdatePath(ctx, src, dest)
		if err != nil {
			return err
		}
		moved = n

		oldTitle, newTitle := vault.Stem(src), vault.Stem(dest)
		if oldTitle != newTitle {
			if _, err := st.Links.RetargetTitle(ctx, oldTitle, newTitle); err != nil {
				return err
			}
		}
		return st.Blocks.MoveInstances(ctx, src, dest)
	})
	if err != nil {
		return WrapError(err, "move rolled back")
	}

	w := env.index.Begin()
	w.Delete(src)
	content, _, err := readNote(ctx, dest)
	if err != nil {
		w.Abort()
		return WrapError(err, "failed to read moved file")
	}
	if err := w.Upsert(dest, []byte(content)); err != nil {
		w.Abort()
		return err
	}
	if err := w.Commit(); err != nil {
		return err
	}

	if moved == 0 {
		// The source was never indexed, so nothing carried over.
		logger.DebugContext(ctx, "moved file was not indexed, queueing upsert", "path", dest)
		s.queue.Push(queue.Upsert{Path: dest})
	}

	logger.DebugContext(ctx, "moved file", "src", src, "dest", dest)
	return nil
}
