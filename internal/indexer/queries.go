package indexer

import (
	"context"

	"vaultindex/internal/contextutil"
	"vaultindex/internal/search"
	"vaultindex/internal/storage"
	"vaultindex/internal/vault"
)

// Search runs query against note contents. It returns an empty list when the
// engine is stopped or the query fails.
func (s *Service) Search(ctx context.Context, query string) []search.Hit {
	hits := []search.Hit{}
	err := s.withSession(func(sess *session) error {
		found, err := sess.index.Search(query, s.searchLimit)
		if err != nil {
			return err
		}
		hits = found
		return nil
	})
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "search unavailable", "query", query, "error", err)
	}
	return hits
}

// Backlinks lists the files linking to page. A page given as a note path is
// reduced to its title first.
func (s *Service) Backlinks(ctx context.Context, page string) ([]string, error) {
	title := page
	if vault.IsMarkdown(page) {
		title = vault.Stem(page)
	}

	var paths []string
	err := s.withSession(func(sess *session) error {
		var err error
		paths, err = storage.NewLinkRepo(sess.db).Backlinks(ctx, title)
		return err
	})
	return paths, err
}

// BlockFanOut returns how many distinct files reference the block.
func (s *Service) BlockFanOut(ctx context.Context, hash string) (int, error) {
	var n int
	err := s.withSession(func(sess *session) error {
		var err error
		n, err = storage.NewBlockRepo(sess.db).FanOut(ctx, hash)
		return err
	})
	return n, err
}

// SearchBlocks finds blocks by content prefix, through the full-text shadow when
// one is available.
func (s *Service) SearchBlocks(ctx context.Context, prefix string, limit int) ([]storage.Block, error) {
	if limit <= 0 {
		limit = s.searchLimit
	}
	var blocks []storage.Block
	err := s.withSession(func(sess *session) error {
		var err error
		blocks, err = storage.NewBlockRepo(sess.db).Search(ctx, prefix, limit, sess.caps)
		return err
	})
	return blocks, err
}
