package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// FileStore defines file record operations.
type FileStore interface {
	// GetByPath returns ErrNotFound when no record exists for path.
	GetByPath(ctx context.Context, path string) (*FileRecord, error)
	// Upsert inserts or updates the record for path and returns its id.
	Upsert(ctx context.Context, path string, modified time.Time) (int64, error)
	DeleteByPath(ctx context.Context, path string) (int64, error)
	UpdatePath(ctx context.Context, src, dest string) (int64, error)
	List(ctx context.Context) ([]FileRecord, error)
	Count(ctx context.Context) (int, error)
}

// LinkStore defines link graph operations.
type LinkStore interface {
	// ReplaceForSource drops every link of sourceID and inserts targets, one row
	// per occurrence.
	ReplaceForSource(ctx context.Context, sourceID int64, targets []string) error
	DeleteBySource(ctx context.Context, sourceID int64) error
	RetargetTitle(ctx context.Context, oldTitle, newTitle string) (int64, error)
	ListBySource(ctx context.Context, sourceID int64) ([]string, error)
	Backlinks(ctx context.Context, title string) ([]string, error)
	Count(ctx context.Context) (int, error)
}

// BlockStore defines block and block instance operations.
type BlockStore interface {
	// InsertIgnore keeps the existing row when hash is already present.
	InsertIgnore(ctx context.Context, hash, content string) error
	Get(ctx context.Context, hash string) (*Block, error)
	Exists(ctx context.Context, hash string) (bool, error)
	InsertInstance(ctx context.Context, hash, path string) error
	DeleteInstancesByFile(ctx context.Context, path string) error
	ListInstancesByFile(ctx context.Context, path string) ([]string, error)
	MoveInstances(ctx context.Context, src, dest string) error
	RetargetInstance(ctx context.Context, path, oldHash, newHash string) error
	FilesForHash(ctx context.Context, hash string) ([]string, error)
	FanOut(ctx context.Context, hash string) (int, error)
	DeleteOrphans(ctx context.Context) (int64, error)
	Search(ctx context.Context, prefix string, limit int, caps Capabilities) ([]Block, error)
	Count(ctx context.Context) (int, error)
	CountInstances(ctx context.Context) (int, error)
	CountOrphans(ctx context.Context) (int, error)
}

// Store groups the repositories bound to one connection or transaction.
type Store struct {
	Files  FileStore
	Links  LinkStore
	Blocks BlockStore
}

// NewStore binds every repository to db.
func NewStore(db DBTX) *Store {
	return &Store{
		Files:  NewFileRepo(db),
		Links:  NewLinkRepo(db),
		Blocks: NewBlockRepo(db),
	}
}

// Counts reads every table size in one call.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	var err error
	if c.Files, err = s.Files.Count(ctx); err != nil {
		return c, err
	}
	if c.Links, err = s.Links.Count(ctx); err != nil {
		return c, err
	}
	if c.Blocks, err = s.Blocks.Count(ctx); err != nil {
		return c, err
	}
	if c.BlockInstances, err = s.Blocks.CountInstances(ctx); err != nil {
		return c, err
	}
	if c.OrphanBlocks, err = s.Blocks.CountOrphans(ctx); err != nil {
		return c, err
	}
	return c, nil
}

func count(ctx context.Context, db DBTX, query string, args ...any) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike quotes LIKE wildcards; queries pair it with ESCAPE '\'.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
