package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// BlockRepo provides methods for block and block instance operations.
// It implements the BlockStore interface.
type BlockRepo struct {
	db DBTX
}

// NewBlockRepo creates a new BlockRepo.
func NewBlockRepo(db DBTX) *BlockRepo {
	return &BlockRepo{db: db}
}

// InsertIgnore stores a block unless its hash already exists, in which case the
// first writer's content is kept.
func (r *BlockRepo) InsertIgnore(ctx context.Context, hash, content string) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO blocks (hash, content) VALUES (?, ?)", hash, content,
	); err != nil {
		return fmt.Errorf("failed to insert block: %w", err)
	}
	return nil
}

// Get gets a block by hash.
// Returns nil and ErrNotFound if not found.
func (r *BlockRepo) Get(ctx context.Context, hash string) (*Block, error) {
	var b Block
	err := r.db.QueryRowContext(ctx,
		"SELECT hash, content FROM blocks WHERE hash = ?", hash,
	).Scan(&b.Hash, &b.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query block: %w", err)
	}
	return &b, nil
}

// Exists reports whether a block with hash is stored.
func (r *BlockRepo) Exists(ctx context.Context, hash string) (bool, error) {
	n, err := count(ctx, r.db, "SELECT COUNT(*) FROM blocks WHERE hash = ?", hash)
	return n > 0, err
}

// InsertInstance records that path references hash. Duplicates are ignored.
func (r *BlockRepo) InsertInstance(ctx context.Context, hash, path string) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO block_instances (block_hash, file_path) VALUES (?, ?)", hash, path,
	); err != nil {
		return fmt.Errorf("failed to insert block instance: %w", err)
	}
	return nil
}

// DeleteInstancesByFile removes every block reference held by path.
func (r *BlockRepo) DeleteInstancesByFile(ctx context.Context, path string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM block_instances WHERE file_path = ?", path,
	); err != nil {
		return fmt.Errorf("failed to delete block instances: %w", err)
	}
	return nil
}

// ListInstancesByFile returns the hashes referenced by path, sorted.
func (r *BlockRepo) ListInstancesByFile(ctx context.Context, path string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT block_hash FROM block_instances WHERE file_path = ? ORDER BY block_hash", path,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query block instances: %w", err)
	}
	return scanStrings(rows)
}

// MoveInstances reassigns every reference held by src to dest.
func (r *BlockRepo) MoveInstances(ctx context.Context, src, dest string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE OR REPLACE block_instances SET file_path = ? WHERE file_path = ?", dest, src,
	); err != nil {
		return fmt.Errorf("failed to move block instances: %w", err)
	}
	return nil
}

// RetargetInstance swaps path's reference from oldHash to newHash.
func (r *BlockRepo) RetargetInstance(ctx context.Context, path, oldHash, newHash string) error {
	if err := r.InsertInstance(ctx, newHash, path); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM block_instances WHERE block_hash = ? AND file_path = ?", oldHash, path,
	); err != nil {
		return fmt.Errorf("failed to delete block instance: %w", err)
	}
	return nil
}

// FilesForHash returns every file referencing hash, sorted.
func (r *BlockRepo) FilesForHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT file_path FROM block_instances WHERE block_hash = ? ORDER BY file_path", hash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query block files: %w", err)
	}
	return scanStrings(rows)
}

// FanOut returns how many distinct files reference hash.
func (r *BlockRepo) FanOut(ctx context.Context, hash string) (int, error) {
	return count(ctx, r.db,
		"SELECT COUNT(DISTINCT file_path) FROM block_instances WHERE block_hash = ?", hash,
	)
}

const orphanHashes = `SELECT hash FROM blocks EXCEPT SELECT block_hash FROM block_instances`

// DeleteOrphans deletes every block no file references and returns how many
// were removed.
func (r *BlockRepo) DeleteOrphans(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM blocks WHERE hash IN ("+orphanHashes+")")
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphan blocks: %w", err)
	}
	return res.RowsAffected()
}

// Search finds blocks by prefix. When caps has a full-text shadow, it matches any
// token starting with prefix through blocks_fts; otherwise, or when the match
// query is rejected, it falls back to blocks whose content starts with prefix.
func (r *BlockRepo) Search(ctx context.Context, prefix string, limit int, caps Capabilities) ([]Block, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, nil
	}
	if caps.FTS {
		// Only FTS5 exposes a rank column.
		order := "b.hash"
		if caps.FTSModule == FTS5 {
			order = "f.rank"
		}
		blocks, err := r.queryBlocks(ctx,
			`SELECT b.hash, b.content FROM blocks_fts f
			 JOIN blocks b ON b.rowid = f.rowid
			 WHERE blocks_fts MATCH ?
			 ORDER BY `+order+` LIMIT ?`,
			ftsPrefix(prefix, caps.FTSModule), limit,
		)
		if err == nil {
			return blocks, nil
		}
	}
	return r.queryBlocks(ctx,
		`SELECT hash, content FROM blocks WHERE content LIKE ? ESCAPE '\' ORDER BY hash LIMIT ?`,
		escapeLike(prefix)+"%", limit,
	)
}

// ftsPrefix turns prefix into a quoted prefix query. FTS5 escapes quotes by
// doubling and puts the star after the string; FTS4 has no escape and takes the
// star inside the phrase.
func ftsPrefix(prefix, module string) string {
	if module == FTS5 {
		return `"` + strings.ReplaceAll(prefix, `"`, `""`) + `"*`
	}
	return `"` + strings.ReplaceAll(prefix, `"`, " ") + `*"`
}

func (r *BlockRepo) queryBlocks(ctx context.Context, query string, args ...any) ([]Block, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var blocks []Block
	for rows.Next() {
		var b Block
		if err := rows.Scan(&b.Hash, &b.Content); err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

// Count returns the number of blocks.
func (r *BlockRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "SELECT COUNT(*) FROM blocks")
}

// CountInstances returns the number of block instance rows.
func (r *BlockRepo) CountInstances(ctx context.Context) (int, error) {
	return count(ctx, r.db, "SELECT COUNT(*) FROM block_instances")
}

// CountOrphans returns the number of blocks eligible for collection.
func (r *BlockRepo) CountOrphans(ctx context.Context) (int, error) {
	return count(ctx, r.db, "SELECT COUNT(*) FROM ("+orphanHashes+")")
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer func() {
		_ = rows.Close()
	}()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
