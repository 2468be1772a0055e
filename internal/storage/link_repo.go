package storage

import (
	"context"
	"fmt"
)

// LinkRepo provides methods for link graph operations.
// It implements the LinkStore interface.
type LinkRepo struct {
	db DBTX
}

// NewLinkRepo creates a new LinkRepo.
func NewLinkRepo(db DBTX) *LinkRepo {
	return &LinkRepo{db: db}
}

// ReplaceForSource recomputes the links of one file from scratch.
func (r *LinkRepo) ReplaceForSource(ctx context.Context, sourceID int64, targets []string) error {
	if err := r.DeleteBySource(ctx, sourceID); err != nil {
		return err
	}
	for _, target := range targets {
		if _, err := r.db.ExecContext(ctx,
			"INSERT INTO links (source_id, target_title) VALUES (?, ?)", sourceID, target,
		); err != nil {
			return fmt.Errorf("failed to insert link %q: %w", target, err)
		}
	}
	return nil
}

// DeleteBySource deletes every link of a file.
func (r *LinkRepo) DeleteBySource(ctx context.Context, sourceID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM links WHERE source_id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to delete links: %w", err)
	}
	return nil
}

// RetargetTitle points every link whose target is exactly oldTitle at newTitle.
func (r *LinkRepo) RetargetTitle(ctx context.Context, oldTitle, newTitle string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE links SET target_title = ? WHERE target_title = ?", newTitle, oldTitle,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to retarget links: %w", err)
	}
	return res.RowsAffected()
}

// ListBySource returns a file's link targets in insertion order.
func (r *LinkRepo) ListBySource(ctx context.Context, sourceID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT target_title FROM links WHERE source_id = ? ORDER BY rowid", sourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	return scanStrings(rows)
}

// Backlinks returns the paths of files linking to title, including links that
// carry an #anchor or |alias suffix.
func (r *LinkRepo) Backlinks(ctx context.Context, title string) ([]string, error) {
	escaped := escapeLike(title)
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT f.path FROM links l
		 JOIN files f ON f.id = l.source_id
		 WHERE l.target_title = ?
		    OR l.target_title LIKE ? ESCAPE '\'
		    OR l.target_title LIKE ? ESCAPE '\'
		 ORDER BY f.path`,
		title, escaped+"#%", escaped+"|%",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query backlinks: %w", err)
	}
	return scanStrings(rows)
}

// Count returns the number of link rows.
func (r *LinkRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "SELECT COUNT(*) FROM links")
}
