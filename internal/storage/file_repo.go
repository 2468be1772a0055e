package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// FileRepo provides methods for file record operations.
// It implements the FileStore interface.
type FileRepo struct {
	db DBTX
}

// NewFileRepo creates a new FileRepo.
func NewFileRepo(db DBTX) *FileRepo {
	return &FileRepo{db: db}
}

// GetByPath gets a file record by path.
// Returns nil and ErrNotFound if not found.
func (r *FileRepo) GetByPath(ctx context.Context, path string) (*FileRecord, error) {
	var rec FileRecord
	var modified float64

	err := r.db.QueryRowContext(ctx,
		"SELECT id, path, modified_time FROM files WHERE path = ?", path,
	).Scan(&rec.ID, &rec.Path, &modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query file: %w", err)
	}

	rec.ModifiedTime = fromUnixSeconds(modified)
	return &rec, nil
}

// Upsert inserts a file record or updates its modified time, preserving the id.
func (r *FileRepo) Upsert(ctx context.Context, path string, modified time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO files (path, modified_time) VALUES (?, ?)
		 ON CONFLICT (path) DO UPDATE SET modified_time = excluded.modified_time
		 RETURNING id`,
		path, toUnixSeconds(modified),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert file: %w", err)
	}
	return id, nil
}

// DeleteByPath removes the record for path. Links cascade.
func (r *FileRepo) DeleteByPath(ctx context.Context, path string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM files WHERE path = ?", path)
	if err != nil {
		return 0, fmt.Errorf("failed to delete file: %w", err)
	}
	return res.RowsAffected()
}

// UpdatePath renames the record for src to dest in place.
func (r *FileRepo) UpdatePath(ctx context.Context, src, dest string) (int64, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE files SET path = ? WHERE path = ?", dest, src)
	if err != nil {
		return 0, fmt.Errorf("failed to update file path: %w", err)
	}
	return res.RowsAffected()
}

// List returns every file record ordered by path.
func (r *FileRepo) List(ctx context.Context) ([]FileRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, path, modified_time FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var files []FileRecord
	for rows.Next() {
		var rec FileRecord
		var modified float64
		if err := rows.Scan(&rec.ID, &rec.Path, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		rec.ModifiedTime = fromUnixSeconds(modified)
		files = append(files, rec)
	}
	return files, rows.Err()
}

// Count returns the number of file records.
func (r *FileRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, "SELECT COUNT(*) FROM files")
}
