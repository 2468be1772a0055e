package vault

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"vaultindex/internal/contextutil"
)

// ScannedFile represents a markdown file found during vault scanning.
type ScannedFile struct {
	RelPath string // Relative path from vault root, forward slashes (e.g., "pages/meeting-notes.md")
	AbsPath string // Absolute file path
}

// Scan walks the vault and returns every markdown file outside the reserved
// storage directories.
func (v *Vault) Scan(ctx context.Context) ([]ScannedFile, error) {
	var scannedFiles []ScannedFile
	logger := contextutil.LoggerFromContext(ctx)

	err := filepath.Walk(v.root, func(path string, info os.FileInfo, err error) error {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if path == v.root {
				return fmt.Errorf("failed to access path %s: %w", path, err)
			}
			// An unreadable entry, or one removed mid-walk, is skipped so the rest
			// of the vault is still scanned.
			logger.WarnContext(ctx, "skipping unreadable path", "path", path, "error", err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path != v.root && (info.Name() == v.storageDir || info.Name() == legacyStorageDir) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsMarkdown(path) {
			return nil
		}

		relPath, err := filepath.Rel(v.root, path)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
		}

		scannedFiles = append(scannedFiles, ScannedFile{
			RelPath: filepath.ToSlash(relPath),
			AbsPath: path,
		})
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return scannedFiles, fmt.Errorf("failed to scan vault %s: %w", v.root, err)
	}

	return scannedFiles, nil
}
