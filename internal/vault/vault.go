package vault

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultStorageDir is the reserved directory, under the vault root, that holds
	// the relational store and the search index.
	DefaultStorageDir = ".EvoNotDB"
	// legacyStorageDir is skipped by scans so an older layout is never indexed.
	legacyStorageDir = ".enotes"

	dbFileName     = "index.db"
	searchIndexDir = "search_index"
	markdownExt    = ".md"
)

var (
	// ErrOutsideVault is returned when a path does not resolve inside the vault root.
	ErrOutsideVault = errors.New("path is outside the vault")
	// ErrNotMarkdown is returned when a path does not carry the Markdown extension.
	ErrNotMarkdown = errors.New("not a markdown file")
)

// defaultContentDirs are created at the vault root on first start.
var defaultContentDirs = []string{"pages", "assets"}

// Vault describes a directory tree of Markdown notes and the reserved storage
// directory inside it.
type Vault struct {
	root       string
	storageDir string
}

// New returns a Vault rooted at root. Root is made absolute so every path the
// engine records is absolute. An empty storageDir selects DefaultStorageDir.
func New(root, storageDir string) (*Vault, error) {
	if root == "" {
		return nil, fmt.Errorf("vault root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault root %s: %w", root, err)
	}
	if storageDir == "" {
		storageDir = DefaultStorageDir
	}
	return &Vault{root: filepath.Clean(abs), storageDir: storageDir}, nil
}

// Root returns the absolute vault root.
func (v *Vault) Root() string { return v.root }

// StoragePath returns the reserved storage directory.
func (v *Vault) StoragePath() string { return filepath.Join(v.root, v.storageDir) }

// DBPath returns the relational store file.
func (v *Vault) DBPath() string { return filepath.Join(v.StoragePath(), dbFileName) }

// SearchIndexPath returns the full-text index directory.
func (v *Vault) SearchIndexPath() string { return filepath.Join(v.StoragePath(), searchIndexDir) }

// EnsureLayout creates the storage directories and the default content areas.
func (v *Vault) EnsureLayout() error {
	dirs := []string{v.StoragePath(), v.SearchIndexPath()}
	for _, d := range defaultContentDirs {
		dirs = append(dirs, filepath.Join(v.root, d))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", d, err)
		}
	}
	return nil
}

// Resolve turns a vault-relative path into an absolute one. Absolute paths are
// cleaned and returned as-is.
func (v *Vault) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(v.root, filepath.FromSlash(path))
}

// Contains reports whether path lies inside the vault root.
func (v *Vault) Contains(path string) bool {
	rel, err := filepath.Rel(v.root, v.Resolve(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// IsReserved reports whether path lies inside the storage directory or a legacy
// storage directory.
func (v *Vault) IsReserved(path string) bool {
	rel, err := filepath.Rel(v.root, v.Resolve(path))
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == v.storageDir || part == legacyStorageDir {
			return true
		}
	}
	return false
}

// IsMarkdown reports whether path has the Markdown extension (case-insensitive).
func IsMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), markdownExt)
}

// Stem returns the file name without its extension. Links address notes by stem.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
