package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// newTestDB opens and migrates a database in a temp dir.
func newTestDB(t *testing.T) (*sql.DB, Capabilities) {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	caps, err := Migrate(context.Background(), db)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db, caps
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{
			name:    "valid path",
			path:    dbPath,
			wantErr: false,
		},
		{
			name:    "invalid path",
			path:    "/invalid/path/to/db.db",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(tt.path)

			if tt.wantErr {
				if err == nil {
					t.Errorf("New() expected error, got nil")
				}
				if db != nil {
					_ = db.Close()
				}
				return
			}

			if err != nil {
				t.Errorf("New() unexpected error: %v", err)
				return
			}

			if db.Stats().MaxOpenConnections != 25 {
				t.Errorf("New() MaxOpenConnections = %v, want 25", db.Stats().MaxOpenConnections)
			}

			_ = db.Close()
		})
	}
}

func TestNew_PragmasOnEveryConnection(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	// Hold two connections at once so the pool must open a second one.
	c1, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	defer func() { _ = c1.Close() }()
	c2, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn() error = %v", err)
	}
	defer func() { _ = c2.Close() }()

	for i, c := range []*sql.Conn{c1, c2} {
		var fk int
		if err := c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("conn %d: failed to check foreign keys: %v", i, err)
		}
		if fk != 1 {
			t.Errorf("conn %d: foreign_keys = %d, want 1", i, fk)
		}

		var mode string
		if err := c.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("conn %d: failed to check journal mode: %v", i, err)
		}
		if !strings.EqualFold(mode, "wal") {
			t.Errorf("conn %d: journal_mode = %s, want wal", i, mode)
		}
	}
}

func TestMigrate(t *testing.T) {
	db, _ := newTestDB(t)

	tables := []string{"files", "links", "blocks", "block_instances"}
	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("Failed to check table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("Migrate() table %s not created", table)
		}
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("Failed to read user_version: %v", err)
	}
	if version != schemaVersion {
		t.Errorf("user_version = %d, want %d", version, schemaVersion)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, first := newTestDB(t)

	if _, err := db.Exec("INSERT INTO blocks (hash, content) VALUES ('h', 'kept')"); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	second, err := Migrate(context.Background(), db)
	if err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
	if first != second {
		t.Errorf("Migrate() capabilities changed between runs: %+v then %+v", first, second)
	}

	var content string
	if err := db.QueryRow("SELECT content FROM blocks WHERE hash = 'h'").Scan(&content); err != nil {
		t.Fatalf("block lost after second migration: %v", err)
	}
}

func TestMigrate_FullTextShadowAvailable(t *testing.T) {
	_, caps := newTestDB(t)
	if !caps.FTS {
		t.Fatal("Migrate() reported no full-text shadow; FTS4 is built into every sqlite3 build")
	}
	if caps.FTSModule != FTS5 && caps.FTSModule != FTS4 {
		t.Errorf("Migrate() FTSModule = %q, want fts5 or fts4", caps.FTSModule)
	}
}

// newFTS4DB builds the schema with the FTS4 shadow regardless of whether the
// build has FTS5.
func newFTS4DB(t *testing.T) (*sql.DB, Capabilities) {
	t.Helper()
	ctx := context.Background()

	db, err := New(filepath.Join(t.TempDir(), "fts4.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("schema error = %v", err)
		}
	}
	if err := applyFTS(ctx, db, FTS4); err != nil {
		t.Fatalf("applyFTS(fts4) error = %v", err)
	}
	return db, Capabilities{FTS: true, FTSModule: FTS4}
}

func TestMigrate_FTSShadowFollowsBlocks(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) (*sql.DB, Capabilities)
	}{
		{name: "preferred module", setup: newTestDB},
		{name: "fts4", setup: newFTS4DB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, caps := tt.setup(t)
			if !caps.FTS {
				t.Fatal("no full-text shadow")
			}
			ctx := context.Background()

			matches := func(term string) int {
				t.Helper()
				var n int
				if err := db.QueryRow("SELECT COUNT(*) FROM blocks_fts WHERE blocks_fts MATCH ?", term).Scan(&n); err != nil {
					t.Fatalf("MATCH %q error = %v", term, err)
				}
				return n
			}

			if _, err := db.Exec("INSERT INTO blocks (hash, content) VALUES ('h1', 'alpha beta')"); err != nil {
				t.Fatalf("insert error = %v", err)
			}
			if got := matches("alpha"); got != 1 {
				t.Errorf("after insert MATCH alpha = %d, want 1", got)
			}

			if _, err := db.Exec("UPDATE blocks SET content = 'gamma' WHERE hash = 'h1'"); err != nil {
				t.Fatalf("update error = %v", err)
			}
			if got := matches("alpha"); got != 0 {
				t.Errorf("after update MATCH alpha = %d, want 0", got)
			}
			if got := matches("gamma"); got != 1 {
				t.Errorf("after update MATCH gamma = %d, want 1", got)
			}

			if _, err := db.Exec("DELETE FROM blocks WHERE hash = 'h1'"); err != nil {
				t.Fatalf("delete error = %v", err)
			}
			if got := matches("gamma"); got != 0 {
				t.Errorf("after delete MATCH gamma = %d, want 0", got)
			}

			// Collected orphans leave the shadow too.
			repo := NewBlockRepo(db)
			_ = repo.InsertIgnore(ctx, "kept", "delta kept")
			_ = repo.InsertIgnore(ctx, "orphan", "delta orphan")
			_ = repo.InsertInstance(ctx, "kept", "/v/a.md")
			if _, err := repo.DeleteOrphans(ctx); err != nil {
				t.Fatalf("DeleteOrphans() error = %v", err)
			}
			if got := matches("delta"); got != 1 {
				t.Errorf("after collection MATCH delta = %d, want 1", got)
			}
			got, err := repo.Search(ctx, "del", 10, caps)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(got) != 1 || got[0].Hash != "kept" {
				t.Errorf("Search(del) = %+v, want only kept", got)
			}
		})
	}
}

func TestMigrate_RebuildsShadowForExistingBlocks(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	// Simulate a store written by a build that could not keep the shadow.
	for _, name := range ftsTriggers {
		if _, err := db.Exec("DROP TRIGGER IF EXISTS " + name); err != nil {
			t.Fatalf("drop trigger error = %v", err)
		}
	}
	if _, err := db.Exec("INSERT INTO blocks (hash, content) VALUES ('h', 'written without shadow')"); err != nil {
		t.Fatalf("insert error = %v", err)
	}

	caps, err := Migrate(ctx, db)
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	got, err := NewBlockRepo(db).Search(ctx, "shad", 10, caps)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Search(shad) = %+v, want the block written while triggers were missing", got)
	}
}

func TestInTx(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	errBoom := errors.New("boom")
	err := InTx(ctx, db, func(s *Store) error {
		if _, err := s.Files.Upsert(ctx, "/v/rolled-back.md", now); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("InTx() error = %v, want boom", err)
	}

	err = InTx(ctx, db, func(s *Store) error {
		_, err := s.Files.Upsert(ctx, "/v/committed.md", now)
		return err
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}

	files := NewFileRepo(db)
	if _, err := files.GetByPath(ctx, "/v/rolled-back.md"); !errors.Is(err, ErrNotFound) {
		t.Errorf("rolled back record visible: err = %v", err)
	}
	if _, err := files.GetByPath(ctx, "/v/committed.md"); err != nil {
		t.Errorf("committed record missing: %v", err)
	}
}
