package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaVersion = 1

// DBTX is the subset of database/sql shared by *sql.DB, *sql.Conn and *sql.Tx.
// Repositories accept it so the same code runs autocommit or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner starts transactions. *sql.DB and *sql.Conn implement it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Capabilities reports optional SQLite features detected during migration.
type Capabilities struct {
	// FTS is true when the blocks_fts full-text shadow table is usable.
	FTS bool
	// FTSModule names the module behind blocks_fts, FTS5 or FTS4.
	FTSModule string
}

// New opens a SQLite database at the given path.
// Foreign keys, WAL journaling and a busy timeout are set on every pooled
// connection through the DSN, since SQLite pragmas are per connection.
func New(path string) (*sql.DB, error) {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_synchronous", "NORMAL")
	params.Set("_busy_timeout", "5000")

	db, err := sql.Open("sqlite3", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		modified_time REAL NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS links (
		source_id INTEGER NOT NULL,
		target_title TEXT NOT NULL,
		FOREIGN KEY (source_id) REFERENCES files(id) ON DELETE CASCADE
	);`,
	`CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_id);`,
	`CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_title);`,
	`CREATE TABLE IF NOT EXISTS blocks (
		hash TEXT PRIMARY KEY,
		content TEXT NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS block_instances (
		block_hash TEXT NOT NULL,
		file_path TEXT NOT NULL,
		UNIQUE (block_hash, file_path)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_block_instances_path ON block_instances(file_path);`,
}

// Full-text modules, in order of preference. FTS5 needs the sqlite_fts5 build
// tag; FTS4 ships with every go-sqlite3 build.
const (
	FTS5 = "fts5"
	FTS4 = "fts4"
)

// ftsSchemas keep blocks_fts in step with blocks. Both shadows are external
// content tables keyed on the implicit blocks rowid.
var ftsSchemas = map[string][]string{
	FTS5: {
		`CREATE VIRTUAL TABLE IF NOT EXISTS blocks_fts USING fts5(content, content='blocks', content_rowid='rowid');`,
		`CREATE TRIGGER IF NOT EXISTS blocks_ai AFTER INSERT ON blocks BEGIN
			INSERT INTO blocks_fts(rowid, content) VALUES (new.rowid, new.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS blocks_ad AFTER DELETE ON blocks BEGIN
			INSERT INTO blocks_fts(blocks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS blocks_au AFTER UPDATE ON blocks BEGIN
			INSERT INTO blocks_fts(blocks_fts, rowid, content) VALUES ('delete', old.rowid, old.content);
			INSERT INTO blocks_fts(rowid, content) VALUES (new.rowid, new.content);
		END;`,
	},
	// FTS4 reads the old row back from blocks to remove it, so removal runs
	// before the change.
	FTS4: {
		`CREATE VIRTUAL TABLE IF NOT EXISTS blocks_fts USING fts4(content, content='blocks');`,
		`CREATE TRIGGER IF NOT EXISTS blocks_ai AFTER INSERT ON blocks BEGIN
			INSERT INTO blocks_fts(docid, content) VALUES (new.rowid, new.content);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS blocks_bd BEFORE DELETE ON blocks BEGIN
			DELETE FROM blocks_fts WHERE docid = old.rowid;
		END;`,
		`CREATE TRIGGER IF NOT EXISTS blocks_bu BEFORE UPDATE ON blocks BEGIN
			DELETE FROM blocks_fts WHERE docid = old.rowid;
		END;`,
		`CREATE TRIGGER IF NOT EXISTS blocks_au AFTER UPDATE ON blocks BEGIN
			INSERT INTO blocks_fts(docid, content) VALUES (new.rowid, new.content);
		END;`,
	},
}

var ftsTriggers = []string{"blocks_ai", "blocks_ad", "blocks_au", "blocks_bd", "blocks_bu"}

// Migrate creates the schema. It is idempotent and can be run multiple times safely.
//
// The block full-text shadow uses FTS5 when the build has it and FTS4 otherwise.
// When neither works, the shadow triggers are dropped so block writes keep
// working and the returned Capabilities report FTS as unavailable.
func Migrate(ctx context.Context, db *sql.DB) (Capabilities, error) {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return Capabilities{}, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	var caps Capabilities
	module, err := migrateFTS(ctx, db)
	if err == nil {
		caps = Capabilities{FTS: true, FTSModule: module}
	} else {
		for _, name := range ftsTriggers {
			if _, err := db.ExecContext(ctx, "DROP TRIGGER IF EXISTS "+name); err != nil {
				return Capabilities{}, fmt.Errorf("failed to drop trigger %s: %w", name, err)
			}
		}
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return Capabilities{}, fmt.Errorf("failed to set schema version: %w", err)
	}

	return caps, nil
}

// migrateFTS makes sure a usable blocks_fts exists and returns its module.
func migrateFTS(ctx context.Context, db *sql.DB) (string, error) {
	var ddl string
	err := db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = 'blocks_fts'",
	).Scan(&ddl)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return createFTS(ctx, db)
	case err != nil:
		return "", err
	}

	// An existing shadow keeps its module: a table created by an FTS5 build
	// survives in a build without it, and only a query tells the two apart.
	module := FTS4
	if strings.Contains(strings.ToLower(ddl), FTS5) {
		module = FTS5
	}
	var triggers int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name = 'blocks_ai'",
	).Scan(&triggers); err != nil {
		return "", err
	}
	if err := applyFTS(ctx, db, module); err != nil {
		return "", err
	}
	if triggers == 0 {
		// The triggers were dropped by a build that could not use the shadow.
		if _, err := db.ExecContext(ctx, "INSERT INTO blocks_fts(blocks_fts) VALUES ('rebuild')"); err != nil {
			return "", err
		}
	}
	return module, nil
}

func createFTS(ctx context.Context, db *sql.DB) (string, error) {
	var lastErr error
	for _, module := range []string{FTS5, FTS4} {
		if err := applyFTS(ctx, db, module); err != nil {
			lastErr = err
			continue
		}
		// Blocks written while the shadow was unavailable need indexing.
		if _, err := db.ExecContext(ctx, "INSERT INTO blocks_fts(blocks_fts) VALUES ('rebuild')"); err != nil {
			return "", err
		}
		return module, nil
	}
	return "", lastErr
}

func applyFTS(ctx context.Context, db *sql.DB, module string) error {
	for _, stmt := range ftsSchemas[module] {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	rows, err := db.QueryContext(ctx, "SELECT rowid FROM blocks_fts LIMIT 1")
	if err != nil {
		return err
	}
	return rows.Close()
}

// InTx runs fn against a Store bound to a new transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func InTx(ctx context.Context, db TxBeginner, fn func(*Store) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(NewStore(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
