package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the five index tables.
//
// Every public operation holds mu for its whole duration, reads included.
// There is no reader/writer distinction: callers that race against a
// background scan simply block until the current operation finishes.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the SQLite database at dbPath and runs the
// idempotent schema migration. The parent directory is created on demand.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection backs the one lock; a pool would only add contention.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db, path: dbPath}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  file_path       TEXT NOT NULL,
  line_start      INTEGER NOT NULL,
  line_end        INTEGER NOT NULL,
  language        TEXT,
  framework       TEXT
);

CREATE TABLE IF NOT EXISTS call_graph (
  id              INTEGER PRIMARY KEY,
  caller_file     TEXT NOT NULL,
  caller_symbol   TEXT NOT NULL,
  callee_symbol   TEXT NOT NULL,
  line_number     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS import_usage (
  id              INTEGER PRIMARY KEY,
  file_path       TEXT NOT NULL,
  import_name     TEXT NOT NULL,
  import_src      TEXT NOT NULL,
  is_used         BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS file_index (
  file_path       TEXT PRIMARY KEY,
  content_hash    TEXT NOT NULL,
  last_indexed    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS quality_history (
  id               INTEGER PRIMARY KEY,
  timestamp        TIMESTAMP NOT NULL,
  file_path        TEXT NOT NULL,
  dead_functions   INTEGER NOT NULL DEFAULT 0,
  unused_imports   INTEGER NOT NULL DEFAULT 0,
  complexity_score REAL NOT NULL DEFAULT 0,
  violations_count INTEGER NOT NULL DEFAULT 0,
  tests_passing    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_call_graph_callee ON call_graph(callee_symbol);
CREATE INDEX IF NOT EXISTS idx_import_usage_file ON import_usage(file_path);
CREATE INDEX IF NOT EXISTS idx_quality_history_file ON quality_history(file_path, timestamp);
`

// factTables lists the per-file fact tables and their file column, in the
// order they are cleared on re-index.
var factTables = []struct{ table, column string }{
	{"symbols", "file_path"},
	{"call_graph", "caller_file"},
	{"import_usage", "file_path"},
}

// DeleteFileFacts transactionally removes every symbol, call edge and import
// row recorded for filePath. The file_index row is left in place.
func (s *Store) DeleteFileFacts(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteFacts(filePath, false)
}

// DeleteFile removes all facts for filePath together with its file_index row.
func (s *Store) DeleteFile(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteFacts(filePath, true)
}

func (s *Store) deleteFacts(filePath string, withEntry bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ft := range factTables {
		q := "DELETE FROM " + ft.table + " WHERE " + ft.column + " = ?"
		if _, err := tx.Exec(q, filePath); err != nil {
			return fmt.Errorf("delete %s for %s: %w", ft.table, filePath, err)
		}
	}
	if withEntry {
		if _, err := tx.Exec("DELETE FROM file_index WHERE file_path = ?", filePath); err != nil {
			return fmt.Errorf("delete file entry for %s: %w", filePath, err)
		}
	}
	return tx.Commit()
}

// Counts returns the number of symbol, call edge and import rows stored for
// filePath.
func (s *Store) Counts(filePath string) (symbols, calls, imports int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make([]int, len(factTables))
	for i, ft := range factTables {
		q := "SELECT COUNT(*) FROM " + ft.table + " WHERE " + ft.column + " = ?"
		if err := s.db.QueryRow(q, filePath).Scan(&counts[i]); err != nil {
			return 0, 0, 0, fmt.Errorf("count %s: %w", ft.table, err)
		}
	}
	return counts[0], counts[1], counts[2], nil
}
