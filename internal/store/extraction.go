package store

import (
	"database/sql"
	"fmt"
	"time"
)

// --- File index operations ---

// IsPopulated reports whether at least one file has been indexed. It is a
// cheap existence probe used to decide whether a first full scan is needed.
func (s *Store) IsPopulated() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var one int
	err := s.db.QueryRow("SELECT 1 FROM file_index LIMIT 1").Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("is populated: %w", err)
	}
	return true, nil
}

// FileHash returns the stored content hash for filePath. ok is false when
// the file has never been indexed.
func (s *Store) FileHash(filePath string) (hash string, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.db.QueryRow("SELECT content_hash FROM file_index WHERE file_path = ?", filePath).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("file hash: %w", err)
	}
	return hash, true, nil
}

// FileEntry returns the file_index row for filePath, or nil if absent.
func (s *Store) FileEntry(filePath string) (*FileIndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := &FileIndexEntry{}
	err := s.db.QueryRow(
		"SELECT file_path, content_hash, last_indexed FROM file_index WHERE file_path = ?", filePath,
	).Scan(&e.FilePath, &e.ContentHash, &e.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file entry: %w", err)
	}
	return e, nil
}

// FileEntries returns every file_index row ordered by path.
func (s *Store) FileEntries() ([]*FileIndexEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT file_path, content_hash, last_indexed FROM file_index ORDER BY file_path")
	if err != nil {
		return nil, fmt.Errorf("file entries: %w", err)
	}
	entries, err := collect(rows, func(sc rowScanner) (*FileIndexEntry, error) {
		e := &FileIndexEntry{}
		return e, sc.Scan(&e.FilePath, &e.ContentHash, &e.LastIndexed)
	})
	if err != nil {
		return nil, fmt.Errorf("scan file entry: %w", err)
	}
	return entries, nil
}

// UpsertFileEntry records that filePath was indexed with hash at time at.
func (s *Store) UpsertFileEntry(filePath, hash string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO file_index (file_path, content_hash, last_indexed) VALUES (?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET content_hash = excluded.content_hash,
		   last_indexed = excluded.last_indexed`,
		filePath, hash, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert file entry %s: %w", filePath, err)
	}
	return nil
}

// --- Direct fact inserts (Sink) ---

func (s *Store) InsertSymbol(sym *Symbol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := insertSymbolTx(s.db, sym); err != nil {
		return fmt.Errorf("insert symbol: %w", err)
	}
	return nil
}

func (s *Store) InsertCallEdge(edge *CallEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := insertCallEdgeTx(s.db, edge); err != nil {
		return fmt.Errorf("insert call edge: %w", err)
	}
	return nil
}

func (s *Store) InsertImport(imp *ImportUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := insertImportTx(s.db, imp); err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

// --- Symbol operations ---

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSymbol)
}

func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	syms, err := s.querySymbols("SELECT "+symbolCols+" FROM symbols WHERE name = ? ORDER BY file_path, line_start", name)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	return syms, nil
}

func (s *Store) SymbolsByFile(filePath string) ([]*Symbol, error) {
	syms, err := s.querySymbols("SELECT "+symbolCols+" FROM symbols WHERE file_path = ? ORDER BY line_start, id", filePath)
	if err != nil {
		return nil, fmt.Errorf("symbols by file: %w", err)
	}
	return syms, nil
}

// DeadCode returns function and method symbols whose name never appears as a
// callee anywhere in call_graph. An empty filePath searches every file.
func (s *Store) DeadCode(filePath string) ([]*Symbol, error) {
	q := `SELECT ` + symbolCols + ` FROM symbols s
		WHERE s.kind IN ('function', 'method')
		  AND NOT EXISTS (SELECT 1 FROM call_graph c WHERE c.callee_symbol = s.name)`
	var args []any
	if filePath != "" {
		q += " AND s.file_path = ?"
		args = append(args, filePath)
	}
	q += " ORDER BY s.file_path, s.line_start"
	syms, err := s.querySymbols(q, args...)
	if err != nil {
		return nil, fmt.Errorf("dead code: %w", err)
	}
	return syms, nil
}

// --- Call graph operations ---

func (s *Store) queryCallEdges(query string, args ...any) ([]*CallEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCallEdge)
}

// CallersOf returns every call edge whose callee is name.
func (s *Store) CallersOf(name string) ([]*CallEdge, error) {
	edges, err := s.queryCallEdges("SELECT "+callEdgeCols+" FROM call_graph WHERE callee_symbol = ? ORDER BY caller_file, line_number", name)
	if err != nil {
		return nil, fmt.Errorf("callers of: %w", err)
	}
	return edges, nil
}

func (s *Store) CallEdgesByFile(filePath string) ([]*CallEdge, error) {
	edges, err := s.queryCallEdges("SELECT "+callEdgeCols+" FROM call_graph WHERE caller_file = ? ORDER BY line_number, id", filePath)
	if err != nil {
		return nil, fmt.Errorf("call edges by file: %w", err)
	}
	return edges, nil
}

// --- Import usage operations ---

func (s *Store) ImportsByFile(filePath string) ([]*ImportUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT "+importCols+" FROM import_usage WHERE file_path = ? ORDER BY id", filePath)
	if err != nil {
		return nil, fmt.Errorf("imports by file: %w", err)
	}
	return collect(rows, scanImport)
}

// MarkImportUsed sets is_used on every import_usage row matching filePath
// and importName. It returns the number of rows updated.
func (s *Store) MarkImportUsed(filePath, importName string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		"UPDATE import_usage SET is_used = TRUE WHERE file_path = ? AND import_name = ?",
		filePath, importName,
	)
	if err != nil {
		return 0, fmt.Errorf("mark import used: %w", err)
	}
	return res.RowsAffected()
}

// UnusedImports returns import rows whose is_used flag is false. An empty
// filePath searches every file.
func (s *Store) UnusedImports(filePath string) ([]*ImportUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := "SELECT " + importCols + " FROM import_usage WHERE is_used = FALSE"
	var args []any
	if filePath != "" {
		q += " AND file_path = ?"
		args = append(args, filePath)
	}
	rows, err := s.db.Query(q+" ORDER BY file_path, id", args...)
	if err != nil {
		return nil, fmt.Errorf("unused imports: %w", err)
	}
	return collect(rows, scanImport)
}
