package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch inserts all buffered facts from batch within a single
// transaction. Every row is re-keyed to filePath so a batch can never leak
// facts into another file's rows.
func (s *Store) CommitBatch(filePath string, batch *Batch) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for i := range batch.Symbols {
		sym := batch.Symbols[i]
		sym.FilePath = filePath
		if err := insertSymbolTx(tx, &sym); err != nil {
			return fmt.Errorf("commit batch: symbol %q: %w", sym.Name, err)
		}
	}
	for i := range batch.CallEdges {
		edge := batch.CallEdges[i]
		edge.CallerFile = filePath
		if err := insertCallEdgeTx(tx, &edge); err != nil {
			return fmt.Errorf("commit batch: call edge %q: %w", edge.CalleeSymbol, err)
		}
	}
	for i := range batch.Imports {
		imp := batch.Imports[i]
		imp.FilePath = filePath
		if err := insertImportTx(tx, &imp); err != nil {
			return fmt.Errorf("commit batch: import %q: %w", imp.ImportName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func insertSymbolTx(ex execer, sym *Symbol) error {
	res, err := ex.Exec(
		`INSERT INTO symbols (name, kind, file_path, line_start, line_end, language, framework)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sym.Name, sym.Kind, sym.FilePath, sym.LineStart, sym.LineEnd,
		nullString(sym.Language), nullString(sym.Framework),
	)
	if err != nil {
		return err
	}
	sym.ID, err = res.LastInsertId()
	return err
}

func insertCallEdgeTx(ex execer, edge *CallEdge) error {
	caller := edge.CallerSymbol
	if caller == "" {
		caller = Unresolved
	}
	res, err := ex.Exec(
		`INSERT INTO call_graph (caller_file, caller_symbol, callee_symbol, line_number)
		 VALUES (?, ?, ?, ?)`,
		edge.CallerFile, caller, edge.CalleeSymbol, edge.LineNumber,
	)
	if err != nil {
		return err
	}
	edge.ID, err = res.LastInsertId()
	return err
}

func insertImportTx(ex execer, imp *ImportUsage) error {
	src := imp.ImportSrc
	if src == "" {
		src = Unresolved
	}
	res, err := ex.Exec(
		`INSERT INTO import_usage (file_path, import_name, import_src, is_used)
		 VALUES (?, ?, ?, ?)`,
		imp.FilePath, imp.ImportName, src, imp.IsUsed,
	)
	if err != nil {
		return err
	}
	imp.ID, err = res.LastInsertId()
	return err
}
