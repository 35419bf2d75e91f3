package store

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
)

// ContentHash returns the hex-encoded SHA-256 digest of content. It is the
// hash stored in file_index and compared on every re-index.
func ContentHash(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// nullString maps "" to SQL NULL for optional text columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const symbolCols = `id, name, kind, file_path, line_start, line_end, language, framework`

func scanSymbol(sc rowScanner) (*Symbol, error) {
	sym := &Symbol{}
	var lang, fw sql.NullString
	if err := sc.Scan(&sym.ID, &sym.Name, &sym.Kind, &sym.FilePath,
		&sym.LineStart, &sym.LineEnd, &lang, &fw); err != nil {
		return nil, err
	}
	sym.Language = lang.String
	sym.Framework = fw.String
	return sym, nil
}

const callEdgeCols = `id, caller_file, caller_symbol, callee_symbol, line_number`

func scanCallEdge(sc rowScanner) (*CallEdge, error) {
	e := &CallEdge{}
	if err := sc.Scan(&e.ID, &e.CallerFile, &e.CallerSymbol, &e.CalleeSymbol, &e.LineNumber); err != nil {
		return nil, err
	}
	return e, nil
}

const importCols = `id, file_path, import_name, import_src, is_used`

func scanImport(sc rowScanner) (*ImportUsage, error) {
	imp := &ImportUsage{}
	if err := sc.Scan(&imp.ID, &imp.FilePath, &imp.ImportName, &imp.ImportSrc, &imp.IsUsed); err != nil {
		return nil, err
	}
	return imp, nil
}

// collect drains rows with scan. The caller must hold s.mu.
func collect[T any](rows *sql.Rows, scan func(rowScanner) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
