package store

import (
	"fmt"
	"time"
)

// RecordSnapshot appends a quality snapshot. A zero Timestamp is replaced
// with the current time. Rows are never updated afterwards.
func (s *Store) RecordSnapshot(snap *QualitySnapshot) error {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(
		`INSERT INTO quality_history (timestamp, file_path, dead_functions, unused_imports,
			complexity_score, violations_count, tests_passing)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.Timestamp.UTC(), snap.FilePath, snap.DeadFunctions, snap.UnusedImports,
		snap.ComplexityScore, snap.ViolationsCount, snap.TestsPassing,
	)
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	snap.ID, err = res.LastInsertId()
	return err
}

// History returns snapshots for filePath, most recent first. An empty
// filePath returns snapshots for every file. limit <= 0 means no limit.
func (s *Store) History(filePath string, limit int) ([]*QualitySnapshot, error) {
	q := `SELECT id, timestamp, file_path, dead_functions, unused_imports,
		complexity_score, violations_count, tests_passing FROM quality_history`
	var args []any
	if filePath != "" {
		q += " WHERE file_path = ?"
		args = append(args, filePath)
	}
	q += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	snaps, err := collect(rows, func(sc rowScanner) (*QualitySnapshot, error) {
		snap := &QualitySnapshot{}
		return snap, sc.Scan(&snap.ID, &snap.Timestamp, &snap.FilePath, &snap.DeadFunctions,
			&snap.UnusedImports, &snap.ComplexityScore, &snap.ViolationsCount, &snap.TestsPassing)
	})
	if err != nil {
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}
	return snaps, nil
}
