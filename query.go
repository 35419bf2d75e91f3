package reviewgate

import (
	"fmt"
	"time"

	"github.com/jward/reviewgate/internal/store"
)

// QueryBuilder is the read and bookkeeping API over the index store. File
// paths are the relative, slash-separated keys the Engine stores.
type QueryBuilder struct {
	store *store.Store
}

// FindSymbol returns every symbol declared with exactly name.
func (q *QueryBuilder) FindSymbol(name string) ([]*Symbol, error) {
	syms, err := q.store.SymbolsByName(name)
	if err != nil {
		return nil, fmt.Errorf("find symbol: %w", err)
	}
	return syms, nil
}

// FileSymbols returns the symbols declared in filePath in line order.
func (q *QueryBuilder) FileSymbols(filePath string) ([]*Symbol, error) {
	syms, err := q.store.SymbolsByFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("file symbols: %w", err)
	}
	return syms, nil
}

// DeadCode returns functions and methods whose name never appears as a
// callee anywhere in the call graph. An empty filePath searches every file.
//
// This is graph-based and sees calls from other files, unlike the per-file
// dead code analyzer.
func (q *QueryBuilder) DeadCode(filePath string) ([]*Symbol, error) {
	syms, err := q.store.DeadCode(filePath)
	if err != nil {
		return nil, fmt.Errorf("dead code: %w", err)
	}
	return syms, nil
}

// Callers returns the call sites whose callee is name.
func (q *QueryBuilder) Callers(name string) ([]*CallEdge, error) {
	edges, err := q.store.CallersOf(name)
	if err != nil {
		return nil, fmt.Errorf("callers: %w", err)
	}
	return edges, nil
}

// MarkAsUsed flags the import importName in filePath as used and returns
// how many rows changed.
func (q *QueryBuilder) MarkAsUsed(filePath, importName string) (int64, error) {
	n, err := q.store.MarkImportUsed(filePath, importName)
	if err != nil {
		return 0, fmt.Errorf("mark as used: %w", err)
	}
	return n, nil
}

// UnusedImports returns imports not flagged as used. An empty filePath
// searches every file.
func (q *QueryBuilder) UnusedImports(filePath string) ([]*ImportUsage, error) {
	imps, err := q.store.UnusedImports(filePath)
	if err != nil {
		return nil, fmt.Errorf("unused imports: %w", err)
	}
	return imps, nil
}

// RecordMetrics appends a quality snapshot. A zero Timestamp means now.
func (q *QueryBuilder) RecordMetrics(snap *QualitySnapshot) error {
	if err := q.store.RecordSnapshot(snap); err != nil {
		return fmt.Errorf("record metrics: %w", err)
	}
	return nil
}

// History returns up to limit snapshots for filePath, most recent first. A
// limit of zero or less returns all of them.
func (q *QueryBuilder) History(filePath string, limit int) ([]*QualitySnapshot, error) {
	snaps, err := q.store.History(filePath, limit)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return snaps, nil
}

// Direction summarizes a Trend.
type Direction string

const (
	Improving  Direction = "improving"
	Regressing Direction = "regressing"
	Steady     Direction = "steady"
)

// Trend is the change between the oldest and newest snapshot of a window.
// Deltas are newest minus oldest.
type Trend struct {
	FilePath        string
	Samples         int
	From, To        time.Time
	DeadFunctions   int
	UnusedImports   int
	ComplexityScore float64
	ViolationsCount int
	Direction       Direction
}

// Trend compares the newest and oldest of the last limit snapshots for
// filePath. It returns nil when there is no history.
func (q *QueryBuilder) Trend(filePath string, limit int) (*Trend, error) {
	snaps, err := q.History(filePath, limit)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	newest, oldest := snaps[0], snaps[len(snaps)-1]
	t := &Trend{
		FilePath:        filePath,
		Samples:         len(snaps),
		From:            oldest.Timestamp,
		To:              newest.Timestamp,
		DeadFunctions:   newest.DeadFunctions - oldest.DeadFunctions,
		UnusedImports:   newest.UnusedImports - oldest.UnusedImports,
		ComplexityScore: newest.ComplexityScore - oldest.ComplexityScore,
		ViolationsCount: newest.ViolationsCount - oldest.ViolationsCount,
		Direction:       Steady,
	}
	switch {
	case t.ViolationsCount < 0:
		t.Direction = Improving
	case t.ViolationsCount > 0:
		t.Direction = Regressing
	}
	return t, nil
}
