package store

import "sync"

// Batch buffers one file's extracted facts in memory. Extraction writes into
// a Batch without touching the store lock; CommitBatch later inserts the
// buffered rows in a single transaction.
type Batch struct {
	mu sync.Mutex

	Symbols   []Symbol
	CallEdges []CallEdge
	Imports   []ImportUsage
}

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) InsertSymbol(sym *Symbol) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Symbols = append(b.Symbols, *sym)
	return nil
}

func (b *Batch) InsertCallEdge(edge *CallEdge) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CallEdges = append(b.CallEdges, *edge)
	return nil
}

func (b *Batch) InsertImport(imp *ImportUsage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Imports = append(b.Imports, *imp)
	return nil
}

// Len returns the total number of buffered rows.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Symbols) + len(b.CallEdges) + len(b.Imports)
}
