package store

// Sink receives extracted facts. Both Store (direct SQLite) and Batch
// (in-memory buffering while the store lock is not held) implement it, so the
// extractor does not need to know which one it writes to.
type Sink interface {
	InsertSymbol(sym *Symbol) error
	InsertCallEdge(edge *CallEdge) error
	InsertImport(imp *ImportUsage) error
}

// Compile-time checks.
var (
	_ Sink = (*Store)(nil)
	_ Sink = (*Batch)(nil)
)
