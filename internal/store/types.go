package store

import "time"

// Symbol kinds recorded by the extractor.
const (
	KindFunction = "function"
	KindMethod   = "method"
	KindClass    = "class"
	KindVariable = "variable"
)

// Unresolved is the placeholder recorded for call-edge callers and import
// sources that the extractor does not resolve.
const Unresolved = "unknown"

type Symbol struct {
	ID        int64
	Name      string
	Kind      string
	FilePath  string
	LineStart int // 0-based
	LineEnd   int // 0-based
	Language  string
	Framework string
}

type CallEdge struct {
	ID           int64
	CallerFile   string
	CallerSymbol string
	CalleeSymbol string
	LineNumber   int // 0-based
}

type ImportUsage struct {
	ID         int64
	FilePath   string
	ImportName string
	ImportSrc  string
	IsUsed     bool
}

type FileIndexEntry struct {
	FilePath    string
	ContentHash string
	LastIndexed time.Time
}

// QualitySnapshot is one append-only row of quality history.
type QualitySnapshot struct {
	ID              int64
	Timestamp       time.Time
	FilePath        string
	DeadFunctions   int
	UnusedImports   int
	ComplexityScore float64
	ViolationsCount int
	TestsPassing    bool
}
