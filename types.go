package reviewgate

import (
	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/store"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// APIs.

type Store = store.Store
type Symbol = store.Symbol
type CallEdge = store.CallEdge
type ImportUsage = store.ImportUsage
type FileIndexEntry = store.FileIndexEntry
type QualitySnapshot = store.QualitySnapshot
type Violation = analyzer.Violation
