package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// insertTestSymbol inserts a symbol with minimal required fields.
func insertTestSymbol(t *testing.T, s *Store, filePath, name, kind string) *Symbol {
	t.Helper()
	sym := &Symbol{Name: name, Kind: kind, FilePath: filePath, LineStart: 0, LineEnd: 9, Language: "go"}
	require.NoError(t, s.InsertSymbol(sym))
	require.Positive(t, sym.ID)
	return sym
}

func insertTestCall(t *testing.T, s *Store, filePath, callee string, line int) {
	t.Helper()
	require.NoError(t, s.InsertCallEdge(&CallEdge{CallerFile: filePath, CalleeSymbol: callee, LineNumber: line}))
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"symbols", "call_graph", "import_usage", "file_index", "quality_history"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_IndexesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, idx := range []string{"idx_symbols_file", "idx_call_graph_callee", "idx_import_usage_file"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "index.db")

	s, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.UpsertFileEntry("main.go", "abc", time.Now()))
	require.NoError(t, s.Close())

	s, err = Open(dbPath)
	require.NoError(t, err)
	defer s.Close()
	populated, err := s.IsPopulated()
	require.NoError(t, err)
	assert.True(t, populated)
}

func TestOpen_InvalidPath(t *testing.T) {
	t.Parallel()
	// A regular file cannot serve as a parent directory.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	s, err := Open(blocker)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(filepath.Join(blocker, "index.db"))
	require.Error(t, err)
}

// =============================================================================
// File index
// =============================================================================

func TestIsPopulated_EmptyStore(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	populated, err := s.IsPopulated()
	require.NoError(t, err)
	assert.False(t, populated)
}

func TestFileHash_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	_, ok, err := s.FileHash("main.go")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.UpsertFileEntry("main.go", "h1", time.Now()))
	require.NoError(t, s.UpsertFileEntry("main.go", "h2", time.Now()))

	hash, ok, err := s.FileHash("main.go")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "h2", hash)

	entries, err := s.FileEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1, "file_path is the dedup key")
}

func TestFileEntry_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	e, err := s.FileEntry("missing.go")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestContentHash_Deterministic(t *testing.T) {
	t.Parallel()
	a := ContentHash([]byte("package main"))
	assert.Equal(t, a, ContentHash([]byte("package main")))
	assert.NotEqual(t, a, ContentHash([]byte("package main\n")))
	assert.Len(t, a, 64)
}

// =============================================================================
// Facts
// =============================================================================

func TestDeleteFileFacts_OnlyTouchesThatFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestSymbol(t, s, "a.go", "A", KindFunction)
	insertTestSymbol(t, s, "b.go", "B", KindFunction)
	insertTestCall(t, s, "a.go", "B", 3)
	require.NoError(t, s.InsertImport(&ImportUsage{FilePath: "a.go", ImportName: "fmt"}))
	require.NoError(t, s.UpsertFileEntry("a.go", "h", time.Now()))

	require.NoError(t, s.DeleteFileFacts("a.go"))

	syms, calls, imps, err := s.Counts("a.go")
	require.NoError(t, err)
	assert.Zero(t, syms)
	assert.Zero(t, calls)
	assert.Zero(t, imps)

	syms, _, _, err = s.Counts("b.go")
	require.NoError(t, err)
	assert.Equal(t, 1, syms)

	_, ok, err := s.FileHash("a.go")
	require.NoError(t, err)
	assert.True(t, ok, "DeleteFileFacts keeps the file entry")
}

func TestDeleteFile_RemovesEntry(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestSymbol(t, s, "a.go", "A", KindFunction)
	require.NoError(t, s.UpsertFileEntry("a.go", "h", time.Now()))

	require.NoError(t, s.DeleteFile("a.go"))

	_, ok, err := s.FileHash("a.go")
	require.NoError(t, err)
	assert.False(t, ok)
	syms, err := s.SymbolsByFile("a.go")
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestInsertDefaults_Unresolved(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestCall(t, s, "a.go", "helper", 1)
	require.NoError(t, s.InsertImport(&ImportUsage{FilePath: "a.go", ImportName: "os"}))

	edges, err := s.CallEdgesByFile("a.go")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, Unresolved, edges[0].CallerSymbol)

	imps, err := s.ImportsByFile("a.go")
	require.NoError(t, err)
	require.Len(t, imps, 1)
	assert.Equal(t, Unresolved, imps[0].ImportSrc)
	assert.False(t, imps[0].IsUsed)
}

func TestSymbolsByName_AcrossFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestSymbol(t, s, "a.go", "Run", KindFunction)
	insertTestSymbol(t, s, "b.go", "Run", KindMethod)
	insertTestSymbol(t, s, "b.go", "Stop", KindMethod)

	syms, err := s.SymbolsByName("Run")
	require.NoError(t, err)
	require.Len(t, syms, 2)
	assert.Equal(t, "a.go", syms[0].FilePath)
	assert.Equal(t, "b.go", syms[1].FilePath)
	assert.Equal(t, "go", syms[0].Language)
}

func TestDeadCode_UsesCallGraphAcrossFiles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestSymbol(t, s, "a.go", "used", KindFunction)
	insertTestSymbol(t, s, "a.go", "unused", KindFunction)
	insertTestSymbol(t, s, "a.go", "Config", KindClass)
	insertTestSymbol(t, s, "b.go", "orphan", KindMethod)
	insertTestCall(t, s, "b.go", "used", 7)

	dead, err := s.DeadCode("")
	require.NoError(t, err)
	var names []string
	for _, d := range dead {
		names = append(names, d.Name)
	}
	assert.ElementsMatch(t, []string{"unused", "orphan"}, names, "classes are never dead-code candidates")

	dead, err = s.DeadCode("a.go")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, "unused", dead[0].Name)
}

func TestCallersOf(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	insertTestCall(t, s, "a.go", "target", 4)
	insertTestCall(t, s, "b.go", "target", 1)
	insertTestCall(t, s, "b.go", "other", 2)

	edges, err := s.CallersOf("target")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "a.go", edges[0].CallerFile)
	assert.Equal(t, 4, edges[0].LineNumber)
}

func TestImports_MarkUsedAndUnused(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.InsertImport(&ImportUsage{FilePath: "a.ts", ImportName: "useState"}))
	require.NoError(t, s.InsertImport(&ImportUsage{FilePath: "a.ts", ImportName: "useEffect"}))
	require.NoError(t, s.InsertImport(&ImportUsage{FilePath: "b.ts", ImportName: "lodash"}))

	n, err := s.MarkImportUsed("a.ts", "useState")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unused, err := s.UnusedImports("a.ts")
	require.NoError(t, err)
	require.Len(t, unused, 1)
	assert.Equal(t, "useEffect", unused[0].ImportName)

	all, err := s.UnusedImports("")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// =============================================================================
// Quality history
// =============================================================================

func TestHistory_MostRecentFirst(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		require.NoError(t, s.RecordSnapshot(&QualitySnapshot{
			Timestamp:       base.Add(time.Duration(i) * time.Hour),
			FilePath:        "main.go",
			ViolationsCount: i,
			ComplexityScore: float64(i) * 1.5,
			TestsPassing:    i%2 == 0,
		}))
	}
	require.NoError(t, s.RecordSnapshot(&QualitySnapshot{Timestamp: base, FilePath: "other.go"}))

	hist, err := s.History("main.go", 0)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, 2, hist[0].ViolationsCount)
	assert.Equal(t, 0, hist[2].ViolationsCount)
	assert.InDelta(t, 3.0, hist[0].ComplexityScore, 0.001)
	assert.True(t, hist[0].TestsPassing)

	limited, err := s.History("main.go", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	all, err := s.History("", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRecordSnapshot_DefaultsTimestamp(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	snap := &QualitySnapshot{FilePath: "main.go"}
	require.NoError(t, s.RecordSnapshot(snap))
	assert.False(t, snap.Timestamp.IsZero())
	assert.Positive(t, snap.ID)
}

// =============================================================================
// Locking
// =============================================================================

func TestStore_ConcurrentAccessSerializes(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("f%d.go", i)
			for j := range 10 {
				assert.NoError(t, s.InsertSymbol(&Symbol{Name: fmt.Sprintf("fn%d", j), Kind: KindFunction, FilePath: path}))
				_, err := s.SymbolsByFile(path)
				assert.NoError(t, err)
			}
			assert.NoError(t, s.DeleteFileFacts(path))
		}(i)
	}
	wg.Wait()

	var total int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&total))
	assert.Zero(t, total)
}
