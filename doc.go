// Package reviewgate is the code intelligence core of a commit-gating review
// tool. It keeps an incremental, multi-language index of symbols, call sites
// and import bindings built from tree-sitter syntax trees, and runs a
// pluggable static-analysis rule engine over those trees.
//
// # Pipeline
//
//  1. Index: for each source file, hash its content, skip it when unchanged,
//     otherwise drop its stale facts, parse it, extract symbols, calls and
//     imports into an in-memory batch and commit the batch to SQLite.
//
//  2. Check: the rules package validates a file against declarative
//     framework rules and the analyzers registered for its language.
//
// # Usage
//
//	e, err := reviewgate.New(".reviewgate/index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	report, err := e.IndexProject(ctx, root, paths, nil)
//
//	q := e.Query()
//	dead, err := q.DeadCode("")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.FindSymbol] and [QueryBuilder.FileSymbols]: symbol lookup.
//   - [QueryBuilder.DeadCode]: functions and methods never seen as a callee.
//   - [QueryBuilder.Callers]: call sites of a name.
//   - [QueryBuilder.MarkAsUsed] and [QueryBuilder.UnusedImports]: import usage.
//   - [QueryBuilder.RecordMetrics], [QueryBuilder.History] and
//     [QueryBuilder.Trend]: per-file quality history.
//
// # Concurrency
//
// The index store serializes every operation behind one lock. Parsing and
// extraction hold no lock, so [Engine.IndexProject] parses files in parallel
// and only the delete and commit phases contend.
package reviewgate
