package reviewgate

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/jward/reviewgate/internal/extract"
	"github.com/jward/reviewgate/internal/lang"
	"github.com/jward/reviewgate/internal/store"
	"github.com/jward/reviewgate/internal/syntax"
)

// Engine is the incremental indexer. It owns the index store and turns
// source files into symbol, call and import facts.
type Engine struct {
	store       *store.Store
	parallelism int
	logger      *log.Logger
	paths       pathLocks
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallelism caps how many files IndexProject parses at once. Values
// below 1 keep the default of runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelism = n
		}
	}
}

// WithLogger sets the logger used for per-file failures.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine backed by a SQLite database at dbPath. The parent
// directory is created when missing.
func New(dbPath string, opts ...Option) (*Engine, error) {
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("reviewgate: open store: %w", err)
	}
	e := &Engine{
		store:       s,
		parallelism: goruntime.NumCPU(),
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// IsPopulated reports whether any file has been indexed yet.
func (e *Engine) IsPopulated() (bool, error) {
	return e.store.IsPopulated()
}

// RelPath returns the key under which path is stored: slash-separated and
// relative to root. Paths outside root, or an empty root, keep their own
// form.
func RelPath(path, root string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// IndexFile re-indexes path when its content changed since the last run and
// reports whether it did.
//
// For each file:
//  1. Read the content and hash it.
//  2. Compare with the stored hash; equal means skip with no writes.
//  3. Delete the stale facts. The store lock is released afterwards.
//  4. Parse and extract into a Batch without holding the lock, then commit.
//  5. Upsert the file entry with the new hash.
//
// Files with no registered grammar still get a file entry so that later
// runs skip them cheaply.
//
// Calls for the same key run one at a time; other keys are not blocked.
func (e *Engine) IndexFile(ctx context.Context, path, root string) (bool, error) {
	rel := RelPath(path, root)
	defer e.paths.lock(rel)()

	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)

	stored, ok, err := e.store.FileHash(rel)
	if err != nil {
		return false, fmt.Errorf("lookup hash: %w", err)
	}
	if ok && stored == hash {
		return false, nil
	}

	if err := e.store.DeleteFileFacts(rel); err != nil {
		return false, fmt.Errorf("delete stale facts: %w", err)
	}

	if l, ok := lang.ForPath(path); ok {
		batch, err := e.extractFile(ctx, l, rel, content)
		if err != nil {
			return false, err
		}
		if err := e.store.CommitBatch(rel, batch); err != nil {
			return false, fmt.Errorf("commit facts: %w", err)
		}
	}

	if err := e.store.UpsertFileEntry(rel, hash, time.Now()); err != nil {
		return false, fmt.Errorf("upsert file entry: %w", err)
	}
	return true, nil
}

// extractFile parses content and buffers its facts. No store lock is held.
func (e *Engine) extractFile(ctx context.Context, l *lang.Language, rel string, content []byte) (*store.Batch, error) {
	tree, err := syntax.Parse(ctx, l.Name, l.Grammar, rel, content)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	defer tree.Close()

	batch := store.NewBatch()
	if err := extract.Extract(tree, rel, batch); err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	return batch, nil
}

// RemoveFile drops every fact and the file entry recorded for path.
func (e *Engine) RemoveFile(path, root string) error {
	rel := RelPath(path, root)
	defer e.paths.lock(rel)()

	if err := e.store.DeleteFile(rel); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
