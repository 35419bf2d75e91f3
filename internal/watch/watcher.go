// Package watch keeps the index current by re-indexing files as they change
// on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/reviewgate/internal/walk"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 300 * time.Millisecond

// Indexer is the part of the engine the watcher drives.
type Indexer interface {
	IndexFile(ctx context.Context, path, root string) (bool, error)
	RemoveFile(path, root string) error
}

// Result describes how one changed path was handled.
type Result struct {
	Path    string // relative, slash-separated
	Removed bool
	Indexed bool
	Err     error
}

type Options struct {
	Walk     walk.Options
	Debounce time.Duration
	// DBPath is the index database; its own writes are never reported.
	DBPath string
	Logger *log.Logger
	// OnResult, when set, observes every handled path.
	OnResult func(Result)
}

type Watcher struct {
	rootAbs string
	dbRel   string
	idx     Indexer
	filter  *walk.Filter
	logger  *log.Logger
	onRes   func(Result)

	debouncer *Debouncer
	watcher   *fsnotify.Watcher

	ctxMu     sync.Mutex
	ctx       context.Context
	syncMu    sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

func New(root string, idx Indexer, opts Options) (*Watcher, error) {
	if idx == nil {
		return nil, errors.New("watch: indexer is required")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	rootAbs = filepath.Clean(rootAbs)

	filter, err := walk.NewFilter(rootAbs, opts.Walk)
	if err != nil {
		return nil, fmt.Errorf("watch: load filter: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		rootAbs:   rootAbs,
		idx:       idx,
		filter:    filter,
		logger:    logger,
		onRes:     opts.OnResult,
		debouncer: NewDebouncer(opts.Debounce),
		watcher:   fsw,
		ctx:       context.Background(),
		closed:    make(chan struct{}),
	}
	if opts.DBPath != "" {
		if dbAbs, err := filepath.Abs(opts.DBPath); err == nil {
			if rel, ok := w.toRel(dbAbs); ok {
				w.dbRel = rel
			}
		}
	}
	w.debouncer.OnFire(w.sync)

	if err := w.addDirRecursive(rootAbs); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch: add directories: %w", err)
	}
	return w, nil
}

// Close stops watching. Pending changes are dropped.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.closed) })
	w.debouncer.Stop()
	return w.watcher.Close()
}

// Run processes file system events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	w.ctxMu.Lock()
	w.ctx = ctx
	w.ctxMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.closed:
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	rel, ok := w.toRel(ev.Name)
	if !ok || w.isDBRel(rel) {
		return
	}

	if ev.Op&(fsnotify.Create|fsnotify.Rename) != 0 {
		if st, err := os.Stat(ev.Name); err == nil && st.IsDir() {
			if w.filter.InTree(rel) && w.filter.ShouldInclude(rel, true) {
				if err := w.addDirRecursive(ev.Name); err != nil {
					w.logger.Printf("reviewgate: watch %s: %v", rel, err)
				}
			}
			return
		}
	}

	if !w.filter.InTree(rel) || !w.filter.ShouldInclude(rel, false) {
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.debouncer.Push(rel)
	}
}

// sync re-indexes or removes each settled path. Debouncer fires run on
// their own goroutines, so batches are applied one at a time.
func (w *Watcher) sync(paths []string) {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	w.ctxMu.Lock()
	ctx := w.ctx
	w.ctxMu.Unlock()

	for _, rel := range paths {
		abs := filepath.Join(w.rootAbs, filepath.FromSlash(rel))
		res := Result{Path: rel}
		if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			res.Removed = true
			res.Err = w.idx.RemoveFile(abs, w.rootAbs)
		} else {
			res.Indexed, res.Err = w.idx.IndexFile(ctx, abs, w.rootAbs)
		}
		if res.Err != nil {
			w.logger.Printf("reviewgate: watch %s: %v", rel, res.Err)
		}
		if w.onRes != nil {
			w.onRes(res)
		}
	}
}

func (w *Watcher) toRel(abs string) (string, bool) {
	if strings.TrimSpace(abs) == "" {
		return "", false
	}
	rel, err := filepath.Rel(w.rootAbs, filepath.Clean(abs))
	if err != nil {
		return "", false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (w *Watcher) isDBRel(rel string) bool {
	if w.dbRel == "" {
		return false
	}
	switch rel {
	case w.dbRel, w.dbRel + "-wal", w.dbRel + "-shm", w.dbRel + "-journal":
		return true
	default:
		return false
	}
}

func (w *Watcher) addDirRecursive(absDir string) error {
	return filepath.WalkDir(filepath.Clean(absDir), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.rootAbs {
			rel, ok := w.toRel(p)
			if !ok {
				return nil
			}
			if !w.filter.ShouldInclude(rel, true) {
				return filepath.SkipDir
			}
		}
		return w.watcher.Add(p)
	})
}
