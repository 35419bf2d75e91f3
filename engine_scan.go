package reviewgate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/reviewgate/internal/lang"
)

// FileError records one file that failed to index.
type FileError struct {
	Path string
	Err  error
}

func (fe FileError) Error() string {
	return fmt.Sprintf("%s: %v", fe.Path, fe.Err)
}

func (fe FileError) Unwrap() error { return fe.Err }

// ScanReport summarizes an IndexProject run.
type ScanReport struct {
	Root       string
	Considered int // files passing the extension allow-list
	Indexed    int
	Unchanged  int
	Failed     []FileError
	Duration   time.Duration
}

// normalizeExts turns an allow-list into a lookup set of lower-case,
// dot-prefixed extensions. An empty list allows every supported extension.
func normalizeExts(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = lang.Extensions()
	}
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return set
}

// IndexProject indexes paths, the file list supplied by the walker, under
// root. Only files whose extension is in allowedExts are considered.
//
// Files are parsed in parallel. A failing file is logged and recorded in
// the report and never stops the others; the returned error is reserved
// for failures affecting the whole scan, such as an invalid root or a
// cancelled context.
func (e *Engine) IndexProject(ctx context.Context, root string, paths []string, allowedExts []string) (*ScanReport, error) {
	start := time.Now()
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reviewgate: scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("reviewgate: scan root %s is not a directory", root)
	}

	allowed := normalizeExts(allowedExts)
	report := &ScanReport{Root: root}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)

	for _, path := range paths {
		if !allowed[strings.ToLower(filepath.Ext(path))] {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		report.Considered++
		g.Go(func() error {
			indexed, err := e.IndexFile(gctx, path, root)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				e.logger.Printf("reviewgate: index %s: %v", path, err)
				report.Failed = append(report.Failed, FileError{Path: path, Err: err})
			case indexed:
				report.Indexed++
			default:
				report.Unchanged++
			}
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("reviewgate: scan cancelled: %w", err)
	}
	return report, nil
}

// Scan is a project scan running in the background.
type Scan struct {
	done   chan struct{}
	report *ScanReport
	err    error
}

// StartScan runs IndexProject on its own goroutine. Other Engine and store
// operations may proceed meanwhile; they serialize through the store lock.
func (e *Engine) StartScan(ctx context.Context, root string, paths []string, allowedExts []string) *Scan {
	s := &Scan{done: make(chan struct{})}
	go func() {
		defer close(s.done)
		s.report, s.err = e.IndexProject(ctx, root, paths, allowedExts)
	}()
	return s
}

// Done is closed when the scan finishes.
func (s *Scan) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the scan finishes and returns its outcome.
func (s *Scan) Wait() (*ScanReport, error) {
	<-s.done
	return s.report, s.err
}
