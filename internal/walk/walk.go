// Package walk lists the source files of a project for indexing, honoring
// .gitignore, hidden entries, dependency directories and exclude patterns.
package walk

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

type Options struct {
	// Extensions is the allow-list, with or without leading dots. Empty
	// allows every file.
	Extensions []string
	// Exclude holds gitignore-style patterns relative to the root.
	Exclude []string
	// ScanAll disables .gitignore, hidden-entry and dependency-directory
	// filtering. Exclude still applies.
	ScanAll bool
}

// ListFiles walks root and returns the absolute paths of the files passing
// opts, sorted.
func ListFiles(root string, opts Options) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	f, err := NewFilter(absRoot, opts)
	if err != nil {
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == absRoot {
			return nil
		}
		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !f.ShouldInclude(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if f.ShouldInclude(rel, false) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isDefaultSkippedDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", "dist", "build", "target", "__pycache__":
		return true
	default:
		return false
	}
}

func extensionSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		return nil
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

// Filter decides inclusion for single paths, for callers that see paths
// one at a time such as the file watcher.
type Filter struct {
	opts    Options
	ig      *ignoreMatcher
	exclude *Patterns
	exts    map[string]bool
}

func NewFilter(root string, opts Options) (*Filter, error) {
	ig, err := loadIgnoreMatcher(root, opts.ScanAll)
	if err != nil {
		return nil, err
	}
	return &Filter{
		opts:    opts,
		ig:      ig,
		exclude: NewPatterns(opts.Exclude),
		exts:    extensionSet(opts.Extensions),
	}, nil
}

// ShouldInclude reports whether rel, relative to the filter's root, passes.
// For directories it reports whether the walk should descend.
func (f *Filter) ShouldInclude(rel string, isDir bool) bool {
	if f == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	name := path.Base(rel)

	if isDir {
		if !f.opts.ScanAll && (isHidden(name) || isDefaultSkippedDir(name)) {
			return false
		}
		if !f.opts.ScanAll && f.ig.isIgnored(rel, true) {
			return false
		}
		return !f.exclude.Match(rel, true)
	}

	if !f.opts.ScanAll && isHidden(name) {
		return false
	}
	if !f.opts.ScanAll && f.ig.isIgnored(rel, false) {
		return false
	}
	if f.exts != nil && !f.exts[strings.ToLower(path.Ext(name))] {
		return false
	}
	return !f.exclude.Match(rel, false)
}

// InTree reports whether every directory above rel would be descended into.
// The watcher uses it for paths it learns about without walking.
func (f *Filter) InTree(rel string) bool {
	rel = filepath.ToSlash(rel)
	dir := path.Dir(rel)
	if dir == "." {
		return true
	}
	parts := strings.Split(dir, "/")
	for i := range parts {
		if !f.ShouldInclude(strings.Join(parts[:i+1], "/"), true) {
			return false
		}
	}
	return true
}
