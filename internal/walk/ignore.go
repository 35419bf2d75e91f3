package walk

import (
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

type ignoreMatcher struct {
	matcher gitignore.Matcher
}

// loadIgnoreMatcher reads .gitignore files below root, nested ones
// included.
func loadIgnoreMatcher(root string, scanAll bool) (*ignoreMatcher, error) {
	if scanAll {
		return &ignoreMatcher{matcher: nil}, nil
	}

	fs := osfs.New(root)
	patterns, err := gitignore.ReadPatterns(fs, nil)
	if err != nil {
		return nil, err
	}
	return &ignoreMatcher{matcher: gitignore.NewMatcher(patterns)}, nil
}

func (m *ignoreMatcher) isIgnored(relPath string, isDir bool) bool {
	if m == nil || m.matcher == nil {
		return false
	}
	segments := splitPath(relPath)
	if segments == nil {
		return false
	}
	return m.matcher.Match(segments, isDir)
}

func splitPath(relPath string) []string {
	relPath = strings.Trim(relPath, "/")
	if relPath == "" || relPath == "." {
		return nil
	}
	return strings.Split(relPath, "/")
}

// Patterns is a set of gitignore-style patterns, used for configured
// excludes and ignore paths.
type Patterns struct {
	matcher gitignore.Matcher
}

// NewPatterns compiles patterns. Blank entries and comments are skipped.
func NewPatterns(patterns []string) *Patterns {
	var ps []gitignore.Pattern
	for _, p := range patterns {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		ps = append(ps, gitignore.ParsePattern(p, nil))
	}
	if len(ps) == 0 {
		return &Patterns{}
	}
	return &Patterns{matcher: gitignore.NewMatcher(ps)}
}

// Match reports whether rel, a slash-separated relative path, matches. A
// file also matches when one of its parent directories does.
func (p *Patterns) Match(rel string, isDir bool) bool {
	if p == nil || p.matcher == nil {
		return false
	}
	segments := splitPath(rel)
	if segments == nil {
		return false
	}
	for i := 1; i < len(segments); i++ {
		if p.matcher.Match(segments[:i], true) {
			return true
		}
	}
	return p.matcher.Match(segments, isDir)
}
