// Package lang is the grammar registry: it maps a file extension onto a
// tree-sitter grammar and the analyzers that apply to files of that kind.
package lang

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/jward/reviewgate/internal/analyzer"
)

// Family groups languages that share extraction patterns and analyzers.
type Family string

const (
	FamilyECMAScript Family = "ecmascript"
	FamilyGo         Family = "go"
	FamilyPython     Family = "python"
)

// Language is one resolved registry entry. Analyzers are fresh instances.
type Language struct {
	Name      string // canonical name stored with extracted facts
	Family    Family
	Grammar   *sitter.Language
	Analyzers []analyzer.Analyzer
}

type entry struct {
	name   string
	family Family
}

// extToLanguage maps extensions without the dot to canonical names.
var extToLanguage = map[string]entry{
	"ts":  {"typescript", FamilyECMAScript},
	"tsx": {"tsx", FamilyECMAScript},
	"js":  {"javascript", FamilyECMAScript},
	"jsx": {"javascript", FamilyECMAScript},
	"go":  {"go", FamilyGo},
	"py":  {"python", FamilyPython},
}

// Grammars are created lazily on first use.
var (
	langToGrammar map[string]*sitter.Language
	grammarsOnce  sync.Once
)

func initGrammars() {
	grammarsOnce.Do(func() {
		langToGrammar = map[string]*sitter.Language{
			"typescript": ts.GetLanguage(),
			"tsx":        tsx.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"go":         golang.GetLanguage(),
			"python":     python.GetLanguage(),
		}
	})
}

// Resolve returns the registry entry for ext, given with or without the
// leading dot. Unknown extensions return (nil, false).
func Resolve(ext string) (*Language, bool) {
	key := strings.ToLower(strings.TrimPrefix(ext, "."))
	e, ok := extToLanguage[key]
	if !ok {
		return nil, false
	}
	initGrammars()
	return &Language{
		Name:      e.name,
		Family:    e.family,
		Grammar:   langToGrammar[e.name],
		Analyzers: analyzersFor(e.family),
	}, true
}

// ForPath resolves by the extension of path.
func ForPath(path string) (*Language, bool) {
	return Resolve(filepath.Ext(path))
}

// Extensions lists the supported extensions with a leading dot, sorted.
func Extensions() []string {
	out := make([]string, 0, len(extToLanguage))
	for ext := range extToLanguage {
		out = append(out, "."+ext)
	}
	sort.Strings(out)
	return out
}

// FamilyOf returns the family of a canonical language name.
func FamilyOf(name string) (Family, bool) {
	for _, e := range extToLanguage {
		if e.name == name {
			return e.family, true
		}
	}
	return "", false
}

func analyzersFor(f Family) []analyzer.Analyzer {
	switch f {
	case FamilyECMAScript:
		return []analyzer.Analyzer{
			analyzer.NewTSDeadCode(),
			analyzer.NewTSUnusedImports(),
			analyzer.NewTSComplexity(),
		}
	case FamilyGo:
		return []analyzer.Analyzer{
			analyzer.NewGoDeadCode(),
			analyzer.NewGoUnusedImports(),
			analyzer.NewGoComplexity(),
			analyzer.UncheckedError{},
			analyzer.NamingConvention{},
			analyzer.DeferInLoop{},
		}
	case FamilyPython:
		return []analyzer.Analyzer{
			analyzer.NewPythonDeadCode(),
			analyzer.NewPythonUnusedImports(),
			analyzer.NewPythonComplexity(),
		}
	}
	return nil
}
