// Package syntax is the structural query layer every extractor and analyzer
// is built on. It wraps smacker/go-tree-sitter with parse helpers and a
// tree-pattern query API whose compile failures degrade to "no matches".
package syntax

import (
	"context"
	"log"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Tree is a parsed file. It is read-only after Parse returns and may be
// shared by any number of analyzers.
type Tree struct {
	Root     *sitter.Node
	Source   []byte
	Grammar  *sitter.Language
	Language string // canonical language name, e.g. "go"
	Path     string

	tree *sitter.Tree
}

// Parse parses src with grammar. language is the canonical name used in
// logs and extracted facts; path is informational.
func Parse(ctx context.Context, language string, grammar *sitter.Language, path string, src []byte) (*Tree, error) {
	if grammar == nil {
		return nil, &UnsupportedLanguageError{Language: language}
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, &ParseError{File: path, Message: err.Error()}
	}
	return &Tree{
		Root:     tree.RootNode(),
		Source:   src,
		Grammar:  grammar,
		Language: language,
		Path:     path,
		tree:     tree,
	}, nil
}

// Close releases the underlying tree-sitter tree.
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
	}
}

// Text returns the source text spanned by node.
func (t *Tree) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return node.Content(t.Source)
}

// Row returns the 0-based start row of node.
func Row(node *sitter.Node) int {
	return int(node.StartPoint().Row)
}

// EndRow returns the 0-based end row of node.
func EndRow(node *sitter.Node) int {
	return int(node.EndPoint().Row)
}

// Line returns the 1-based start line of node.
func Line(node *sitter.Node) int {
	return Row(node) + 1
}

// Span returns the number of lines node covers.
func Span(node *sitter.Node) int {
	return EndRow(node) - Row(node) + 1
}

// Logger receives query compile failures. Defaults to log.Default().
var Logger = log.Default()

var loggerMu sync.Mutex

// SetLogger replaces the package logger.
func SetLogger(l *log.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if l == nil {
		l = log.Default()
	}
	Logger = l
}

func logf(format string, args ...any) {
	loggerMu.Lock()
	l := Logger
	loggerMu.Unlock()
	l.Printf(format, args...)
}
