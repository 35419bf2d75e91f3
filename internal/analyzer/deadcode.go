package analyzer

import (
	"context"
	"fmt"

	"github.com/jward/reviewgate/internal/syntax"
)

// declPattern captures a declaration as @decl and its name as @name.
type declPattern struct {
	kind    string
	pattern string
}

// DeadCode flags declared functions, methods and classes whose name occurs
// only once in the file.
type DeadCode struct {
	decls []declPattern
	skip  func(name string) bool
}

// NewTSDeadCode returns the TypeScript/JavaScript variant.
func NewTSDeadCode() *DeadCode {
	return &DeadCode{
		decls: []declPattern{
			{"function", "(function_declaration name: (_) @name) @decl"},
			{"function", "(generator_function_declaration name: (_) @name) @decl"},
			{"class", "(class_declaration name: (_) @name) @decl"},
			{"method", "(method_definition name: (_) @name) @decl"},
		},
		skip: func(name string) bool { return name == "constructor" },
	}
}

// NewGoDeadCode returns the Go variant. init, main and exported identifiers
// are never candidates.
func NewGoDeadCode() *DeadCode {
	return &DeadCode{
		decls: []declPattern{
			{"function", "(function_declaration name: (identifier) @name) @decl"},
			{"method", "(method_declaration name: (field_identifier) @name) @decl"},
			{"type", "(type_spec name: (type_identifier) @name) @decl"},
		},
		skip: func(name string) bool {
			return name == "init" || name == "main" || name == "_" || isExported(name)
		},
	}
}

// NewPythonDeadCode returns the Python variant. Dunder methods and main are
// never candidates.
func NewPythonDeadCode() *DeadCode {
	return &DeadCode{
		decls: []declPattern{
			{"function", "(function_definition name: (identifier) @name) @decl"},
			{"class", "(class_definition name: (identifier) @name) @decl"},
		},
		skip: func(name string) bool { return name == "main" || isDunder(name) },
	}
}

func (d *DeadCode) Name() string { return "dead_code" }

func (d *DeadCode) Analyze(_ context.Context, tree *syntax.Tree) []Violation {
	src := string(tree.Source)
	var out []Violation
	for _, dp := range d.decls {
		for _, m := range tree.Matches(nil, dp.pattern) {
			nameNode, decl := m["name"], m["decl"]
			if nameNode == nil || decl == nil {
				continue
			}
			name := tree.Text(nameNode)
			if d.skip != nil && d.skip(name) {
				continue
			}
			if !OccursOnce(src, name) {
				continue
			}
			out = append(out, violation(RuleDeadCode, LevelWarning, syntax.Line(decl), name,
				fmt.Sprintf("%s '%s' is declared but never used", dp.kind, name)))
		}
	}
	return out
}
