package analyzer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/reviewgate/internal/syntax"
)

// Binding is a name an import statement brings into scope, with the node
// that introduces it.
type Binding struct {
	Name string
	Node *sitter.Node
}

// UnusedImports flags imported names that occur only once in the file (at
// the import itself).
type UnusedImports struct {
	bindings func(tree *syntax.Tree) []Binding
}

// NewTSUnusedImports returns the TypeScript/JavaScript variant.
func NewTSUnusedImports() *UnusedImports {
	return &UnusedImports{bindings: TSImportBindings}
}

// NewGoUnusedImports returns the Go variant.
func NewGoUnusedImports() *UnusedImports {
	return &UnusedImports{bindings: GoImportBindings}
}

// NewPythonUnusedImports returns the Python variant.
func NewPythonUnusedImports() *UnusedImports {
	return &UnusedImports{bindings: PythonImportBindings}
}

func (u *UnusedImports) Name() string { return "unused_imports" }

func (u *UnusedImports) Analyze(_ context.Context, tree *syntax.Tree) []Violation {
	src := string(tree.Source)
	var out []Violation
	for _, b := range u.bindings(tree) {
		if !OccursOnce(src, b.Name) {
			continue
		}
		out = append(out, violation(RuleUnusedImport, LevelWarning, syntax.Line(b.Node), b.Name,
			fmt.Sprintf("import '%s' is never used", b.Name)))
	}
	return out
}

// TSImportBindings returns the local names bound by import specifiers,
// default import clauses and namespace imports.
func TSImportBindings(tree *syntax.Tree) []Binding {
	var out []Binding
	for _, m := range tree.Matches(nil, "(import_specifier) @spec") {
		spec := m["spec"]
		n := spec.ChildByFieldName("alias")
		if n == nil {
			n = spec.ChildByFieldName("name")
		}
		if n != nil {
			out = append(out, Binding{Name: tree.Text(n), Node: spec})
		}
	}
	for _, m := range tree.MatchesAny(nil,
		"(import_clause (identifier) @name)",
		"(namespace_import (identifier) @name)",
	) {
		out = append(out, Binding{Name: tree.Text(m["name"]), Node: m["name"]})
	}
	return out
}

var goMajorVersion = regexp.MustCompile(`^v[0-9]+$`)

// GoImportBindings returns the package names bound by import specs. Blank
// and dot imports bind nothing checkable and are skipped.
func GoImportBindings(tree *syntax.Tree) []Binding {
	var out []Binding
	for _, m := range tree.Matches(nil, "(import_spec) @spec") {
		spec := m["spec"]
		if alias := spec.ChildByFieldName("name"); alias != nil {
			name := tree.Text(alias)
			if name == "_" || name == "." {
				continue
			}
			out = append(out, Binding{Name: name, Node: spec})
			continue
		}
		path := spec.ChildByFieldName("path")
		if path == nil {
			continue
		}
		if name := GoPackageName(tree.Text(path)); name != "" {
			out = append(out, Binding{Name: name, Node: spec})
		}
	}
	return out
}

var goIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// GoPackageName guesses the package name of a quoted import path from its
// last element, skipping major-version suffixes and a "go-" prefix or "-go"
// suffix. It returns "" when the guess is not an identifier, since the real
// name cannot be known without the package source.
func GoPackageName(quoted string) string {
	p := strings.Trim(quoted, "\"`")
	parts := strings.Split(p, "/")
	last := parts[len(parts)-1]
	if goMajorVersion.MatchString(last) && len(parts) > 1 {
		last = parts[len(parts)-2]
	}
	if i := strings.Index(last, ".v"); i > 0 {
		last = last[:i]
	}
	last = strings.TrimPrefix(last, "go-")
	last = strings.TrimSuffix(last, "-go")
	if !goIdent.MatchString(last) {
		return ""
	}
	return last
}

// PythonImportBindings returns the names bound by import statements. For
// "import a.b" the bound name is "a"; for "from m import x as y" it is "y",
// never the module.
func PythonImportBindings(tree *syntax.Tree) []Binding {
	var out []Binding
	for _, m := range tree.MatchesAny(nil,
		"(import_statement name: (dotted_name) @module)",
		"(import_statement name: (aliased_import alias: (identifier) @alias))",
		"(import_from_statement name: (dotted_name) @symbol)",
		"(import_from_statement name: (aliased_import alias: (identifier) @alias))",
	) {
		switch {
		case m["module"] != nil:
			name, _, _ := strings.Cut(tree.Text(m["module"]), ".")
			out = append(out, Binding{Name: name, Node: m["module"]})
		case m["alias"] != nil:
			out = append(out, Binding{Name: tree.Text(m["alias"]), Node: m["alias"]})
		case m["symbol"] != nil:
			out = append(out, Binding{Name: tree.Text(m["symbol"]), Node: m["symbol"]})
		}
	}
	return out
}
