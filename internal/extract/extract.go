// Package extract turns a parsed file into index facts: symbol
// declarations, call sites and import bindings.
package extract

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/lang"
	"github.com/jward/reviewgate/internal/store"
	"github.com/jward/reviewgate/internal/syntax"
)

// patternSet holds one family's queries. Symbol patterns label captures
// "<kind>.name" and "<kind>.def"; call patterns capture "callee".
type patternSet struct {
	symbols []string
	calls   []string
	imports func(*syntax.Tree) []analyzer.Binding
	// refine adjusts the kind of a declaration, e.g. functions nested in a
	// class body become methods.
	refine func(kind string, def *sitter.Node) string
	// functions are the node types whose bodies hold locals. Variables
	// declared inside one are not symbols.
	functions map[string]bool
}

var ecmaScript = patternSet{
	symbols: []string{
		"(function_declaration name: (identifier) @function.name) @function.def",
		"(generator_function_declaration name: (identifier) @function.name) @function.def",
		"(class_declaration name: (_) @class.name) @class.def",
		"(method_definition name: (_) @method.name) @method.def",
		"(variable_declarator name: (identifier) @variable.name) @variable.def",
	},
	calls: []string{
		"(call_expression function: (identifier) @callee)",
		"(call_expression function: (member_expression property: (property_identifier) @callee))",
	},
	imports:   analyzer.TSImportBindings,
	functions: ecmaFunctions,
}

var ecmaFunctions = nodeTypes(
	"function_declaration", "generator_function_declaration", "function_expression",
	"function", "generator_function", "arrow_function", "method_definition",
)

var goLang = patternSet{
	symbols: []string{
		"(function_declaration name: (identifier) @function.name) @function.def",
		"(method_declaration name: (field_identifier) @method.name) @method.def",
		"(type_spec name: (type_identifier) @class.name) @class.def",
		"(var_spec name: (identifier) @variable.name) @variable.def",
		"(const_spec name: (identifier) @variable.name) @variable.def",
	},
	calls: []string{
		"(call_expression function: (identifier) @callee)",
		"(call_expression function: (selector_expression field: (field_identifier) @callee))",
	},
	imports:   analyzer.GoImportBindings,
	functions: nodeTypes("function_declaration", "method_declaration", "func_literal"),
}

var pythonLang = patternSet{
	symbols: []string{
		"(function_definition name: (identifier) @function.name) @function.def",
		"(class_definition name: (identifier) @class.name) @class.def",
		"(module (expression_statement (assignment left: (identifier) @variable.name)) @variable.def)",
	},
	calls: []string{
		"(call function: (identifier) @callee)",
		"(call function: (attribute attribute: (identifier) @callee))",
	},
	imports:   analyzer.PythonImportBindings,
	refine:    pythonMethod,
	functions: nodeTypes("function_definition", "lambda"),
}

func nodeTypes(types ...string) map[string]bool {
	out := make(map[string]bool, len(types))
	for _, t := range types {
		out[t] = true
	}
	return out
}

// insideFunction reports whether n has an ancestor of one of the types.
func insideFunction(n *sitter.Node, types map[string]bool) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if types[p.Type()] {
			return true
		}
	}
	return false
}

// pythonMethod reports functions defined directly in a class body as
// methods, looking through decorators.
func pythonMethod(kind string, def *sitter.Node) string {
	if kind != store.KindFunction {
		return kind
	}
	p := def.Parent()
	if p != nil && p.Type() == "decorated_definition" {
		p = p.Parent()
	}
	if p != nil && p.Type() == "block" {
		if gp := p.Parent(); gp != nil && gp.Type() == "class_definition" {
			return store.KindMethod
		}
	}
	return kind
}

func patternsFor(language string) (patternSet, bool) {
	f, ok := lang.FamilyOf(language)
	if !ok {
		return patternSet{}, false
	}
	switch f {
	case lang.FamilyECMAScript:
		return ecmaScript, true
	case lang.FamilyGo:
		return goLang, true
	case lang.FamilyPython:
		return pythonLang, true
	}
	return patternSet{}, false
}

// Extract runs the symbol, call and import passes over tree and writes the
// resulting facts to sink. Lines are 0-based rows. Calls carry an unknown
// caller and imports an unknown source.
func Extract(tree *syntax.Tree, filePath string, sink store.Sink) error {
	ps, ok := patternsFor(tree.Language)
	if !ok {
		return &syntax.UnsupportedLanguageError{Language: tree.Language}
	}
	if err := extractSymbols(tree, filePath, ps, sink); err != nil {
		return fmt.Errorf("extracting symbols: %w", err)
	}
	if err := extractCalls(tree, filePath, ps, sink); err != nil {
		return fmt.Errorf("extracting calls: %w", err)
	}
	if err := extractImports(tree, filePath, ps, sink); err != nil {
		return fmt.Errorf("extracting imports: %w", err)
	}
	return nil
}

func extractSymbols(tree *syntax.Tree, filePath string, ps patternSet, sink store.Sink) error {
	for _, m := range tree.MatchesAny(nil, ps.symbols...) {
		kind, nameNode := labelled(m)
		if nameNode == nil {
			continue
		}
		def := m[kind+".def"]
		if def == nil {
			def = nameNode
		}
		if kind == store.KindVariable && insideFunction(def, ps.functions) {
			continue
		}
		if ps.refine != nil {
			kind = ps.refine(kind, def)
		}
		sym := &store.Symbol{
			Name:      tree.Text(nameNode),
			Kind:      kind,
			FilePath:  filePath,
			LineStart: syntax.Row(def),
			LineEnd:   syntax.EndRow(def),
			Language:  tree.Language,
		}
		if err := sink.InsertSymbol(sym); err != nil {
			return err
		}
	}
	return nil
}

// labelled finds the "<kind>.name" capture of a symbol match.
func labelled(m syntax.Match) (string, *sitter.Node) {
	for label, n := range m {
		if kind, ok := strings.CutSuffix(label, ".name"); ok {
			return kind, n
		}
	}
	return "", nil
}

func extractCalls(tree *syntax.Tree, filePath string, ps patternSet, sink store.Sink) error {
	for _, m := range tree.MatchesAny(nil, ps.calls...) {
		callee := m["callee"]
		if callee == nil {
			continue
		}
		edge := &store.CallEdge{
			CallerFile:   filePath,
			CallerSymbol: store.Unresolved,
			CalleeSymbol: tree.Text(callee),
			LineNumber:   syntax.Row(callee),
		}
		if err := sink.InsertCallEdge(edge); err != nil {
			return err
		}
	}
	return nil
}

func extractImports(tree *syntax.Tree, filePath string, ps patternSet, sink store.Sink) error {
	for _, b := range ps.imports(tree) {
		imp := &store.ImportUsage{
			FilePath:   filePath,
			ImportName: b.Name,
			ImportSrc:  store.Unresolved,
		}
		if err := sink.InsertImport(imp); err != nil {
			return err
		}
	}
	return nil
}
