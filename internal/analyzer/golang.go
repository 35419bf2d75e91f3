package analyzer

import (
	"context"
	"fmt"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/reviewgate/internal/syntax"
)

// UncheckedError flags assignments that discard every result of a call with
// the blank identifier, in both := and = form.
type UncheckedError struct{}

func (UncheckedError) Name() string { return "unchecked_error" }

func (UncheckedError) Analyze(_ context.Context, tree *syntax.Tree) []Violation {
	var out []Violation
	for _, m := range tree.MatchesAny(nil,
		"(short_var_declaration left: (expression_list) @lhs right: (expression_list (call_expression function: (_) @callee))) @stmt",
		"(assignment_statement left: (expression_list) @lhs right: (expression_list (call_expression function: (_) @callee))) @stmt",
	) {
		if !allBlank(tree, m["lhs"]) {
			continue
		}
		callee := tree.Text(m["callee"])
		out = append(out, violation(RuleUncheckedError, LevelWarning, syntax.Line(m["stmt"]), callee,
			fmt.Sprintf("result of '%s' discarded with blank identifier; error is not checked", callee)))
	}
	return out
}

func allBlank(tree *syntax.Tree, list *sitter.Node) bool {
	if list == nil || list.NamedChildCount() == 0 {
		return false
	}
	for i := 0; i < int(list.NamedChildCount()); i++ {
		if tree.Text(list.NamedChild(i)) != "_" {
			return false
		}
	}
	return true
}

var allCaps = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)

// NamingConvention flags ALL_CAPS constants; Go constants are MixedCaps.
type NamingConvention struct{}

func (NamingConvention) Name() string { return "naming_convention" }

func (NamingConvention) Analyze(_ context.Context, tree *syntax.Tree) []Violation {
	var out []Violation
	for _, c := range tree.Captures(nil, "(const_spec name: (identifier) @name)") {
		name := tree.Text(c.Node)
		if !allCaps.MatchString(name) {
			continue
		}
		out = append(out, violation(RuleNamingConvention, LevelInfo, syntax.Line(c.Node), name,
			fmt.Sprintf("constant '%s' uses ALL_CAPS; Go constants use MixedCaps", name)))
	}
	return out
}

// DeferInLoop flags for loops whose body contains a defer statement at any
// depth. Each loop is reported once.
type DeferInLoop struct{}

func (DeferInLoop) Name() string { return "defer_in_loop" }

func (DeferInLoop) Analyze(_ context.Context, tree *syntax.Tree) []Violation {
	var out []Violation
	seen := make(map[int]bool)
	for _, m := range tree.Matches(nil, "(for_statement body: (block) @body) @loop") {
		line := syntax.Line(m["loop"])
		if seen[line] {
			continue
		}
		if len(tree.Matches(m["body"], "(defer_statement) @defer")) == 0 {
			continue
		}
		seen[line] = true
		out = append(out, violation(RuleDeferInLoop, LevelWarning, line, "",
			"defer inside loop body runs only when the surrounding function returns"))
	}
	return out
}
