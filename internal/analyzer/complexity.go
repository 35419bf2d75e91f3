package analyzer

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/reviewgate/internal/syntax"
)

// complexityProfile describes how one language expresses functions and
// branches.
type complexityProfile struct {
	// functions each capture a function node as @fn.
	functions []string
	// branches is the full branch query; fallback drops the constructs a
	// grammar version may lack.
	branches string
	fallback string
	// floors
	complexity int
	length     int
}

func branchQuery(kinds []string, extra ...string) string {
	parts := make([]string, 0, len(kinds)+len(extra))
	for _, k := range kinds {
		parts = append(parts, "("+k+") @branch")
	}
	parts = append(parts, extra...)
	return strings.Join(parts, "\n")
}

var (
	tsBranchKinds = []string{
		"if_statement", "for_statement", "for_in_statement", "while_statement",
		"do_statement", "switch_case", "catch_clause",
	}
	tsProfile = complexityProfile{
		functions: []string{
			"(function_declaration) @fn",
			"(generator_function_declaration) @fn",
			"(method_definition) @fn",
			"(arrow_function) @fn",
			"(function_expression) @fn",
		},
		branches: branchQuery(tsBranchKinds,
			"(ternary_expression) @branch",
			`(binary_expression operator: "&&") @branch`,
			`(binary_expression operator: "||") @branch`,
		),
		fallback:   branchQuery(tsBranchKinds),
		complexity: 10,
		length:     50,
	}

	goBranchKinds = []string{
		"if_statement", "for_statement", "expression_case", "type_case",
		"communication_case",
	}
	goProfile = complexityProfile{
		functions: []string{
			"(function_declaration) @fn",
			"(method_declaration) @fn",
			"(func_literal) @fn",
		},
		branches: branchQuery(goBranchKinds,
			`(binary_expression operator: "&&") @branch`,
			`(binary_expression operator: "||") @branch`,
		),
		fallback:   branchQuery(goBranchKinds),
		complexity: 10,
		length:     50,
	}

	pyBranchKinds = []string{
		"if_statement", "elif_clause", "for_statement", "while_statement",
		"except_clause", "with_statement", "case_clause",
	}
	pyProfile = complexityProfile{
		functions: []string{"(function_definition) @fn"},
		branches: branchQuery(pyBranchKinds,
			"(boolean_operator) @branch",
			"(conditional_expression) @branch",
		),
		fallback:   branchQuery(pyBranchKinds, "(boolean_operator) @branch"),
		complexity: 5,
		length:     10,
	}
)

// Complexity reports HIGH_COMPLEXITY and FUNCTION_TOO_LONG per function.
type Complexity struct {
	profile    complexityProfile
	complexity int
	length     int
}

func newComplexity(p complexityProfile) *Complexity {
	return &Complexity{profile: p, complexity: p.complexity, length: p.length}
}

// NewTSComplexity returns the TypeScript/JavaScript variant.
func NewTSComplexity() *Complexity { return newComplexity(tsProfile) }

// NewGoComplexity returns the Go variant.
func NewGoComplexity() *Complexity { return newComplexity(goProfile) }

// NewPythonComplexity returns the Python variant with its lower floors.
func NewPythonComplexity() *Complexity { return newComplexity(pyProfile) }

func (c *Complexity) Name() string { return "complexity" }

// Limits returns the effective complexity and length thresholds.
func (c *Complexity) Limits() (complexity, length int) {
	return c.complexity, c.length
}

// WithThresholds returns a copy whose thresholds are raised to th where th
// exceeds the floors. Lower values are ignored.
func (c *Complexity) WithThresholds(th Thresholds) Analyzer {
	out := *c
	out.complexity = max(c.profile.complexity, th.Complexity)
	out.length = max(c.profile.length, th.FunctionLength)
	return &out
}

func (c *Complexity) Analyze(_ context.Context, tree *syntax.Tree) []Violation {
	var out []Violation
	for _, m := range tree.MatchesAny(nil, c.profile.functions...) {
		fn := m["fn"]
		if fn == nil {
			continue
		}
		name := functionName(tree, fn)
		line := syntax.Line(fn)

		branches := len(tree.FirstCompiling(fn, c.profile.branches, c.profile.fallback))
		if branches > c.complexity {
			score := branches + 1
			v := violation(RuleHighComplexity, LevelError, line, name,
				fmt.Sprintf("function '%s' has cyclomatic complexity %d (threshold %d)", name, score, c.complexity))
			v.Value = ptr(score)
			out = append(out, v)
		}

		if span := syntax.Span(fn); span > c.length {
			v := violation(RuleFunctionTooLong, LevelWarning, line, name,
				fmt.Sprintf("function '%s' is %d lines long (threshold %d)", name, span, c.length))
			v.Value = ptr(span)
			out = append(out, v)
		}
	}
	return out
}

// functionName names fn from its name field or, for anonymous functions
// bound to a variable, from the declarator.
func functionName(tree *syntax.Tree, fn *sitter.Node) string {
	if n := fn.ChildByFieldName("name"); n != nil {
		return tree.Text(n)
	}
	if p := fn.Parent(); p != nil {
		switch p.Type() {
		case "variable_declarator", "pair", "assignment_expression", "public_field_definition":
			for _, field := range []string{"name", "key", "left"} {
				if n := p.ChildByFieldName(field); n != nil {
					return tree.Text(n)
				}
			}
		}
	}
	return "<anonymous>"
}
