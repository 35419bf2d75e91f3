package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/reviewgate/internal/syntax"
)

func parse(t *testing.T, language string, grammar *sitter.Language, src string) *syntax.Tree {
	t.Helper()
	tree, err := syntax.Parse(context.Background(), language, grammar, "fixture", []byte(src))
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

func parseGo(t *testing.T, src string) *syntax.Tree {
	return parse(t, "go", golang.GetLanguage(), src)
}

func parsePython(t *testing.T, src string) *syntax.Tree {
	return parse(t, "python", python.GetLanguage(), src)
}

func parseTS(t *testing.T, src string) *syntax.Tree {
	return parse(t, "typescript", typescript.GetLanguage(), src)
}

func byRule(vs []Violation, rule string) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.RuleName == rule {
			out = append(out, v)
		}
	}
	return out
}

func symbols(vs []Violation) []string {
	var out []string
	for _, v := range vs {
		if v.Symbol != nil {
			out = append(out, *v.Symbol)
		}
	}
	return out
}

// goFuncWithIfs builds a Go function containing n if statements.
func goFuncWithIfs(n int) string {
	var b strings.Builder
	b.WriteString("package main\n\nfunc branchy(x int) int {\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "\tif x == %d {\n\t\treturn %d\n\t}\n", i, i)
	}
	b.WriteString("\treturn -1\n}\n")
	return b.String()
}

// tsFuncWithIfs builds a TypeScript function containing n if statements.
func tsFuncWithIfs(n int) string {
	var b strings.Builder
	b.WriteString("function branchy(x: number): number {\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "  if (x === %d) { return %d; }\n", i, i)
	}
	b.WriteString("  return -1;\n}\n")
	return b.String()
}

// =============================================================================
// Occurs-once heuristic
// =============================================================================

func TestOccurrences_RawText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, Occurrences("abc", ""))
	assert.Equal(t, 1, Occurrences("func helper() {}", "helper"))
	// Substrings and comments count too.
	assert.Equal(t, 2, Occurrences("used, unused", "used"))
	assert.Equal(t, 2, Occurrences("x := 1 // x", "x"))
	assert.True(t, OccursOnce("import os\n", "os"))
	assert.False(t, OccursOnce("import os\nos.getcwd()\n", "os"))
}

// =============================================================================
// Dead code
// =============================================================================

func TestDeadCode_Go(t *testing.T) {
	t.Parallel()
	tree := parseGo(t, `package main

import "fmt"

func unusedHelper() string {
	return "x"
}

func ExportedFunc() {}

func init() {}

func main() {
	fmt.Println("hi")
}
`)
	vs := NewGoDeadCode().Analyze(context.Background(), tree)
	require.Len(t, vs, 1)
	v := vs[0]
	assert.Equal(t, RuleDeadCode, v.RuleName)
	assert.Equal(t, LevelWarning, v.Level)
	require.NotNil(t, v.Symbol)
	assert.Equal(t, "unusedHelper", *v.Symbol)
	require.NotNil(t, v.Line)
	assert.Equal(t, 5, *v.Line)
	assert.Nil(t, v.Value)
}

func TestDeadCode_Python(t *testing.T) {
	t.Parallel()
	tree := parsePython(t, `class Widget:
    def __init__(self):
        self.n = 0

    def spin(self):
        return self.n


def main():
    return 1


def lonely():
    return 2
`)
	vs := NewPythonDeadCode().Analyze(context.Background(), tree)
	assert.ElementsMatch(t, []string{"Widget", "spin", "lonely"}, symbols(vs))
}

func TestDeadCode_TypeScript(t *testing.T) {
	t.Parallel()
	tree := parseTS(t, `function helper(): number { return 1; }
export function run(): number { return helper(); }
function orphan(): void {}
class Box {
  constructor() {}
}
`)
	vs := NewTSDeadCode().Analyze(context.Background(), tree)
	assert.ElementsMatch(t, []string{"run", "orphan", "Box"}, symbols(vs))
}

// =============================================================================
// Unused imports
// =============================================================================

func TestUnusedImports_PythonFromImportChecksBoundName(t *testing.T) {
	t.Parallel()
	tree := parsePython(t, `from os import path

print(path.join("a", "b"))
`)
	assert.Empty(t, NewPythonUnusedImports().Analyze(context.Background(), tree))
}

func TestUnusedImports_PythonPlainImport(t *testing.T) {
	t.Parallel()
	tree := parsePython(t, `import os

print("hi")
`)
	vs := NewPythonUnusedImports().Analyze(context.Background(), tree)
	require.Len(t, vs, 1)
	assert.Equal(t, RuleUnusedImport, vs[0].RuleName)
	assert.Equal(t, "os", *vs[0].Symbol)
	assert.Equal(t, 1, *vs[0].Line)
}

func TestUnusedImports_PythonAlias(t *testing.T) {
	t.Parallel()
	tree := parsePython(t, `import numpy as np
from collections import OrderedDict as OD

x = OD()
`)
	vs := NewPythonUnusedImports().Analyze(context.Background(), tree)
	assert.Equal(t, []string{"np"}, symbols(vs))
}

func TestUnusedImports_Go(t *testing.T) {
	t.Parallel()
	tree := parseGo(t, `package main

import (
	"fmt"
	"strings"
	yml "gopkg.in/yaml.v3"
	_ "embed"
	"github.com/acme/widget/v2"
)

func main() {
	fmt.Println(widget.New())
}
`)
	vs := NewGoUnusedImports().Analyze(context.Background(), tree)
	assert.ElementsMatch(t, []string{"strings", "yml"}, symbols(vs))
}

func TestGoPackageName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		`"fmt"`:                               "fmt",
		`"net/http"`:                          "http",
		`"gopkg.in/yaml.v3"`:                  "yaml",
		`"github.com/acme/widget/v2"`:         "widget",
		`"github.com/mark3labs/mcp-go"`:       "mcp",
		`"github.com/mattn/go-sqlite3"`:       "sqlite3",
		`"github.com/smacker/go-tree-sitter"`: "",
	}
	for in, want := range cases {
		assert.Equal(t, want, GoPackageName(in), in)
	}
}

func TestUnusedImports_GoUnguessableName(t *testing.T) {
	t.Parallel()
	tree := parseGo(t, `package main

import (
	"github.com/mark3labs/mcp-go"
	"github.com/smacker/go-tree-sitter"
)

var lang *sitter.Language
`)
	vs := NewGoUnusedImports().Analyze(context.Background(), tree)
	assert.Equal(t, []string{"mcp"}, symbols(vs))
}

func TestUnusedImports_TypeScript(t *testing.T) {
	t.Parallel()
	tree := parseTS(t, `import { used, unused } from "./lib";
import Default from "./d";
import * as nsAll from "./namespace";

used();
`)
	vs := NewTSUnusedImports().Analyze(context.Background(), tree)
	assert.ElementsMatch(t, []string{"unused", "Default", "nsAll"}, symbols(vs))
}

// =============================================================================
// Complexity and length
// =============================================================================

func TestComplexity_GoBoundary(t *testing.T) {
	t.Parallel()
	ten := parseGo(t, goFuncWithIfs(10))
	assert.Empty(t, byRule(NewGoComplexity().Analyze(context.Background(), ten), RuleHighComplexity))

	eleven := parseGo(t, goFuncWithIfs(11))
	vs := byRule(NewGoComplexity().Analyze(context.Background(), eleven), RuleHighComplexity)
	require.Len(t, vs, 1)
	assert.Equal(t, LevelError, vs[0].Level)
	assert.Equal(t, "branchy", *vs[0].Symbol)
	require.NotNil(t, vs[0].Value)
	assert.Equal(t, 12, *vs[0].Value)
}

func TestComplexity_GoLogicalOperators(t *testing.T) {
	t.Parallel()
	src := "package main\n\nfunc cond(a, b bool) bool {\n"
	for i := 0; i < 6; i++ {
		src += "\tif a && b || a {\n\t\treturn true\n\t}\n"
	}
	src += "\treturn false\n}\n"
	vs := byRule(NewGoComplexity().Analyze(context.Background(), parseGo(t, src)), RuleHighComplexity)
	require.Len(t, vs, 1)
	// 6 ifs + 6 && + 6 || = 18 branches.
	assert.Equal(t, 19, *vs[0].Value)
}

func TestComplexity_FunctionLength(t *testing.T) {
	t.Parallel()
	src := "package main\n\nfunc long() {\n" + strings.Repeat("\tprintln()\n", 60) + "}\n"
	vs := byRule(NewGoComplexity().Analyze(context.Background(), parseGo(t, src)), RuleFunctionTooLong)
	require.Len(t, vs, 1)
	assert.Equal(t, LevelWarning, vs[0].Level)
	assert.Equal(t, 62, *vs[0].Value)
	assert.Equal(t, 3, *vs[0].Line)
}

func TestComplexity_PythonFloors(t *testing.T) {
	t.Parallel()
	src := "def branchy(x):\n"
	for i := 0; i < 6; i++ {
		src += fmt.Sprintf("    if x == %d:\n        return %d\n", i, i)
	}
	src += "    return -1\n"
	vs := NewPythonComplexity().Analyze(context.Background(), parsePython(t, src))

	hc := byRule(vs, RuleHighComplexity)
	require.Len(t, hc, 1)
	assert.Equal(t, 7, *hc[0].Value)

	long := byRule(vs, RuleFunctionTooLong)
	require.Len(t, long, 1)
	assert.Equal(t, 14, *long[0].Value)
}

func TestComplexity_PythonMatchArms(t *testing.T) {
	t.Parallel()
	arms := func(n int) string {
		src := "def pick(x):\n    match x:\n"
		for i := 0; i < n; i++ {
			src += fmt.Sprintf("        case %d:\n            return %d\n", i, i)
		}
		return src
	}
	five := NewPythonComplexity().Analyze(context.Background(), parsePython(t, arms(5)))
	assert.Empty(t, byRule(five, RuleHighComplexity))

	six := byRule(NewPythonComplexity().Analyze(context.Background(), parsePython(t, arms(6))), RuleHighComplexity)
	require.Len(t, six, 1)
	assert.Equal(t, "pick", *six[0].Symbol)
	assert.Equal(t, 7, *six[0].Value)
}

func TestComplexity_TypeScriptBoundary(t *testing.T) {
	t.Parallel()
	ten := parseTS(t, tsFuncWithIfs(10))
	assert.Empty(t, byRule(NewTSComplexity().Analyze(context.Background(), ten), RuleHighComplexity))

	eleven := parseTS(t, tsFuncWithIfs(11))
	vs := byRule(NewTSComplexity().Analyze(context.Background(), eleven), RuleHighComplexity)
	require.Len(t, vs, 1)
	assert.Equal(t, LevelError, vs[0].Level)
	assert.Equal(t, "branchy", *vs[0].Symbol)
	require.NotNil(t, vs[0].Value)
	assert.Equal(t, 12, *vs[0].Value)
	assert.Equal(t, 1, *vs[0].Line)
}

func TestComplexity_TypeScriptTernaries(t *testing.T) {
	t.Parallel()
	src := "function pick(x: number): number {\n  let s = 0;\n"
	for i := 0; i < 11; i++ {
		src += fmt.Sprintf("  s += x === %d ? 1 : 0;\n", i)
	}
	src += "  return s;\n}\n"
	vs := byRule(NewTSComplexity().Analyze(context.Background(), parseTS(t, src)), RuleHighComplexity)
	require.Len(t, vs, 1)
	assert.Equal(t, 12, *vs[0].Value)
}

func TestComplexity_TypeScriptLogicalOperators(t *testing.T) {
	t.Parallel()
	src := "function cond(a: boolean, b: boolean): boolean {\n"
	for i := 0; i < 6; i++ {
		src += "  if (a && b || a) { return true; }\n"
	}
	src += "  return false;\n}\n"
	vs := byRule(NewTSComplexity().Analyze(context.Background(), parseTS(t, src)), RuleHighComplexity)
	require.Len(t, vs, 1)
	// 6 ifs + 6 && + 6 || = 18 branches.
	assert.Equal(t, 19, *vs[0].Value)
}

func TestComplexity_FallbackQuery(t *testing.T) {
	t.Parallel()
	p := tsProfile
	p.branches = "(no_such_node) @branch"
	c := newComplexity(p)

	// Ternaries are only in the primary query, so the fallback ignores them.
	src := "function pick(x: number): number {\n  let s = 0;\n"
	for i := 0; i < 11; i++ {
		src += fmt.Sprintf("  s += x === %d ? 1 : 0;\n", i)
	}
	src += "  return s;\n}\n"
	assert.Empty(t, byRule(c.Analyze(context.Background(), parseTS(t, src)), RuleHighComplexity))

	vs := byRule(c.Analyze(context.Background(), parseTS(t, tsFuncWithIfs(11))), RuleHighComplexity)
	require.Len(t, vs, 1)
	assert.Equal(t, 12, *vs[0].Value)
}

func TestComplexity_TypeScriptArrowNamedFromDeclarator(t *testing.T) {
	t.Parallel()
	src := "const decide = (x: number): number => {\n"
	for i := 0; i < 11; i++ {
		src += fmt.Sprintf("  if (x === %d) { return %d; }\n", i, i)
	}
	src += "  return -1;\n};\n"
	vs := byRule(NewTSComplexity().Analyze(context.Background(), parseTS(t, src)), RuleHighComplexity)
	require.Len(t, vs, 1)
	assert.Equal(t, "decide", *vs[0].Symbol)
	assert.Equal(t, 12, *vs[0].Value)
}

func TestComplexity_ThresholdsOnlyRaise(t *testing.T) {
	t.Parallel()
	lowered := NewGoComplexity().WithThresholds(Thresholds{Complexity: 3, FunctionLength: 100}).(*Complexity)
	c, l := lowered.Limits()
	assert.Equal(t, 10, c)
	assert.Equal(t, 100, l)

	py := NewPythonComplexity().WithThresholds(Thresholds{}).(*Complexity)
	c, l = py.Limits()
	assert.Equal(t, 5, c)
	assert.Equal(t, 10, l)

	raised := NewGoComplexity().WithThresholds(Thresholds{Complexity: 20})
	assert.Empty(t, byRule(raised.Analyze(context.Background(), parseGo(t, goFuncWithIfs(15))), RuleHighComplexity))
}

func TestTune_LeavesOtherAnalyzers(t *testing.T) {
	t.Parallel()
	in := []Analyzer{NewGoDeadCode(), NewGoComplexity()}
	out := Tune(in, Thresholds{Complexity: 30})
	require.Len(t, out, 2)
	assert.Same(t, in[0], out[0])
	c, _ := out[1].(*Complexity).Limits()
	assert.Equal(t, 30, c)
	c, _ = in[1].(*Complexity).Limits()
	assert.Equal(t, 10, c, "original untouched")
}

// =============================================================================
// Go-specific analyzers
// =============================================================================

func TestUncheckedError(t *testing.T) {
	t.Parallel()
	tree := parseGo(t, `package main

import "os"

func main() {
	_, _ = os.Open("a")
	f, err := os.Open("b")
	if err != nil {
		return
	}
	_ = f
	_ = os.Remove("c")
}
`)
	vs := UncheckedError{}.Analyze(context.Background(), tree)
	require.Len(t, vs, 2)
	assert.Equal(t, RuleUncheckedError, vs[0].RuleName)
	assert.Equal(t, 6, *vs[0].Line)
	assert.Equal(t, "os.Open", *vs[0].Symbol)
	assert.Equal(t, 12, *vs[1].Line)
}

func TestNamingConvention(t *testing.T) {
	t.Parallel()
	tree := parseGo(t, `package main

const MAX_SIZE = 10
const maxSize = 5
const X = 1

const (
	DefaultPort = 80
	HTTP_PORT   = 8080
)
`)
	vs := NamingConvention{}.Analyze(context.Background(), tree)
	assert.ElementsMatch(t, []string{"MAX_SIZE", "HTTP_PORT"}, symbols(vs))
	for _, v := range vs {
		assert.Equal(t, LevelInfo, v.Level)
	}
}

func TestDeferInLoop_OnePerLoop(t *testing.T) {
	t.Parallel()
	tree := parseGo(t, `package main

func cleanup() {}

func main() {
	for i := 0; i < 3; i++ {
		defer cleanup()
		defer cleanup()
	}
	for {
		if true {
			defer cleanup()
		}
		break
	}
	defer cleanup()
}
`)
	vs := DeferInLoop{}.Analyze(context.Background(), tree)
	require.Len(t, vs, 2)
	assert.Equal(t, 6, *vs[0].Line)
	assert.Equal(t, 10, *vs[1].Line)
	assert.Nil(t, vs[0].Symbol)
}

// =============================================================================
// Output contract
// =============================================================================

func TestViolation_JSONFieldsAlwaysPresent(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(Violation{RuleName: "X", Message: "m", Level: LevelInfo})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, k := range []string{"rule_name", "message", "level", "line", "symbol", "value"} {
		assert.Contains(t, m, k)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelWarning, ParseLevel("warning"))
	assert.Equal(t, LevelWarning, ParseLevel("bogus"))
}
