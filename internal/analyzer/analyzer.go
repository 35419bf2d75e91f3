// Package analyzer holds the per-language static checks dispatched by the
// rule engine. Every analyzer is stateless and works on an already-parsed
// syntax.Tree, so analyzers for one file can run in any order.
package analyzer

import (
	"context"

	"github.com/jward/reviewgate/internal/syntax"
)

// Level is the severity of a violation.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// ParseLevel maps a document level string onto a Level. Unknown values
// become LevelWarning.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelError, "Error", "ERROR":
		return LevelError
	case LevelInfo, "Info", "INFO":
		return LevelInfo
	default:
		return LevelWarning
	}
}

// Rule names emitted by the built-in analyzers.
const (
	RuleDeadCode         = "DEAD_CODE"
	RuleUnusedImport     = "UNUSED_IMPORT"
	RuleHighComplexity   = "HIGH_COMPLEXITY"
	RuleFunctionTooLong  = "FUNCTION_TOO_LONG"
	RuleUncheckedError   = "UNCHECKED_ERROR"
	RuleNamingConvention = "NAMING_CONVENTION"
	RuleDeferInLoop      = "DEFER_IN_LOOP"
)

// Violation is one finding. Line, Symbol and Value are always serialized,
// as null when absent, because downstream filters key on their presence.
type Violation struct {
	RuleName string  `json:"rule_name"`
	Message  string  `json:"message"`
	Level    Level   `json:"level"`
	Line     *int    `json:"line"`
	Symbol   *string `json:"symbol"`
	Value    *int    `json:"value"`
}

// Analyzer is a single static check.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, tree *syntax.Tree) []Violation
}

// Thresholds are externally configured limits. A zero field keeps the
// analyzer's floor.
type Thresholds struct {
	Complexity     int
	FunctionLength int
}

// Tunable analyzers accept configured thresholds. Implementations never go
// below their built-in floors.
type Tunable interface {
	WithThresholds(th Thresholds) Analyzer
}

// Tune applies th to every Tunable analyzer in as, returning a new slice.
func Tune(as []Analyzer, th Thresholds) []Analyzer {
	out := make([]Analyzer, len(as))
	for i, a := range as {
		if t, ok := a.(Tunable); ok {
			out[i] = t.WithThresholds(th)
			continue
		}
		out[i] = a
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func violation(rule string, level Level, line int, symbol, msg string) Violation {
	v := Violation{RuleName: rule, Message: msg, Level: level, Line: ptr(line)}
	if symbol != "" {
		v.Symbol = ptr(symbol)
	}
	return v
}
