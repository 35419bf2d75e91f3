// Package rules is the rule engine: declarative framework rules followed
// by the analyzers the grammar registry selects for a file, followed by
// any rule scripts for its language.
package rules

import (
	"context"
	"log"

	"github.com/jward/reviewgate"
	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/lang"
	"github.com/jward/reviewgate/internal/runtime"
	"github.com/jward/reviewgate/internal/store"
	"github.com/jward/reviewgate/internal/syntax"
)

// Engine validates files. It is safe for concurrent use once built.
type Engine struct {
	framework     *FrameworkDefinition
	frameworkFile string
	store         *store.Store
	root          string
	scripts       *runtime.ScriptSet
	thresholds    analyzer.Thresholds
	logger        *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithFrameworkFile loads declarative rules from path. A document that
// cannot be read or parsed is logged and the engine runs without
// declarative rules.
func WithFrameworkFile(path string) Option {
	return func(e *Engine) {
		e.frameworkFile = path
	}
}

// WithFramework sets the declarative rules directly.
func WithFramework(def *FrameworkDefinition) Option {
	return func(e *Engine) {
		e.framework = def
	}
}

// WithStore gives the engine read access to the index for cross-file
// context.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithRoot sets the directory index keys are relative to. Validated paths
// are converted to keys under it before they are compared with the index.
func WithRoot(root string) Option {
	return func(e *Engine) {
		e.root = root
	}
}

// WithScripts adds rule scripts.
func WithScripts(ss *runtime.ScriptSet) Option {
	return func(e *Engine) {
		e.scripts = ss
	}
}

// WithThresholds raises analyzer thresholds. Values below the built-in
// floors are ignored.
func WithThresholds(th analyzer.Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = th
	}
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: log.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.frameworkFile != "" {
		def, err := LoadFramework(e.frameworkFile)
		if err != nil {
			e.logger.Printf("reviewgate: framework rules disabled: %v", err)
		} else {
			e.framework = def
		}
	}
	return e
}

// Framework returns the loaded declarative rules, or nil.
func (e *Engine) Framework() *FrameworkDefinition {
	return e.framework
}

// ValidateFile checks content as the file at path. Files in unsupported
// languages get declarative checks only. A file that fails to parse is
// logged and likewise gets declarative checks only.
func (e *Engine) ValidateFile(ctx context.Context, path string, content []byte) []analyzer.Violation {
	out := e.framework.Check(string(content))

	l, ok := lang.ForPath(path)
	if !ok {
		return out
	}
	tree, err := syntax.Parse(ctx, l.Name, l.Grammar, path, content)
	if err != nil {
		e.logger.Printf("reviewgate: validate %s: %v", path, err)
		return out
	}
	defer tree.Close()

	for _, a := range analyzer.Tune(l.Analyzers, e.thresholds) {
		out = append(out, e.dropCalledElsewhere(path, a.Analyze(ctx, tree))...)
	}
	for _, a := range e.scripts.ForLanguage(l.Name) {
		out = append(out, a.Analyze(ctx, tree)...)
	}
	return out
}

// dropCalledElsewhere removes dead-code findings for symbols the index
// records as called from another file.
func (e *Engine) dropCalledElsewhere(path string, vs []analyzer.Violation) []analyzer.Violation {
	if e.store == nil || len(vs) == 0 {
		return vs
	}
	self := reviewgate.RelPath(path, e.root)
	kept := vs[:0]
	for _, v := range vs {
		if v.RuleName == analyzer.RuleDeadCode && v.Symbol != nil && e.calledFromOtherFile(self, *v.Symbol) {
			continue
		}
		kept = append(kept, v)
	}
	return kept
}

func (e *Engine) calledFromOtherFile(self, name string) bool {
	edges, err := e.store.CallersOf(name)
	if err != nil {
		e.logger.Printf("reviewgate: callers of %s: %v", name, err)
		return false
	}
	for _, edge := range edges {
		if edge.CallerFile != self {
			return true
		}
	}
	return false
}
