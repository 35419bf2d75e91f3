package runtime

import (
	"context"
	"fmt"
	"log"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/store"
	"github.com/jward/reviewgate/internal/syntax"
)

// reporter collects the violations one script run reports.
type reporter struct {
	defaultRule string
	violations  []analyzer.Violation
}

func nodeArg(fn string, arg object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// makeQueryFn creates the "query" host function.
//
// query(pattern[, node]) → [{capture: Node}]
//
// Without node the whole file is searched.
func makeQueryFn(tree *syntax.Tree) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 1 || len(args) > 2 {
			return object.Errorf("query: expected 1 or 2 arguments, got %d", len(args))
		}
		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}
		var node *sitter.Node
		if len(args) == 2 && args[1] != object.Nil {
			n, errObj := nodeArg("query", args[1])
			if errObj != nil {
				return errObj
			}
			node = n
		}
		if _, err := syntax.Compile(tree.Grammar, pattern.Value()); err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}

		results := []object.Object{}
		for _, m := range tree.Matches(node, pattern.Value()) {
			matchMap := make(map[string]object.Object, len(m))
			for name, n := range m {
				p, err := object.NewProxy(n)
				if err != nil {
					return object.Errorf("query: proxy error for capture %q: %v", name, err)
				}
				matchMap[name] = p
			}
			results = append(results, object.NewMap(matchMap))
		}
		return object.NewList(results)
	})
}

// makeNodeTextFn creates the "node_text" host function.
//
// node_text(node) → string
func makeNodeTextFn(tree *syntax.Tree) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewString(tree.Text(node))
	})
}

// makeNodeLineFn creates "node_line", the 1-based start line of a node.
//
// node_line(node) → int
func makeNodeLineFn() *object.Builtin {
	return object.NewBuiltin("node_line", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_line", 1, len(args))
		}
		node, errObj := nodeArg("node_line", args[0])
		if errObj != nil {
			return errObj
		}
		return object.NewInt(int64(syntax.Line(node)))
	})
}

// makeNodeChildFn creates "node_child", a ChildByFieldName wrapper that
// returns Risor nil instead of a proxied Go nil pointer.
//
// node_child(node, fieldName) → Node or nil
func makeNodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		field, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("node_child: field must be a string, got %s", args[1].Type())
		}
		child := node.ChildByFieldName(field.Value())
		if child == nil {
			return object.Nil
		}
		p, err := object.NewProxy(child)
		if err != nil {
			return object.Errorf("node_child: proxy error: %v", err)
		}
		return p
	})
}

// makeReportFn creates the "report" host function.
//
// report(rule, message[, level[, line[, symbol]]])
//
// An empty rule uses the script name. line may be an int or a Node.
func makeReportFn(rep *reporter) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 2 || len(args) > 5 {
			return object.Errorf("report: expected 2 to 5 arguments, got %d", len(args))
		}
		rule, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("report: rule must be a string, got %s", args[0].Type())
		}
		msg, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("report: message must be a string, got %s", args[1].Type())
		}

		v := analyzer.Violation{
			RuleName: rule.Value(),
			Message:  msg.Value(),
			Level:    analyzer.LevelWarning,
		}
		if v.RuleName == "" {
			v.RuleName = rep.defaultRule
		}
		if len(args) > 2 {
			level, ok := args[2].(*object.String)
			if !ok {
				return object.Errorf("report: level must be a string, got %s", args[2].Type())
			}
			v.Level = analyzer.ParseLevel(level.Value())
		}
		if len(args) > 3 && args[3] != object.Nil {
			line, err := lineArg(args[3])
			if err != nil {
				return object.Errorf("report: %v", err)
			}
			v.Line = &line
		}
		if len(args) > 4 && args[4] != object.Nil {
			sym, ok := args[4].(*object.String)
			if !ok {
				return object.Errorf("report: symbol must be a string, got %s", args[4].Type())
			}
			s := sym.Value()
			v.Symbol = &s
		}
		rep.violations = append(rep.violations, v)
		return object.Nil
	})
}

func lineArg(arg object.Object) (int, error) {
	switch v := arg.(type) {
	case *object.Int:
		return int(v.Value()), nil
	case *object.Proxy:
		node, ok := v.Interface().(*sitter.Node)
		if !ok {
			return 0, fmt.Errorf("line must be an int or Node, got %T", v.Interface())
		}
		return syntax.Line(node), nil
	}
	return 0, fmt.Errorf("line must be an int or Node, got %s", arg.Type())
}

// makeSymbolsByNameFn creates "symbols_by_name", a lookup over every
// indexed file.
//
// symbols_by_name(name) → [{name, kind, file_path, line, language}]
func makeSymbolsByNameFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("symbols_by_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_name", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("symbols_by_name: expected string, got %s", args[0].Type())
		}
		syms, err := s.SymbolsByName(name.Value())
		if err != nil {
			return object.Errorf("symbols_by_name: %v", err)
		}
		out := make([]object.Object, 0, len(syms))
		for _, sym := range syms {
			out = append(out, object.NewMap(map[string]object.Object{
				"name":      object.NewString(sym.Name),
				"kind":      object.NewString(sym.Kind),
				"file_path": object.NewString(sym.FilePath),
				"line":      object.NewInt(int64(sym.LineStart + 1)),
				"language":  object.NewString(sym.Language),
			}))
		}
		return object.NewList(out)
	})
}

// makeCallersFn creates "callers".
//
// callers(name) → [{file_path, line}]
func makeCallersFn(s *store.Store) *object.Builtin {
	return object.NewBuiltin("callers", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("callers", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("callers: expected string, got %s", args[0].Type())
		}
		edges, err := s.CallersOf(name.Value())
		if err != nil {
			return object.Errorf("callers: %v", err)
		}
		out := make([]object.Object, 0, len(edges))
		for _, e := range edges {
			out = append(out, object.NewMap(map[string]object.Object{
				"file_path": object.NewString(e.CallerFile),
				"line":      object.NewInt(int64(e.LineNumber + 1)),
			}))
		}
		return object.NewList(out)
	})
}

// logObject provides log.Info/Warn/Error methods for scripts.
type logObject struct {
	logger *log.Logger
	script string
}

func (l *logObject) Info(msg string) {
	l.logger.Printf("reviewgate: script %s: %s", l.script, msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Printf("reviewgate: script %s: warning: %s", l.script, msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Printf("reviewgate: script %s: error: %s", l.script, msg)
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
