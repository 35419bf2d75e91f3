package syntax

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Match is one query match: capture name to captured node. When a capture
// name occurs more than once in a match, the last node wins.
type Match map[string]*sitter.Node

// Capture is a single labelled node from a query.
type Capture struct {
	Name string
	Node *sitter.Node
}

type queryKey struct {
	grammar *sitter.Language
	pattern string
}

type compiled struct {
	q   *sitter.Query
	err error
}

// queryCache holds compiled queries and compile failures. Queries are
// immutable after compilation, so one instance serves every cursor.
var queryCache sync.Map // queryKey -> *compiled

// Compile compiles pattern for grammar, caching the result. A failure is
// logged the first time it is seen.
func Compile(grammar *sitter.Language, pattern string) (*sitter.Query, error) {
	key := queryKey{grammar: grammar, pattern: pattern}
	if v, ok := queryCache.Load(key); ok {
		c := v.(*compiled)
		return c.q, c.err
	}
	q, err := sitter.NewQuery([]byte(pattern), grammar)
	c := &compiled{q: q, err: err}
	if actual, loaded := queryCache.LoadOrStore(key, c); loaded {
		if q != nil {
			q.Close()
		}
		c = actual.(*compiled)
		return c.q, c.err
	}
	if err != nil {
		logf("reviewgate: query compile failed, continuing with no matches: %v: %s", err, pattern)
	}
	return c.q, c.err
}

// Compiles reports whether pattern compiles for grammar.
func Compiles(grammar *sitter.Language, pattern string) bool {
	_, err := Compile(grammar, pattern)
	return err == nil
}

// Matches runs pattern against the subtree rooted at node. A pattern that
// does not compile yields no matches.
func (t *Tree) Matches(node *sitter.Node, pattern string) []Match {
	q, err := Compile(t.Grammar, pattern)
	if err != nil {
		return nil
	}
	return t.run(q, node)
}

func (t *Tree) run(q *sitter.Query, node *sitter.Node) []Match {
	if node == nil {
		node = t.Root
	}
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, node)

	var out []Match
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, t.Source)
		if len(m.Captures) == 0 {
			continue
		}
		match := make(Match, len(m.Captures))
		for _, c := range m.Captures {
			match[q.CaptureNameForId(c.Index)] = c.Node
		}
		out = append(out, match)
	}
	return out
}

// Captures flattens the matches of pattern into labelled nodes in match
// order.
func (t *Tree) Captures(node *sitter.Node, pattern string) []Capture {
	q, err := Compile(t.Grammar, pattern)
	if err != nil {
		return nil
	}
	if node == nil {
		node = t.Root
	}
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, node)

	var out []Capture
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, t.Source)
		for _, c := range m.Captures {
			out = append(out, Capture{Name: q.CaptureNameForId(c.Index), Node: c.Node})
		}
	}
	return out
}

// MatchesAny runs every pattern independently and concatenates the results,
// so one pattern that fails to compile never hides the others.
func (t *Tree) MatchesAny(node *sitter.Node, patterns ...string) []Match {
	var out []Match
	for _, p := range patterns {
		out = append(out, t.Matches(node, p)...)
	}
	return out
}

// FirstCompiling runs the first of patterns that compiles for this tree's
// grammar. Later patterns are progressively reduced fallbacks.
func (t *Tree) FirstCompiling(node *sitter.Node, patterns ...string) []Match {
	for _, p := range patterns {
		q, err := Compile(t.Grammar, p)
		if err != nil {
			continue
		}
		return t.run(q, node)
	}
	return nil
}

// Walk visits node and all of its named descendants depth-first. Returning
// false from fn skips the children of the current node.
func Walk(node *sitter.Node, fn func(n *sitter.Node) bool) {
	if node == nil || !fn(node) {
		return
	}
	count := int(node.NamedChildCount())
	for i := 0; i < count; i++ {
		Walk(node.NamedChild(i), fn)
	}
}
