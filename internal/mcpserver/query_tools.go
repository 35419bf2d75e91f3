package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jward/reviewgate"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func writeSymbols(b *strings.Builder, syms []*reviewgate.Symbol) {
	for _, s := range syms {
		fmt.Fprintf(b, "- %s %s (%s) %s:%d-%d\n", s.Kind, s.Name, s.Language, s.FilePath, s.LineStart+1, s.LineEnd+1)
	}
}

// FindSymbolTool handles find_symbol.
type FindSymbolTool struct {
	q *reviewgate.QueryBuilder
}

// NewFindSymbolTool creates a FindSymbolTool.
func NewFindSymbolTool(q *reviewgate.QueryBuilder) *FindSymbolTool {
	return &FindSymbolTool{q: q}
}

func (t *FindSymbolTool) Definition() mcp.Tool {
	return mcp.NewTool("find_symbol",
		mcp.WithDescription("Find every indexed declaration with an exact name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Symbol name, case-sensitive")),
	)
}

func (t *FindSymbolTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	syms, err := t.q.FindSymbol(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("find symbol failed: %v", err)), nil
	}
	if len(syms) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No symbol named %q is indexed.", name)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d declarations of %s:\n", len(syms), name)
	writeSymbols(&b, syms)
	return mcp.NewToolResultText(b.String()), nil
}

// FileSymbolsTool handles file_symbols.
type FileSymbolsTool struct {
	q *reviewgate.QueryBuilder
}

// NewFileSymbolsTool creates a FileSymbolsTool.
func NewFileSymbolsTool(q *reviewgate.QueryBuilder) *FileSymbolsTool {
	return &FileSymbolsTool{q: q}
}

func (t *FileSymbolsTool) Definition() mcp.Tool {
	return mcp.NewTool("file_symbols",
		mcp.WithDescription("List the declarations indexed for one file in line order."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the project root")),
	)
}

func (t *FileSymbolsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	syms, err := t.q.FileSymbols(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("file symbols failed: %v", err)), nil
	}
	if len(syms) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No symbols indexed for %s.", path)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s declares %d symbols:\n", path, len(syms))
	writeSymbols(&b, syms)
	return mcp.NewToolResultText(b.String()), nil
}

// DeadCodeTool handles dead_code.
type DeadCodeTool struct {
	q *reviewgate.QueryBuilder
}

// NewDeadCodeTool creates a DeadCodeTool.
func NewDeadCodeTool(q *reviewgate.QueryBuilder) *DeadCodeTool {
	return &DeadCodeTool{q: q}
}

func (t *DeadCodeTool) Definition() mcp.Tool {
	return mcp.NewTool("dead_code",
		mcp.WithDescription("List functions and methods that no indexed call refers to by name."),
		mcp.WithString("path", mcp.Description("Restrict to one file; omit for the whole project")),
	)
}

func (t *DeadCodeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	syms, err := t.q.DeadCode(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("dead code failed: %v", err)), nil
	}
	if len(syms) == 0 {
		return mcp.NewToolResultText("No uncalled functions found."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d uncalled functions:\n", len(syms))
	writeSymbols(&b, syms)
	return mcp.NewToolResultText(b.String()), nil
}

// CallersTool handles callers.
type CallersTool struct {
	q *reviewgate.QueryBuilder
}

// NewCallersTool creates a CallersTool.
func NewCallersTool(q *reviewgate.QueryBuilder) *CallersTool {
	return &CallersTool{q: q}
}

func (t *CallersTool) Definition() mcp.Tool {
	return mcp.NewTool("callers",
		mcp.WithDescription("List the call sites whose callee has the given name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Callee name")),
	)
}

func (t *CallersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}
	edges, err := t.q.Callers(name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("callers failed: %v", err)), nil
	}
	if len(edges) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No calls to %s are indexed.", name)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d calls to %s:\n", len(edges), name)
	for _, e := range edges {
		fmt.Fprintf(&b, "- %s:%d\n", e.CallerFile, e.LineNumber+1)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// UnusedImportsTool handles unused_imports.
type UnusedImportsTool struct {
	q *reviewgate.QueryBuilder
}

// NewUnusedImportsTool creates an UnusedImportsTool.
func NewUnusedImportsTool(q *reviewgate.QueryBuilder) *UnusedImportsTool {
	return &UnusedImportsTool{q: q}
}

func (t *UnusedImportsTool) Definition() mcp.Tool {
	return mcp.NewTool("unused_imports",
		mcp.WithDescription("List the imports of a file not yet marked as used."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the project root")),
	)
}

func (t *UnusedImportsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	imps, err := t.q.UnusedImports(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unused imports failed: %v", err)), nil
	}
	if len(imps) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No unused imports recorded for %s.", path)), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s has %d unused imports:\n", path, len(imps))
	for _, imp := range imps {
		fmt.Fprintf(&b, "- %s\n", imp.ImportName)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// MarkUsedTool handles mark_import_used.
type MarkUsedTool struct {
	q *reviewgate.QueryBuilder
}

// NewMarkUsedTool creates a MarkUsedTool.
func NewMarkUsedTool(q *reviewgate.QueryBuilder) *MarkUsedTool {
	return &MarkUsedTool{q: q}
}

func (t *MarkUsedTool) Definition() mcp.Tool {
	return mcp.NewTool("mark_import_used",
		mcp.WithDescription("Record that an import of a file is used. Reindexing the file resets the mark."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the project root")),
		mcp.WithString("import", mcp.Required(), mcp.Description("Bound import name")),
	)
}

func (t *MarkUsedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	name := req.GetString("import", "")
	if path == "" || name == "" {
		return mcp.NewToolResultError("'path' and 'import' are required"), nil
	}
	n, err := t.q.MarkAsUsed(path, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("mark used failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Marked %d import rows of %s in %s as used.", n, name, path)), nil
}

// HistoryTool handles history.
type HistoryTool struct {
	q *reviewgate.QueryBuilder
}

// NewHistoryTool creates a HistoryTool.
func NewHistoryTool(q *reviewgate.QueryBuilder) *HistoryTool {
	return &HistoryTool{q: q}
}

func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("history",
		mcp.WithDescription("Show recorded quality snapshots for a file, most recent first, with the trend across them."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path relative to the project root")),
		mcp.WithNumber("limit", mcp.Description("Max snapshots (default: 10)")),
	)
}

func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	limit := intArg(req, "limit", 10)
	snaps, err := t.q.History(path, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history failed: %v", err)), nil
	}
	if len(snaps) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No quality history recorded for %s.", path)), nil
	}
	trend, err := t.q.Trend(path, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trend failed: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d snapshots for %s (%s, violations %+d):\n", len(snaps), path, trend.Direction, trend.ViolationsCount)
	for _, s := range snaps {
		fmt.Fprintf(&b, "- %s violations=%d dead=%d unused_imports=%d complexity=%.1f tests_passing=%t\n",
			s.Timestamp.UTC().Format("2006-01-02 15:04:05"), s.ViolationsCount, s.DeadFunctions,
			s.UnusedImports, s.ComplexityScore, s.TestsPassing)
	}
	return mcp.NewToolResultText(b.String()), nil
}
