// Package mcpserver exposes the query layer and the rule engine as MCP
// tools so agents can ask about the index and check files.
//
// Each tool follows the same shape: a struct holding its dependencies,
// Definition() returning the mcp.Tool schema and Handle() serving calls.
package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jward/reviewgate"
	"github.com/jward/reviewgate/internal/config"
	"github.com/jward/reviewgate/internal/rules"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the components the tools serve. Rules and Config may be nil:
// without Rules there is no check_file tool, without Config violations
// are reported unfiltered.
type Deps struct {
	Query  *reviewgate.QueryBuilder
	Rules  *rules.Engine
	Config *config.Config
	// Root resolves relative paths given to check_file.
	Root string
}

// Tool is one MCP tool.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New creates the MCP server with every tool registered.
func New(d Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"reviewgate",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, t := range Tools(d) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Tools returns the tools New registers.
func Tools(d Deps) []Tool {
	ts := []Tool{
		NewFindSymbolTool(d.Query),
		NewFileSymbolsTool(d.Query),
		NewDeadCodeTool(d.Query),
		NewCallersTool(d.Query),
		NewUnusedImportsTool(d.Query),
		NewMarkUsedTool(d.Query),
		NewHistoryTool(d.Query),
	}
	if d.Rules != nil {
		ts = append(ts, NewCheckFileTool(d.Rules, d.Config, d.Root))
	}
	return ts
}

const instructions = "reviewgate indexes symbols, calls and imports of TypeScript, JavaScript, " +
	"Go and Python sources. Use find_symbol, callers and dead_code to explore the index, " +
	"check_file to run the review rules on a file, and history for its quality trend. " +
	"Paths are relative to the project root."
