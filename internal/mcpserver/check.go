package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jward/reviewgate"
	"github.com/jward/reviewgate/internal/analyzer"
	"github.com/jward/reviewgate/internal/config"
	"github.com/jward/reviewgate/internal/rules"
)

// CheckFileTool handles check_file.
type CheckFileTool struct {
	rules *rules.Engine
	cfg   *config.Config
	root  string
}

// NewCheckFileTool creates a CheckFileTool. cfg may be nil.
func NewCheckFileTool(r *rules.Engine, cfg *config.Config, root string) *CheckFileTool {
	return &CheckFileTool{rules: r, cfg: cfg, root: root}
}

func (t *CheckFileTool) Definition() mcp.Tool {
	return mcp.NewTool("check_file",
		mcp.WithDescription(
			"Run the review rules on a file and return the violations as JSON. "+
				"Pass 'content' to check unsaved text instead of the file on disk.",
		),
		mcp.WithString("path", mcp.Required(), mcp.Description("File path, absolute or relative to the project root")),
		mcp.WithString("content", mcp.Description("File content to check instead of reading the file")),
	)
}

func (t *CheckFileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("path", "")
	if path == "" {
		return mcp.NewToolResultError("'path' is required"), nil
	}
	abs := path
	if !filepath.IsAbs(abs) && t.root != "" {
		abs = filepath.Join(t.root, path)
	}

	content := []byte(req.GetString("content", ""))
	if len(content) == 0 {
		data, err := os.ReadFile(abs)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reading %s: %v", path, err)), nil
		}
		content = data
	}

	vs := t.rules.ValidateFile(ctx, abs, content)
	if t.cfg != nil {
		vs = t.cfg.Suppress(reviewgate.RelPath(abs, t.root), vs)
	}
	if vs == nil {
		vs = []analyzer.Violation{}
	}

	out, err := json.MarshalIndent(vs, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding violations: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
