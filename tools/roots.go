package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/NeighborTone/fileindex-mcp/builder"
	"github.com/NeighborTone/fileindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AddRootArgs defines the input parameters for the fileindex_add_root tool.
type AddRootArgs struct {
	Path string `json:"path" jsonschema:"Absolute path of the directory to start indexing"`
}

// RemoveRootArgs defines the input parameters for the fileindex_remove_root tool.
type RemoveRootArgs struct {
	Path string `json:"path" jsonschema:"Absolute path of a tracked root to stop indexing"`
}

// RootsHandler holds the dependencies for the root management tools.
type RootsHandler struct {
	Service *indexer.Service
	Logger  *slog.Logger
}

// HandleAdd processes a fileindex_add_root request.
func (h *RootsHandler) HandleAdd(ctx context.Context, req *mcp.CallToolRequest, args AddRootArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	path, err := filepath.Abs(args.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: invalid path: %v", err)), nil, nil
	}

	if err := h.Service.AddRoot(ctx, path); err != nil {
		if errors.Is(err, builder.ErrRootUnavailable) {
			return errorResult(fmt.Sprintf("Error: %s is not an accessible directory", path)), nil, nil
		}
		h.Logger.Error("fileindex_add_root failed", "path", path, "error", err)
		return errorResult(fmt.Sprintf("Add root error: %v", err)), nil, nil
	}

	h.Logger.Info("fileindex_add_root", "path", path)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Now indexing %s", path)}},
	}, nil, nil
}

// HandleRemove processes a fileindex_remove_root request.
func (h *RootsHandler) HandleRemove(ctx context.Context, req *mcp.CallToolRequest, args RemoveRootArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("Error: path parameter is required"), nil, nil
	}
	path, err := filepath.Abs(args.Path)
	if err != nil {
		return errorResult(fmt.Sprintf("Error: invalid path: %v", err)), nil, nil
	}

	if err := h.Service.RemoveRoot(ctx, path); err != nil {
		h.Logger.Error("fileindex_remove_root failed", "path", path, "error", err)
		return errorResult(fmt.Sprintf("Remove root error: %v", err)), nil, nil
	}

	h.Logger.Info("fileindex_remove_root", "path", path)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Stopped indexing %s", path)}},
	}, nil, nil
}
