package tools

import (
	"context"
	"log/slog"

	"github.com/NeighborTone/fileindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ReindexArgs defines the input parameters for the fileindex_reindex tool.
type ReindexArgs struct{}

// ReindexHandler holds the dependencies for the reindex tool.
type ReindexHandler struct {
	Service *indexer.Service
	Logger  *slog.Logger
}

// Handle processes a fileindex_reindex request. The rebuild runs in the
// background; searches keep answering from existing entries meanwhile.
func (h *ReindexHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReindexArgs) (*mcp.CallToolResult, any, error) {
	h.Logger.Info("fileindex_reindex started")

	h.Service.Rebuild(context.WithoutCancel(ctx))

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{
			Text: "Rebuild started in the background. Check fileindex_status for progress.",
		}},
	}, nil, nil
}
