package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NeighborTone/fileindex-mcp/indexer"
	"github.com/NeighborTone/fileindex-mcp/search"
	"github.com/NeighborTone/fileindex-mcp/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SearchArgs defines the input parameters for the fileindex_search tool.
type SearchArgs struct {
	Query      string `json:"query" jsonschema:"File or folder name to search for. Partial names match; exact and prefix matches rank first"`
	Mode       string `json:"mode,omitempty" jsonschema:"Filter results: 'any' (default), 'files', or 'folders'"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 30)"`
}

// SearchHandler holds the dependencies for the search tool.
type SearchHandler struct {
	Service *indexer.Service
	Logger  *slog.Logger
}

// Handle processes a fileindex_search request.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.Query == "" {
		h.Logger.Warn("fileindex_search called with empty query")
		return errorResult("Error: query parameter is required"), nil, nil
	}

	mode := store.ParseMode(args.Mode)
	results, err := h.Service.Search(ctx, args.Query, search.Options{
		Mode:       mode,
		MaxResults: args.MaxResults,
	})
	if err != nil {
		if errors.Is(err, search.ErrQueryTimeout) {
			if len(results) == 0 {
				return errorResult("Search timed out; try a longer or more specific query."), nil, nil
			}
			h.Logger.Warn("fileindex_search timed out with partial results",
				"query", args.Query, "results", len(results))
			text := "Search timed out; results may be incomplete.\n\n" +
				FormatSearchResults(args.Query, results)
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: text}},
			}, nil, nil
		}
		h.Logger.Error("fileindex_search failed", "query", args.Query, "error", err)
		return errorResult(fmt.Sprintf("Search error: %v", err)), nil, nil
	}

	h.Logger.Info("fileindex_search",
		"query", args.Query,
		"mode", mode,
		"results", len(results),
		"elapsed", time.Since(start),
	)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(args.Query, results)}},
	}, nil, nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}
