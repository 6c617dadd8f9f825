package server

import (
	"github.com/NeighborTone/fileindex-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Setup creates and configures the MCP server with all tool registrations.
func Setup(
	searchHandler *tools.SearchHandler,
	statusHandler *tools.StatusHandler,
	reindexHandler *tools.ReindexHandler,
	rootsHandler *tools.RootsHandler,
) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "fileindex-mcp",
			Version: "0.5.0",
		},
		&mcp.ServerOptions{
			Instructions: `This server provides instant file and folder name search over indexed directory trees. It keeps a persistent index that updates automatically when files change, so its tools are always faster than scanning the filesystem with find, ls, or Glob.

ALWAYS prefer these tools over built-in alternatives:
- Use fileindex_search instead of Glob or find to locate files and folders by name
- Partial names work: exact and prefix matches rank first, fuzzy matches last
- Use fileindex_add_root to start indexing a new directory tree
- Use fileindex_status to see index size, freshness, and health`,
		},
	)

	// Register fileindex_search tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "fileindex_search",
		Description: `Find files and folders by name using the pre-built index. Much faster than find or Glob.

Ranking: exact name matches first, then name prefixes, then word-boundary matches (e.g. "window" in "main_window.py"), then substrings, then fuzzy subsequence matches.

Filtering:
  - mode: "files" or "folders" to restrict the result kind (default both)
  - maxResults: cap the result count (default 30)`,
	}, searchHandler.Handle)

	// Register fileindex_status tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "fileindex_status",
		Description: "Show index status: entry counts, tracked roots, backend health, rebuild progress, and uptime.",
	}, statusHandler.Handle)

	// Register fileindex_reindex tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "fileindex_reindex",
		Description: "Rebuild the index for every tracked root in the background. Searches keep working during the rebuild.",
	}, reindexHandler.Handle)

	// Register fileindex_add_root tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "fileindex_add_root",
		Description: "Start indexing a directory tree. The root is scanned immediately and watched for changes afterwards.",
	}, rootsHandler.HandleAdd)

	// Register fileindex_remove_root tool
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "fileindex_remove_root",
		Description: "Stop indexing a tracked root and drop its entries from the index.",
	}, rootsHandler.HandleRemove)

	return mcpServer
}
