package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NeighborTone/fileindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StatusArgs defines the input parameters for the fileindex_status tool (none required).
type StatusArgs struct{}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Service   *indexer.Service
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a fileindex_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	st, err := h.Service.Status(ctx)
	if err != nil {
		h.Logger.Error("fileindex_status failed", "error", err)
		return errorResult(fmt.Sprintf("Status error: %v", err)), nil, nil
	}
	uptime := time.Since(h.StartTime)

	h.Logger.Info("fileindex_status",
		"entries", st.EntryCount,
		"backend", st.Backend,
		"building", st.Building,
		"uptime", uptime,
	)

	var b strings.Builder
	b.WriteString("=== fileindex-mcp Status ===\n\n")
	b.WriteString(fmt.Sprintf("Backend: %s\n", st.Backend))
	b.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(uptime)))
	b.WriteString(fmt.Sprintf("Indexed entries: %d (%d files, %d folders)\n",
		st.EntryCount, st.Files, st.Folders))
	if !st.LastBuiltAt.IsZero() {
		b.WriteString(fmt.Sprintf("Last built: %s\n", st.LastBuiltAt.Format(time.RFC3339)))
	}
	if st.Building {
		b.WriteString("A rebuild is currently running.\n")
	}
	if st.DegradedStore {
		b.WriteString("WARNING: durable store unavailable; index is in-memory only and will not survive a restart.\n")
	}
	if st.DegradedWatch {
		b.WriteString("WARNING: file watching unavailable; changes are picked up by periodic rescans.\n")
	}

	if len(st.Roots) > 0 {
		b.WriteString("\nTracked roots:\n")
		for _, root := range st.Roots {
			b.WriteString(fmt.Sprintf("  %s\n", root))
		}
	} else {
		b.WriteString("\nNo roots tracked. Use fileindex_add_root to index a directory.\n")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: b.String()}},
	}, nil, nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	remainderSeconds := totalSeconds % 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, remainderSeconds)
	}
	hours := totalMinutes / 60
	remainderMinutes := totalMinutes % 60
	return fmt.Sprintf("%dh%dm", hours, remainderMinutes)
}
