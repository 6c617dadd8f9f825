package tools

import (
	"fmt"
	"strings"

	"github.com/NeighborTone/fileindex-mcp/search"
)

// FormatSearchResults formats ranked search results as human-readable text:
// one line per hit with its kind, relative path, and root.
func FormatSearchResults(query string, results []search.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No matches for %q.", query)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Found %d matches for %q:\n\n", len(results), query))

	for i, r := range results {
		kind := "file"
		if r.IsDir {
			kind = "dir "
		}
		b.WriteString(fmt.Sprintf("%2d. [%s] %s", i+1, kind, r.RelativePath))
		if !r.IsDir && r.SizeBytes > 0 {
			b.WriteString(fmt.Sprintf("  (%s)", formatFileSize(r.SizeBytes)))
		}
		b.WriteString(fmt.Sprintf("\n        %s\n", r.Path))
	}

	return b.String()
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
