package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NeighborTone/fileindex-mcp/indexer"
	"github.com/NeighborTone/fileindex-mcp/register"
	"github.com/NeighborTone/fileindex-mcp/server"
	"github.com/NeighborTone/fileindex-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// rootDirs is a repeatable CLI flag for directories to index.
type rootDirs []string

func (r *rootDirs) String() string { return strings.Join(*r, ", ") }
func (r *rootDirs) Set(value string) error {
	abs, err := filepath.Abs(value)
	if err != nil {
		return err
	}
	*r = append(*r, abs)
	return nil
}

func main() {
	// "register" subcommand writes this binary into an MCP client config.
	if len(os.Args) > 1 && os.Args[1] == "register" {
		exe, _ := os.Executable()
		register.Run(register.DeriveServerName(exe), os.Args[2:])
		return
	}

	// Parse CLI flags
	var roots rootDirs
	var dbPath string
	var logLevel string
	var logFile string

	flag.Var(&roots, "root", "Directory to index (repeatable, default: current working directory)")
	flag.StringVar(&dbPath, "db", "", "Index database path (default: <state dir>/fileindex-mcp/entries.db)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	flag.StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	flag.Parse()

	if len(roots) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
			os.Exit(1)
		}
		roots = append(roots, cwd)
	}

	if dbPath == "" {
		dbPath = defaultDBPath()
	}

	// Logger writes to file or stderr, never stdout - stdout is MCP stdio.
	logger := setupLogger(logLevel, logFile)

	logger.Info("starting fileindex-mcp",
		"roots", []string(roots),
		"db", dbPath,
	)

	startTime := time.Now()

	svc := indexer.New(indexer.Config{
		DBPath: dbPath,
		Roots:  roots,
	}, logger)
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start index service", "error", err)
		os.Exit(1)
	}
	logger.Info("index service ready", "startup", time.Since(startTime).Round(time.Millisecond))

	// Create tool handlers
	searchHandler := &tools.SearchHandler{Service: svc, Logger: logger}
	statusHandler := &tools.StatusHandler{Service: svc, StartTime: startTime, Logger: logger}
	reindexHandler := &tools.ReindexHandler{Service: svc, Logger: logger}
	rootsHandler := &tools.RootsHandler{Service: svc, Logger: logger}

	// Setup and run MCP server on stdio
	mcpServer := server.Setup(searchHandler, statusHandler, reindexHandler, rootsHandler)

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		logger.Error("MCP server error", "error", err)
		os.Exit(1)
	}
}

// defaultDBPath puts the index under the user cache directory, falling
// back to the working directory when none exists.
func defaultDBPath() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return "fileindex-mcp.db"
	}
	return filepath.Join(base, "fileindex-mcp", "entries.db")
}

// setupLogger creates an slog.Logger writing to stderr or a file.
func setupLogger(level string, logFile string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var writer *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", logFile, err)
			writer = os.Stderr
		} else {
			writer = f
		}
	} else {
		writer = os.Stderr
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: logLevel})
	return slog.New(handler)
}
