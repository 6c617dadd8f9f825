package tools

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NeighborTone/fileindex-mcp/indexer"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, files ...string) *indexer.Service {
	t.Helper()
	root := t.TempDir()
	for _, rel := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	s := indexer.New(indexer.Config{
		DBPath: filepath.Join(t.TempDir(), "entries.db"),
		Roots:  []string{root},
	}, testLogger())
	t.Cleanup(func() { s.Close() })

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("expected content in tool result")
	}
	return result.Content[0].(*mcp.TextContent).Text
}

func Test_SearchHandler_EmptyQuery(t *testing.T) {
	h := &SearchHandler{Service: newTestService(t), Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: ""})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for empty query")
	}
	if !strings.Contains(resultText(t, result), "query parameter is required") {
		t.Errorf("expected error message about empty query, got: %s", resultText(t, result))
	}
}

func Test_SearchHandler_BasicSearch(t *testing.T) {
	h := &SearchHandler{
		Service: newTestService(t, "main_window.py", "docs/guide.md"),
		Logger:  testLogger(),
	}

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: "main"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatal("expected success, got error result")
	}

	text := resultText(t, result)
	if !strings.Contains(text, "main_window.py") {
		t.Errorf("expected result to contain main_window.py, got:\n%s", text)
	}
	if strings.Contains(text, "guide.md") {
		t.Errorf("expected guide.md absent, got:\n%s", text)
	}
}

func Test_SearchHandler_ModeFilter(t *testing.T) {
	h := &SearchHandler{
		Service: newTestService(t, "report/notes.md"),
		Logger:  testLogger(),
	}

	result, _, err := h.Handle(context.Background(), nil,
		SearchArgs{Query: "report", Mode: "folders"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := resultText(t, result)
	if !strings.Contains(text, "[dir ] report") {
		t.Errorf("expected folder hit, got:\n%s", text)
	}
}

func Test_SearchHandler_NoResults(t *testing.T) {
	h := &SearchHandler{Service: newTestService(t, "main.py"), Logger: testLogger()}

	result, _, err := h.Handle(context.Background(), nil, SearchArgs{Query: "zzzqqq"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatal("expected success (no error), got error result")
	}
	if !strings.Contains(resultText(t, result), "No matches") {
		t.Errorf("expected no-matches message, got: %s", resultText(t, result))
	}
}
