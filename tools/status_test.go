package tools

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/NeighborTone/fileindex-mcp/indexer"
)

func newTestServiceNoRoots(t *testing.T) *indexer.Service {
	t.Helper()
	s := indexer.New(indexer.Config{
		DBPath: filepath.Join(t.TempDir(), "entries.db"),
	}, testLogger())
	t.Cleanup(func() { s.Close() })
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func Test_StatusHandler_ReportsCounts(t *testing.T) {
	h := &StatusHandler{
		Service:   newTestService(t, "a.py", "sub/b.py"),
		StartTime: time.Now(),
		Logger:    testLogger(),
	}

	result, _, err := h.Handle(context.Background(), nil, StatusArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatal("expected success, got error result")
	}

	text := resultText(t, result)
	if !strings.Contains(text, "Backend: sqlite") {
		t.Errorf("expected sqlite backend line, got:\n%s", text)
	}
	if !strings.Contains(text, "2 files, 1 folders") {
		t.Errorf("expected entry counts, got:\n%s", text)
	}
	if !strings.Contains(text, "Tracked roots:") {
		t.Errorf("expected tracked roots section, got:\n%s", text)
	}
	if strings.Contains(text, "WARNING") {
		t.Errorf("expected no degradation warnings, got:\n%s", text)
	}
}

func Test_StatusHandler_NoRoots(t *testing.T) {
	h := &StatusHandler{
		Service:   newTestServiceNoRoots(t),
		StartTime: time.Now(),
		Logger:    testLogger(),
	}

	result, _, err := h.Handle(context.Background(), nil, StatusArgs{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(resultText(t, result), "No roots tracked") {
		t.Errorf("expected no-roots hint, got: %s", resultText(t, result))
	}
}

func Test_formatDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{45 * time.Second, "45s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, c := range cases {
		if got := formatDuration(c.in); got != c.want {
			t.Errorf("formatDuration(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}
