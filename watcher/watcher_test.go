package watcher

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type stubSkipChecker struct{}

func (stubSkipChecker) ShouldSkipDir(rootPath, absolutePath string) bool {
	return filepath.Base(absolutePath) == "node_modules"
}

func (stubSkipChecker) ShouldSkipFile(rootPath, absolutePath string) bool {
	return strings.HasSuffix(absolutePath, ".tmp")
}

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w, err := New(stubSkipChecker{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	go w.Run()
	return w
}

func waitForChange(t *testing.T, w *Watcher, want string) Change {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch := <-w.Changes():
			for _, c := range batch {
				if c.Path == want {
					return c
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change on %s", want)
		}
	}
}

func Test_Watcher_AttributesChangesToRoot(t *testing.T) {
	w := newTestWatcher(t)
	rootA := t.TempDir()
	rootB := t.TempDir()
	if err := w.AddRoot(rootA); err != nil {
		t.Fatal(err)
	}
	if err := w.AddRoot(rootB); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(rootB, "note.md")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	change := waitForChange(t, w, target)
	if change.RootPath != rootB {
		t.Errorf("expected root %s, got %s", rootB, change.RootPath)
	}
	if change.Op != OpCreate && change.Op != OpWrite {
		t.Errorf("expected create or write, got %s", change.Op)
	}
}

func Test_Watcher_SkipsFilteredFiles(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	if err := w.AddRoot(root); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(root, "scratch.tmp"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(root, "keep.md")
	if err := os.WriteFile(keep, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	change := waitForChange(t, w, keep)
	if change.Path != keep {
		t.Errorf("expected only keep.md to surface, got %s", change.Path)
	}
}

func Test_Watcher_RemovedRootStopsEmitting(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	if err := w.AddRoot(root); err != nil {
		t.Fatal(err)
	}
	w.RemoveRoot(root)

	if err := os.WriteFile(filepath.Join(root, "late.md"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-w.Changes():
		t.Errorf("expected no changes after root removal, got %v", batch)
	case <-time.After(700 * time.Millisecond):
		// quiet, as expected
	}
}

func Test_Watcher_RemoveRootDropsChildWatches(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src", "deep"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := w.AddRoot(root); err != nil {
		t.Fatal(err)
	}

	w.RemoveRoot(root)

	prefix := root + string(filepath.Separator)
	for _, watched := range w.fsWatcher.WatchList() {
		if watched == root || strings.HasPrefix(watched, prefix) {
			t.Errorf("expected no watches under removed root, still watching %s", watched)
		}
	}
}

func Test_Watcher_WatchesNewSubdirectories(t *testing.T) {
	w := newTestWatcher(t)
	root := t.TempDir()
	if err := w.AddRoot(root); err != nil {
		t.Fatal(err)
	}

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, w, sub)

	nested := filepath.Join(sub, "deep.md")
	if err := os.WriteFile(nested, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitForChange(t, w, nested)
}
