// Package watcher turns raw file system notifications across tracked roots
// into debounced, root-attributed change batches.
package watcher

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatchUnavailable marks a platform or root where file system
// notifications cannot be established. Search keeps working; freshness
// falls back to periodic rescans.
var ErrWatchUnavailable = errors.New("file watching unavailable")

// defaultDebounce is the quiet period before a change batch is emitted.
const defaultDebounce = 500 * time.Millisecond

// SkipChecker decides which paths the watcher should not bother tracking.
type SkipChecker interface {
	ShouldSkipDir(rootPath, absolutePath string) bool
	ShouldSkipFile(rootPath, absolutePath string) bool
}

// Watcher watches any number of roots recursively. Events fan into a
// shared debouncer; each emitted change carries the root it belongs to.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	skip      SkipChecker
	logger    *slog.Logger

	mu    sync.RWMutex
	roots []string
}

func New(skip SkipChecker, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Join(ErrWatchUnavailable, err)
	}
	return &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(defaultDebounce),
		skip:      skip,
		logger:    logger,
	}, nil
}

// Changes returns the channel debounced change batches arrive on.
func (w *Watcher) Changes() <-chan []Change {
	return w.debouncer.Output()
}

// AddRoot registers a root and every non-skipped directory below it.
func (w *Watcher) AddRoot(rootPath string) error {
	if err := w.fsWatcher.Add(rootPath); err != nil {
		return errors.Join(ErrWatchUnavailable, err)
	}

	w.mu.Lock()
	w.roots = append(w.roots, rootPath)
	w.mu.Unlock()

	watched := 1
	filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == rootPath {
			return nil
		}
		if w.skip.ShouldSkipDir(rootPath, path) {
			return fs.SkipDir
		}
		if watchErr := w.fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
			return nil
		}
		watched++
		return nil
	})

	w.logger.Info("watching root", "root", rootPath, "directories", watched)
	return nil
}

// RemoveRoot forgets a root and drops every kernel watch under it, so
// repeated add/remove cycles do not accumulate watch descriptors.
func (w *Watcher) RemoveRoot(rootPath string) {
	w.mu.Lock()
	for i, root := range w.roots {
		if root == rootPath {
			w.roots = append(w.roots[:i], w.roots[i+1:]...)
			break
		}
	}
	w.mu.Unlock()

	prefix := rootPath + string(filepath.Separator)
	for _, watched := range w.fsWatcher.WatchList() {
		if watched == rootPath || strings.HasPrefix(watched, prefix) {
			w.fsWatcher.Remove(watched)
		}
	}
}

// rootFor maps a path to its tracked root, longest match first.
func (w *Watcher) rootFor(path string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	best := ""
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			if len(root) > len(best) {
				best = root
			}
		}
	}
	return best, best != ""
}

// Run consumes raw notifications until the watcher is closed. Call in a
// goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	root, ok := w.rootFor(path)
	if !ok {
		return
	}

	// A newly created directory gets its own watch so nested changes keep
	// arriving.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if w.skip.ShouldSkipDir(root, path) {
				return
			}
			if err := w.fsWatcher.Add(path); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			w.debouncer.Add(Change{Path: path, RootPath: root, Op: OpCreate})
			return
		}
	}

	// Remove and rename events refer to paths that no longer exist, so
	// the skip check only applies to live files.
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		if w.skip.ShouldSkipFile(root, path) {
			return
		}
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(Change{Path: path, RootPath: root, Op: op})
}

// Close stops event delivery and closes the change channel.
func (w *Watcher) Close() error {
	err := w.fsWatcher.Close()
	w.debouncer.Stop()
	return err
}
