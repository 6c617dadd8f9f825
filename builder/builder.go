// Package builder walks tracked roots and populates the entry store.
package builder

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NeighborTone/fileindex-mcp/filter"
	"github.com/NeighborTone/fileindex-mcp/store"
)

// ErrRootUnavailable marks a root whose directory is missing or unreadable.
// The root stays tracked; the caller decides whether to retry or drop it.
var ErrRootUnavailable = errors.New("root unavailable")

const (
	// flushSize is how many entries accumulate before a store write.
	flushSize = 500

	// maxWalkDepth caps recursion below a root. Deeper trees are almost
	// always build output or vendored junk the filter missed.
	maxWalkDepth = 20
)

// Estimation constants for deciding between a blocking and a background
// rebuild before the full walk runs.
const (
	estimateDepth      = 3
	estimateCap        = 50000
	estimateMultiplier = 4
)

// Sink receives scan output. The durable store is the usual sink; the
// in-memory fallback index stands in when the store cannot open.
type Sink interface {
	ClearRoot(ctx context.Context, rootPath string) error
	UpsertEntries(ctx context.Context, entries []store.Entry) error
	MarkRootClean(ctx context.Context, rootPath string, watermark time.Time, entryCount int) error
}

// Builder performs full scans of roots into a sink.
type Builder struct {
	sink   Sink
	policy *filter.Policy
	logger *slog.Logger
}

func New(sink Sink, policy *filter.Policy, logger *slog.Logger) *Builder {
	return &Builder{sink: sink, policy: policy, logger: logger}
}

// BuildRoot rescans rootPath from scratch. Entries land in the store in
// bounded batches, so cancellation mid-walk leaves a consistent but
// incomplete index; the root watermark is only written after a complete
// walk, leaving an interrupted root stale for the next startup.
func (b *Builder) BuildRoot(ctx context.Context, rootPath string) (int, error) {
	info, err := os.Stat(rootPath)
	if err != nil || !info.IsDir() {
		return 0, ErrRootUnavailable
	}

	b.policy.AttachRoot(rootPath)
	start := time.Now()

	if err := b.sink.ClearRoot(ctx, rootPath); err != nil {
		return 0, err
	}

	var (
		batch   []store.Entry
		total   int
		skipped int
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := b.sink.UpsertEntries(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	err = filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			// Unreadable subtree: log and keep walking the rest.
			b.logger.Warn("skipping unreadable path", "path", path, "error", walkErr)
			skipped++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == rootPath {
			return nil
		}

		depth := entryDepth(rootPath, path)
		if d.IsDir() {
			if depth > maxWalkDepth || b.policy.ShouldSkipDir(rootPath, path) {
				return fs.SkipDir
			}
		} else if b.policy.ShouldSkipFile(rootPath, path) {
			return nil
		}

		entry, ok := b.entryFor(rootPath, path, d, depth)
		if !ok {
			return nil
		}
		batch = append(batch, entry)
		if len(batch) >= flushSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}

	// A walk cancelled at the finish line must still leave the root stale.
	if err := ctx.Err(); err != nil {
		return total, err
	}
	if err := b.sink.MarkRootClean(ctx, rootPath, time.Now(), total); err != nil {
		return total, err
	}
	b.logger.Info("root scan complete",
		"root", rootPath, "entries", total, "skipped", skipped,
		"duration", time.Since(start).Round(time.Millisecond))
	return total, nil
}

// EntryFor builds the store record for a single on-disk path, for callers
// applying incremental changes outside a full walk.
func (b *Builder) EntryFor(rootPath, path string) (store.Entry, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		return store.Entry{}, false
	}
	depth := entryDepth(rootPath, path)
	if info.IsDir() {
		if b.policy.ShouldSkipDir(rootPath, path) {
			return store.Entry{}, false
		}
	} else {
		if b.policy.ShouldSkipFile(rootPath, path) {
			return store.Entry{}, false
		}
	}
	return b.entryFromInfo(rootPath, path, info, depth)
}

func (b *Builder) entryFor(rootPath, path string, d fs.DirEntry, depth int) (store.Entry, bool) {
	info, err := d.Info()
	if err != nil {
		return store.Entry{}, false
	}
	return b.entryFromInfo(rootPath, path, info, depth)
}

func (b *Builder) entryFromInfo(rootPath, path string, info fs.FileInfo, depth int) (store.Entry, bool) {
	isDir := info.IsDir()
	if !isDir && b.policy.TooLarge(info.Size()) {
		return store.Entry{}, false
	}

	rel, err := filepath.Rel(rootPath, path)
	if err != nil {
		return store.Entry{}, false
	}
	name := filepath.Base(path)
	ext := ""
	if !isDir {
		ext = strings.ToLower(filepath.Ext(name))
	}
	return store.Entry{
		Path:         path,
		RelativePath: filepath.ToSlash(rel),
		Name:         name,
		Extension:    ext,
		IsDir:        isDir,
		ParentPath:   filepath.Dir(path),
		RootPath:     rootPath,
		SizeBytes:    info.Size(),
		ModTime:      info.ModTime(),
		Depth:        depth,
		Priority:     b.policy.Priority(name, isDir),
	}, true
}

func entryDepth(rootPath, path string) int {
	rel, err := filepath.Rel(rootPath, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

// EstimateEntryCount does a shallow, capped pre-walk and extrapolates the
// likely index size, cheap enough to run before deciding whether a rebuild
// should block startup.
func EstimateEntryCount(rootPath string, policy *filter.Policy) int {
	count := 0
	filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == rootPath {
			return nil
		}
		depth := entryDepth(rootPath, path)
		if d.IsDir() {
			if depth >= estimateDepth || policy.ShouldSkipDir(rootPath, path) {
				count++
				return fs.SkipDir
			}
		}
		count++
		if count >= estimateCap {
			return fs.SkipAll
		}
		return nil
	})
	if count >= estimateCap {
		return estimateCap
	}
	return count * estimateMultiplier
}
