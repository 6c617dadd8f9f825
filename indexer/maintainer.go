package indexer

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/NeighborTone/fileindex-mcp/builder"
	"github.com/NeighborTone/fileindex-mcp/store"
	"github.com/NeighborTone/fileindex-mcp/watcher"
)

// rescanInterval is how often the maintainer rescans stale roots when file
// watching is unavailable. With a healthy watcher the same pass still runs
// every sweepInterval as a consistency backstop.
const (
	rescanInterval = 5 * time.Minute
	sweepInterval  = time.Hour
)

// StaleChecker reports whether a root needs a full rescan. Only the
// durable store can answer this across restarts.
type StaleChecker interface {
	IsRootStale(ctx context.Context, rootPath string) bool
}

// Maintainer keeps the index aligned with the file system: it applies
// debounced change batches from the watcher and, when watching is
// unavailable, falls back to periodic rescans.
type Maintainer struct {
	adapter *Adapter
	builder *builder.Builder
	stale   StaleChecker
	roots   func() []string
	logger  *slog.Logger

	changes  <-chan []watcher.Change
	fallback atomic.Bool
}

func NewMaintainer(adapter *Adapter, b *builder.Builder, stale StaleChecker, roots func() []string, logger *slog.Logger) *Maintainer {
	return &Maintainer{
		adapter: adapter,
		builder: b,
		stale:   stale,
		roots:   roots,
		logger:  logger,
	}
}

// WatchChanges feeds the maintainer from a watcher.
func (m *Maintainer) WatchChanges(changes <-chan []watcher.Change) {
	m.changes = changes
}

// EnableFallback turns on periodic rescans for roots without working file
// watches. Safe to call before or after Run.
func (m *Maintainer) EnableFallback() {
	if !m.fallback.Swap(true) {
		m.logger.Warn("file watching unavailable, using periodic rescans",
			"interval", rescanInterval)
	}
}

// Run consumes change batches until the context ends. Call in a goroutine
// after WatchChanges or EnableFallback.
func (m *Maintainer) Run(ctx context.Context) {
	tick := time.NewTicker(rescanInterval)
	defer tick.Stop()
	lastSweep := time.Now()

	for {
		select {
		case <-ctx.Done():
			return

		case batch, ok := <-m.changes:
			if !ok {
				return
			}
			m.applyBatch(ctx, batch)

		case <-tick.C:
			if m.fallback.Load() || time.Since(lastSweep) >= sweepInterval {
				m.rescanStale(ctx)
				lastSweep = time.Now()
			}
		}
	}
}

// applyBatch turns one debounced batch into a single atomic change set:
// removals for vanished paths, upserts for everything still on disk. A
// rename's old and new path travel together, so searches never see the
// half-renamed state.
func (m *Maintainer) applyBatch(ctx context.Context, batch []watcher.Change) {
	var removes []string
	var upserts []store.Entry

	for _, change := range batch {
		switch change.Op {
		case watcher.OpRemove, watcher.OpRename:
			removes = append(removes, change.Path)
		default:
			if entry, ok := m.builder.EntryFor(change.RootPath, change.Path); ok {
				upserts = append(upserts, entry)
			} else {
				// Gone or filtered by the time we looked; make sure no
				// stale record survives.
				removes = append(removes, change.Path)
			}
		}
	}

	if err := m.adapter.Apply(ctx, removes, upserts); err != nil {
		m.logger.Error("failed to apply change batch",
			"removes", len(removes), "upserts", len(upserts), "error", err)
		return
	}
	m.logger.Debug("change batch applied", "removes", len(removes), "upserts", len(upserts))
}

func (m *Maintainer) rescanStale(ctx context.Context) {
	for _, root := range m.roots() {
		if !m.stale.IsRootStale(ctx, root) {
			continue
		}
		if _, err := m.builder.BuildRoot(ctx, root); err != nil {
			m.logger.Error("fallback rescan failed", "root", root, "error", err)
			continue
		}
		m.adapter.InvalidateCache()
	}
}
