// Package indexer wires the entry store, builder, watcher, and search
// engine into one index service with a swappable backend.
package indexer

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/NeighborTone/fileindex-mcp/legacy"
	"github.com/NeighborTone/fileindex-mcp/search"
	"github.com/NeighborTone/fileindex-mcp/store"
)

// Backend is one index implementation behind the adapter: the durable
// SQLite store, or the in-memory fallback when that store cannot open.
type Backend interface {
	search.Source

	// Apply commits removals and upserts as one atomic change set.
	Apply(ctx context.Context, removes []string, upserts []store.Entry) error

	// DropRoot forgets a root and everything under it.
	DropRoot(ctx context.Context, rootPath string) error

	Name() string
}

// durableBackend adapts the SQLite store.
type durableBackend struct {
	*store.Store
}

func (durableBackend) Name() string { return "sqlite" }

func (b durableBackend) Apply(ctx context.Context, removes []string, upserts []store.Entry) error {
	return b.ApplyChanges(ctx, removes, upserts)
}

func (b durableBackend) DropRoot(ctx context.Context, rootPath string) error {
	return b.RemoveRoot(ctx, rootPath)
}

// memoryBackend adapts the legacy trie index. It also satisfies
// builder.Sink so full scans can feed it directly; watermarks live only in
// memory and every root is stale again after a restart.
type memoryBackend struct {
	*legacy.Index

	mu         sync.Mutex
	watermarks map[string]time.Time
}

func newMemoryBackend(logger *slog.Logger) *memoryBackend {
	return &memoryBackend{
		Index:      legacy.NewIndex(logger),
		watermarks: make(map[string]time.Time),
	}
}

func (*memoryBackend) Name() string { return "memory" }

func (b *memoryBackend) Apply(_ context.Context, removes []string, upserts []store.Entry) error {
	for _, path := range removes {
		b.Remove(path)
	}
	b.AddAll(upserts)
	return nil
}

func (b *memoryBackend) DropRoot(_ context.Context, rootPath string) error {
	b.RemoveRoot(rootPath)
	b.mu.Lock()
	delete(b.watermarks, rootPath)
	b.mu.Unlock()
	return nil
}

func (b *memoryBackend) ClearRoot(_ context.Context, rootPath string) error {
	b.RemoveRoot(rootPath)
	return nil
}

func (b *memoryBackend) UpsertEntries(_ context.Context, entries []store.Entry) error {
	b.AddAll(entries)
	return nil
}

func (b *memoryBackend) MarkRootClean(_ context.Context, rootPath string, watermark time.Time, _ int) error {
	b.mu.Lock()
	b.watermarks[rootPath] = watermark
	b.mu.Unlock()
	return nil
}

// IsRootStale mirrors the durable store's rule, minus durability: an
// unscanned root is always stale, and everything is stale again after a
// restart.
func (b *memoryBackend) IsRootStale(_ context.Context, rootPath string) bool {
	b.mu.Lock()
	watermark, ok := b.watermarks[rootPath]
	b.mu.Unlock()
	if !ok {
		return true
	}
	info, err := os.Stat(rootPath)
	return err != nil || info.ModTime().After(watermark)
}

// Adapter routes searches and writes to the active backend and owns the
// result cache. Swapping backends is atomic with respect to searches: a
// query sees either the old backend or the new one, never a mix.
type Adapter struct {
	mu      sync.RWMutex
	backend Backend
	engine  *search.Engine

	cache  *search.Cache
	logger *slog.Logger
}

func NewAdapter(backend Backend, logger *slog.Logger) *Adapter {
	cache := search.NewCache()
	return &Adapter{
		backend: backend,
		engine:  search.NewEngine(backend, cache, logger),
		cache:   cache,
		logger:  logger,
	}
}

// Search runs a ranked search on the active backend.
func (a *Adapter) Search(ctx context.Context, term string, opts search.Options) ([]search.Result, error) {
	a.mu.RLock()
	engine := a.engine
	a.mu.RUnlock()
	return engine.Search(ctx, term, opts)
}

// Apply forwards a change set to the active backend and purges the result
// cache so no stale hit outlives the write.
func (a *Adapter) Apply(ctx context.Context, removes []string, upserts []store.Entry) error {
	a.mu.RLock()
	backend := a.backend
	a.mu.RUnlock()

	if err := backend.Apply(ctx, removes, upserts); err != nil {
		return err
	}
	a.cache.Purge()
	return nil
}

// DropRoot removes a root from the active backend and purges the cache.
func (a *Adapter) DropRoot(ctx context.Context, rootPath string) error {
	a.mu.RLock()
	backend := a.backend
	a.mu.RUnlock()

	if err := backend.DropRoot(ctx, rootPath); err != nil {
		return err
	}
	a.cache.Purge()
	return nil
}

// InvalidateCache drops all cached results, for writes that bypass Apply
// such as a full rebuild.
func (a *Adapter) InvalidateCache() {
	a.cache.Purge()
}

// Swap installs a new backend and engine in one step.
func (a *Adapter) Swap(backend Backend) {
	a.mu.Lock()
	old := a.backend
	a.backend = backend
	a.engine = search.NewEngine(backend, a.cache, a.logger)
	a.mu.Unlock()

	a.cache.Purge()
	a.logger.Info("index backend swapped", "from", old.Name(), "to", backend.Name())
}

// BackendName reports the active backend.
func (a *Adapter) BackendName() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.backend.Name()
}
