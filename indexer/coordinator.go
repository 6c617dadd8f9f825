package indexer

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NeighborTone/fileindex-mcp/builder"
	"github.com/NeighborTone/fileindex-mcp/filter"
	"github.com/NeighborTone/fileindex-mcp/search"
	"github.com/NeighborTone/fileindex-mcp/store"
	"github.com/NeighborTone/fileindex-mcp/watcher"
)

// syncRebuildLimit is the estimated entry count below which a stale root
// is rebuilt before startup returns. Larger roots rebuild in the
// background so startup stays responsive.
const syncRebuildLimit = 2000

// Config carries everything the service needs at startup.
type Config struct {
	DBPath string
	Roots  []string
}

// Status is a point-in-time picture of the index for status reporting.
type Status struct {
	Backend       string    `json:"backend"`
	EntryCount    int       `json:"entry_count"`
	Files         int       `json:"files"`
	Folders       int       `json:"folders"`
	Roots         []string  `json:"roots"`
	LastBuiltAt   time.Time `json:"last_built_at,omitzero"`
	Building      bool      `json:"building"`
	DegradedStore bool      `json:"degraded_store"`
	DegradedWatch bool      `json:"degraded_watch"`
}

// Service owns the whole indexing pipeline: durable store (or in-memory
// fallback), builder, watcher, maintainer, and the search adapter.
type Service struct {
	store      *store.Store
	mem        *memoryBackend
	adapter    *Adapter
	builder    *builder.Builder
	watcher    *watcher.Watcher
	maintainer *Maintainer
	policy     *filter.Policy
	logger     *slog.Logger

	rootsMu sync.RWMutex
	roots   []string

	buildsMu sync.Mutex
	builds   map[string]*buildHandle

	building      atomic.Int32
	degradedStore bool
	degradedWatch atomic.Bool
}

// buildHandle lets RemoveRoot cancel a walk that is still running for the
// root being dropped.
type buildHandle struct {
	cancel context.CancelFunc
}

// New assembles the service. A store that cannot open degrades to the
// in-memory backend instead of failing; a watcher that cannot start
// degrades to periodic rescans. Neither stops searches from working.
func New(cfg Config, logger *slog.Logger) *Service {
	s := &Service{
		policy: filter.NewPolicy(filter.Options{}),
		builds: make(map[string]*buildHandle),
		logger: logger,
	}

	var backend Backend
	var sink builder.Sink
	var stale StaleChecker

	db, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("durable store unavailable, falling back to in-memory index",
			"path", cfg.DBPath, "error", err)
		s.degradedStore = true
		s.mem = newMemoryBackend(logger)
		backend, sink, stale = s.mem, s.mem, s.mem
	} else {
		s.store = db
		b := durableBackend{db}
		backend, sink, stale = b, db, db
	}

	s.adapter = NewAdapter(backend, logger)
	s.builder = builder.New(sink, s.policy, logger)

	w, err := watcher.New(s.policy, logger)
	if err != nil {
		logger.Warn("file watching unavailable", "error", err)
		s.degradedWatch.Store(true)
	} else {
		s.watcher = w
	}

	s.maintainer = NewMaintainer(s.adapter, s.builder, stale, s.trackedRoots, logger)
	if s.watcher != nil {
		s.maintainer.WatchChanges(s.watcher.Changes())
	} else {
		s.maintainer.EnableFallback()
	}

	s.roots = append(s.roots, cfg.Roots...)
	return s
}

// Start brings every tracked root up to date and begins maintenance.
// Small stale roots rebuild before Start returns; large ones rebuild in
// the background with Status reporting progress.
func (s *Service) Start(ctx context.Context) error {
	if s.store != nil {
		known, err := s.store.Roots(ctx)
		if err != nil {
			return err
		}
		for _, r := range known {
			s.trackRoot(r.Path)
		}
		for _, root := range s.trackedRoots() {
			if err := s.store.AddRoot(ctx, root); err != nil {
				return err
			}
		}
	}

	for _, root := range s.trackedRoots() {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			s.logger.Warn("tracked root unavailable, keeping existing entries",
				"root", root)
			continue
		}
		s.watchRoot(root)
		s.refreshRoot(ctx, root)
	}

	if s.watcher != nil {
		go s.watcher.Run()
	}
	go s.maintainer.Run(ctx)
	return nil
}

// Close releases the watcher and the store.
func (s *Service) Close() error {
	s.cancelAllBuilds()
	if s.watcher != nil {
		s.watcher.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Search runs a ranked completion search.
func (s *Service) Search(ctx context.Context, term string, opts search.Options) ([]search.Result, error) {
	return s.adapter.Search(ctx, term, opts)
}

// AddRoot starts tracking a root and indexes it, in the background when
// the root looks large.
func (s *Service) AddRoot(ctx context.Context, rootPath string) error {
	info, err := os.Stat(rootPath)
	if err != nil || !info.IsDir() {
		return builder.ErrRootUnavailable
	}

	if s.store != nil {
		if err := s.store.AddRoot(ctx, rootPath); err != nil {
			return err
		}
	}
	s.trackRoot(rootPath)
	s.watchRoot(rootPath)
	s.refreshRoot(ctx, rootPath)
	return nil
}

// RemoveRoot stops tracking a root and drops its entries. An in-flight
// walk for the root is cancelled first, so no late batch resurrects the
// dropped entries.
func (s *Service) RemoveRoot(ctx context.Context, rootPath string) error {
	s.cancelBuild(rootPath)
	if s.watcher != nil {
		s.watcher.RemoveRoot(rootPath)
	}
	if err := s.adapter.DropRoot(ctx, rootPath); err != nil {
		return err
	}
	s.untrackRoot(rootPath)
	s.policy.DetachRoot(rootPath)
	s.logger.Info("root removed", "root", rootPath)
	return nil
}

// Rebuild rescans every tracked root in the background. Searches keep
// answering from existing entries while it runs.
func (s *Service) Rebuild(ctx context.Context) {
	roots := s.trackedRoots()
	s.building.Add(1)
	go func() {
		defer s.building.Add(-1)
		for _, root := range roots {
			if _, err := s.buildRoot(ctx, root); err != nil {
				s.logger.Error("rebuild failed", "root", root, "error", err)
			}
		}
		s.adapter.InvalidateCache()
	}()
}

// Status reports index size, freshness, and degradation flags.
func (s *Service) Status(ctx context.Context) (Status, error) {
	st := Status{
		Backend:       s.adapter.BackendName(),
		Roots:         s.trackedRoots(),
		Building:      s.building.Load() > 0,
		DegradedStore: s.degradedStore,
		DegradedWatch: s.degradedWatch.Load(),
	}
	if s.store != nil {
		stats, err := s.store.Stats(ctx)
		if err != nil {
			return st, err
		}
		st.EntryCount = stats.TotalEntries
		st.Files = stats.Files
		st.Folders = stats.Folders
		st.LastBuiltAt = stats.LastScanAt
	} else {
		st.EntryCount = s.mem.Len()
	}
	return st, nil
}

// beginBuild registers a cancellable walk for rootPath, superseding any
// walk already running for it. The returned done func must run when the
// walk finishes.
func (s *Service) beginBuild(ctx context.Context, rootPath string) (context.Context, func()) {
	buildCtx, cancel := context.WithCancel(ctx)
	h := &buildHandle{cancel: cancel}

	s.buildsMu.Lock()
	if prev := s.builds[rootPath]; prev != nil {
		prev.cancel()
	}
	s.builds[rootPath] = h
	s.buildsMu.Unlock()

	done := func() {
		cancel()
		s.buildsMu.Lock()
		if s.builds[rootPath] == h {
			delete(s.builds, rootPath)
		}
		s.buildsMu.Unlock()
	}
	return buildCtx, done
}

// buildRoot runs a full walk that RemoveRoot and Close can cancel.
func (s *Service) buildRoot(ctx context.Context, rootPath string) (int, error) {
	buildCtx, done := s.beginBuild(ctx, rootPath)
	defer done()
	return s.builder.BuildRoot(buildCtx, rootPath)
}

func (s *Service) cancelBuild(rootPath string) {
	s.buildsMu.Lock()
	h := s.builds[rootPath]
	delete(s.builds, rootPath)
	s.buildsMu.Unlock()
	if h != nil {
		h.cancel()
	}
}

func (s *Service) cancelAllBuilds() {
	s.buildsMu.Lock()
	handles := make([]*buildHandle, 0, len(s.builds))
	for _, h := range s.builds {
		handles = append(handles, h)
	}
	s.builds = make(map[string]*buildHandle)
	s.buildsMu.Unlock()
	for _, h := range handles {
		h.cancel()
	}
}

// refreshRoot rebuilds a root if it is stale, inline when small enough.
func (s *Service) refreshRoot(ctx context.Context, rootPath string) {
	stale := s.degradedStore || s.store.IsRootStale(ctx, rootPath)
	if !stale {
		s.logger.Info("root index fresh", "root", rootPath)
		return
	}

	estimate := builder.EstimateEntryCount(rootPath, s.policy)
	if estimate <= syncRebuildLimit {
		if _, err := s.buildRoot(ctx, rootPath); err != nil {
			s.logger.Error("root build failed", "root", rootPath, "error", err)
		}
		s.adapter.InvalidateCache()
		return
	}

	s.logger.Info("large root, building in background",
		"root", rootPath, "estimated_entries", estimate)
	s.building.Add(1)
	go func() {
		defer s.building.Add(-1)
		if _, err := s.buildRoot(ctx, rootPath); err != nil {
			s.logger.Error("background build failed", "root", rootPath, "error", err)
			return
		}
		s.adapter.InvalidateCache()
	}()
}

func (s *Service) watchRoot(rootPath string) {
	s.policy.AttachRoot(rootPath)
	if s.watcher == nil {
		return
	}
	if err := s.watcher.AddRoot(rootPath); err != nil {
		s.logger.Warn("cannot watch root, relying on periodic rescans",
			"root", rootPath, "error", err)
		s.degradedWatch.Store(true)
		s.maintainer.EnableFallback()
	}
}

func (s *Service) trackedRoots() []string {
	s.rootsMu.RLock()
	defer s.rootsMu.RUnlock()
	out := make([]string, len(s.roots))
	copy(out, s.roots)
	return out
}

func (s *Service) trackRoot(rootPath string) {
	s.rootsMu.Lock()
	defer s.rootsMu.Unlock()
	for _, r := range s.roots {
		if r == rootPath {
			return
		}
	}
	s.roots = append(s.roots, rootPath)
}

func (s *Service) untrackRoot(rootPath string) {
	s.rootsMu.Lock()
	defer s.rootsMu.Unlock()
	for i, r := range s.roots {
		if r == rootPath {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return
		}
	}
}
