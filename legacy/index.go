package legacy

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/NeighborTone/fileindex-mcp/store"
)

// Index is the in-memory fallback entry index: a name trie for prefix
// lookups plus a path map for substring scans. Candidate ordering matches
// the durable store so either backend feeds the ranking engine the same
// way.
type Index struct {
	mu     sync.RWMutex
	trie   *trieNode
	byPath map[string]store.Entry
	logger *slog.Logger
}

func NewIndex(logger *slog.Logger) *Index {
	return &Index{trie: newTrieNode(), byPath: make(map[string]store.Entry), logger: logger}
}

// Add inserts or replaces an entry.
func (x *Index) Add(entry store.Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if old, ok := x.byPath[entry.Path]; ok {
		x.trie.remove(old.Name, old.Path)
	}
	x.byPath[entry.Path] = entry
	x.trie.insert(entry.Name, entry.Path)
}

// AddAll bulk-loads entries, one lock acquisition.
func (x *Index) AddAll(entries []store.Entry) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, entry := range entries {
		if old, ok := x.byPath[entry.Path]; ok {
			x.trie.remove(old.Name, old.Path)
		}
		x.byPath[entry.Path] = entry
		x.trie.insert(entry.Name, entry.Path)
	}
	x.logger.Debug("bulk load complete", "added", len(entries), "total", len(x.byPath))
}

// Remove drops a path and, for directories, everything below it.
func (x *Index) Remove(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.removeLocked(path)
}

func (x *Index) removeLocked(path string) {
	prefix := path + "/"
	for p, entry := range x.byPath {
		if p == path || strings.HasPrefix(p, prefix) {
			x.trie.remove(entry.Name, p)
			delete(x.byPath, p)
		}
	}
}

// RemoveRoot drops every entry belonging to a root.
func (x *Index) RemoveRoot(rootPath string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for p, entry := range x.byPath {
		if entry.RootPath == rootPath {
			x.trie.remove(entry.Name, p)
			delete(x.byPath, p)
		}
	}
}

// Len reports the number of indexed entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byPath)
}

// QueryByText returns entries whose name or relative path contains the
// term. The trie answers the name-prefix portion; the rest is a scan.
func (x *Index) QueryByText(_ context.Context, term string, mode store.Mode, limit int) ([]store.Entry, error) {
	if term == "" || limit <= 0 {
		return nil, nil
	}
	termLower := strings.ToLower(term)

	x.mu.RLock()
	defer x.mu.RUnlock()

	picked := make(map[string]struct{})
	var out []store.Entry
	for path := range x.trie.withPrefix(termLower) {
		entry, ok := x.byPath[path]
		if !ok || !mode.Matches(entry.IsDir) {
			continue
		}
		picked[path] = struct{}{}
		out = append(out, entry)
	}
	for path, entry := range x.byPath {
		if _, dup := picked[path]; dup {
			continue
		}
		if !mode.Matches(entry.IsDir) {
			continue
		}
		if strings.Contains(strings.ToLower(entry.Name), termLower) ||
			strings.Contains(strings.ToLower(entry.RelativePath), termLower) {
			out = append(out, entry)
		}
	}

	sortCandidates(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FuzzyCandidates returns entries whose name starts with the first rune of
// the term, straight off the trie.
func (x *Index) FuzzyCandidates(_ context.Context, term string, mode store.Mode, limit int) ([]store.Entry, error) {
	if term == "" || limit <= 0 {
		return nil, nil
	}
	first := string([]rune(strings.ToLower(term))[0])

	x.mu.RLock()
	defer x.mu.RUnlock()

	var out []store.Entry
	for path := range x.trie.withPrefix(first) {
		entry, ok := x.byPath[path]
		if !ok || !mode.Matches(entry.IsDir) {
			continue
		}
		out = append(out, entry)
	}

	sortCandidates(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sortCandidates mirrors the durable store's candidate ordering.
func sortCandidates(entries []store.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		if entries[i].Depth != entries[j].Depth {
			return entries[i].Depth < entries[j].Depth
		}
		if len(entries[i].Name) != len(entries[j].Name) {
			return len(entries[i].Name) < len(entries[j].Name)
		}
		return entries[i].Path < entries[j].Path
	})
}
