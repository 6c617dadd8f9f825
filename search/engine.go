// Package search ranks entry-store candidates for completion queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/NeighborTone/fileindex-mcp/store"
)

// ErrQueryTimeout marks a search that exceeded its deadline. The index is
// healthy; the caller should retry with a narrower query.
var ErrQueryTimeout = errors.New("query timed out")

// Match tiers, widest gap wins. Bonuses stay below the smallest tier gap
// so a lower tier can never overtake a higher one.
const (
	scoreExactName     = 1000
	scorePrefixName    = 950
	scoreSegmentStart  = 500
	scoreSubstringName = 300
	scoreSubstringPath = 100

	// stemGap places a name-without-extension match just below a full
	// exact match, still inside the exact tier.
	stemGap = 10
)

const (
	// DefaultMaxResults is the result cap when the caller asks for none.
	DefaultMaxResults = 30

	// defaultTimeout bounds a single search against a cold or huge index.
	defaultTimeout = 2 * time.Second

	// candidateFactor oversamples store candidates relative to the result
	// cap so ranking has enough to reorder.
	candidateFactor = 4

	recencyWindow = 7 * 24 * time.Hour
	recencyBonus  = 8
	folderBonus   = 4
)

// Options narrow a search.
type Options struct {
	Mode       store.Mode
	MaxResults int
}

// Result is one ranked hit.
type Result struct {
	store.Entry
	Score int
}

// Source supplies ranking candidates. The durable store is the usual
// implementation; the in-memory fallback index is the other.
type Source interface {
	QueryByText(ctx context.Context, term string, mode store.Mode, limit int) ([]store.Entry, error)
	FuzzyCandidates(ctx context.Context, term string, mode store.Mode, limit int) ([]store.Entry, error)
}

// Engine runs ranked searches against a candidate source, with a purgeable
// result cache in front.
type Engine struct {
	source  Source
	cache   *Cache
	logger  *slog.Logger
	timeout time.Duration
}

func NewEngine(source Source, cache *Cache, logger *slog.Logger) *Engine {
	return &Engine{source: source, cache: cache, logger: logger, timeout: defaultTimeout}
}

// InvalidateCache drops every cached result set. Called after any index
// write so stale hits never outlive the entries behind them.
func (e *Engine) InvalidateCache() {
	if e.cache != nil {
		e.cache.Purge()
	}
}

// Search returns ranked completion candidates for term.
//
// Exact name matches rank first, then name prefixes, then matches starting
// at a segment boundary, then substrings of the name, then substrings of
// the relative path. Ties break by shallower depth, then higher priority,
// then shorter path.
// Fuzzy subsequence hits are appended after all tiered hits, never
// interleaved.
func (e *Engine) Search(ctx context.Context, term string, opts Options) ([]Result, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}

	key := cacheKey(term, opts)
	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			return cached, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	start := time.Now()

	results, err := e.rank(ctx, term, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Whatever ranked before the deadline still goes out; the
			// caller sees the timeout alongside the partial results.
			return results, fmt.Errorf("%w: %q after %s", ErrQueryTimeout, term, e.timeout)
		}
		return nil, err
	}

	if e.cache != nil {
		e.cache.Put(key, results)
	}
	e.logger.Debug("search complete",
		"term", term, "results", len(results),
		"duration", time.Since(start).Round(time.Microsecond))
	return results, nil
}

func (e *Engine) rank(ctx context.Context, term string, opts Options) ([]Result, error) {
	pool := opts.MaxResults * candidateFactor
	candidates, err := e.source.QueryByText(ctx, term, opts.Mode, pool)
	if err != nil {
		return nil, err
	}

	termLower := strings.ToLower(term)
	now := time.Now()

	results := make([]Result, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, entry := range candidates {
		tier := matchTier(termLower, entry)
		if tier == 0 {
			continue
		}
		results = append(results, Result{Entry: entry, Score: tier + bonus(entry, now)})
		seen[entry.Path] = struct{}{}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Depth != results[j].Depth {
			return results[i].Depth < results[j].Depth
		}
		if results[i].Priority != results[j].Priority {
			return results[i].Priority > results[j].Priority
		}
		if len(results[i].Path) != len(results[j].Path) {
			return len(results[i].Path) < len(results[j].Path)
		}
		return results[i].Path < results[j].Path
	})
	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}

	if len(results) < opts.MaxResults {
		fuzzy, err := e.fuzzyPass(ctx, term, opts, seen, now)
		if err != nil {
			// The tiered pass already ranked; a deadline inside the fuzzy
			// pass must not throw those results away.
			return results, err
		}
		room := opts.MaxResults - len(results)
		if len(fuzzy) > room {
			fuzzy = fuzzy[:room]
		}
		results = append(results, fuzzy...)
	}
	return results, nil
}

// fuzzyPass fetches subsequence candidates and ranks them among
// themselves. Their scores live far below every tier constant, keeping
// them behind all tiered hits.
func (e *Engine) fuzzyPass(ctx context.Context, term string, opts Options, seen map[string]struct{}, now time.Time) ([]Result, error) {
	candidates, err := e.source.FuzzyCandidates(ctx, term, opts.Mode, opts.MaxResults*candidateFactor)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, entry := range candidates {
		if _, dup := seen[entry.Path]; dup {
			continue
		}
		score, ok := fuzzyMatch(term, entry.Name)
		if !ok || score < fuzzyThreshold {
			continue
		}
		results = append(results, Result{Entry: entry, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Depth != results[j].Depth {
			return results[i].Depth < results[j].Depth
		}
		if len(results[i].Path) != len(results[j].Path) {
			return len(results[i].Path) < len(results[j].Path)
		}
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// matchTier classifies how term matches entry, 0 for no tiered match.
func matchTier(termLower string, entry store.Entry) int {
	nameLower := strings.ToLower(entry.Name)
	stem := nameLower
	if !entry.IsDir {
		if dot := strings.LastIndex(nameLower, "."); dot > 0 {
			stem = nameLower[:dot]
		}
	}

	switch {
	case nameLower == termLower:
		return scoreExactName
	case stem == termLower:
		return scoreExactName - stemGap
	case strings.HasPrefix(nameLower, termLower):
		return scorePrefixName
	case startsSegment(nameLower, termLower):
		return scoreSegmentStart
	case strings.Contains(nameLower, termLower):
		return scoreSubstringName
	case strings.Contains(strings.ToLower(entry.RelativePath), termLower):
		return scoreSubstringPath
	default:
		return 0
	}
}

// startsSegment reports whether term begins right after a separator
// inside name.
func startsSegment(nameLower, termLower string) bool {
	for offset := 0; ; {
		idx := strings.Index(nameLower[offset:], termLower)
		if idx < 0 {
			return false
		}
		pos := offset + idx
		if pos > 0 {
			switch nameLower[pos-1] {
			case ' ', '-', '_', '.':
				return true
			}
		}
		offset = pos + 1
		if offset >= len(nameLower) {
			return false
		}
	}
}

// bonus nudges scores within a tier: stored priority, shallowness, a small
// boost for recently modified entries, and a folder boost so directories
// hold their own against files. The total spread stays under the smallest
// tier gap.
func bonus(entry store.Entry, now time.Time) int {
	b := entry.Priority / 8
	if b > 12 {
		b = 12
	}
	depth := entry.Depth
	if depth > 8 {
		depth = 8
	}
	b -= depth
	if now.Sub(entry.ModTime) < recencyWindow {
		b += recencyBonus
	}
	if entry.IsDir {
		b += folderBonus
	}
	return b
}

func cacheKey(term string, opts Options) string {
	return strings.ToLower(term) + "|" + opts.Mode.String() + "|" + fmt.Sprintf("%d", opts.MaxResults)
}
