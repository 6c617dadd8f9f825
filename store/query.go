package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ftsSpecialChars are characters with meaning inside an FTS5 match
// expression. Terms containing any of them skip the FTS pass and rely on
// the LIKE pass alone.
const ftsSpecialChars = `.()[]{}"'*?`

const entryColumns = `path, name, relative_path, root_path, is_dir, extension, parent_path, size, mod_time, depth, priority`

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var isDir int
	var modTime int64
	err := rows.Scan(&e.Path, &e.Name, &e.RelativePath, &e.RootPath, &isDir,
		&e.Extension, &e.ParentPath, &e.SizeBytes, &modTime, &e.Depth, &e.Priority)
	if err != nil {
		return e, fmt.Errorf("%w: scanning entry: %v", ErrStorage, err)
	}
	e.IsDir = isDir == 1
	e.ModTime = time.Unix(modTime, 0)
	return e, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func modeFilter(mode Mode) string {
	switch mode {
	case ModeFilesOnly:
		return " AND is_dir = 0"
	case ModeFoldersOnly:
		return " AND is_dir = 1"
	default:
		return ""
	}
}

// QueryByText returns candidate entries whose name or relative path contains
// the term, case-insensitively. Candidates come ordered by stored priority
// then shallowness then name length; final ranking is the caller's job.
//
// The substring pass runs first. When the term is FTS-safe, a prefix match
// against the full-text table supplements it with token-boundary hits the
// substring scan already found plus any the LIKE limit cut off.
func (s *Store) QueryByText(ctx context.Context, term string, mode Mode, limit int) ([]Entry, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	if term == "" || limit <= 0 {
		return nil, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	query := `SELECT ` + entryColumns + ` FROM entries
		WHERE (lower(name) LIKE ? ESCAPE '\' OR lower(relative_path) LIKE ? ESCAPE '\')` +
		modeFilter(mode) + `
		ORDER BY priority DESC, depth ASC, length(name) ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: substring query: %v", ErrStorage, err)
	}
	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}

	if len(entries) < limit && !strings.ContainsAny(term, ftsSpecialChars) {
		extra, err := s.queryFTSPrefix(ctx, term, mode, limit-len(entries))
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(entries))
		for _, e := range entries {
			seen[e.Path] = struct{}{}
		}
		for _, e := range extra {
			if _, dup := seen[e.Path]; !dup {
				entries = append(entries, e)
			}
		}
	}
	return entries, nil
}

func (s *Store) queryFTSPrefix(ctx context.Context, term string, mode Mode, limit int) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries
		WHERE rowid IN (SELECT rowid FROM entry_search WHERE entry_search MATCH ?)` +
		modeFilter(mode) + `
		ORDER BY priority DESC, depth ASC, length(name) ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, `"`+term+`"*`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fts query: %v", ErrStorage, err)
	}
	return collectEntries(rows)
}

// FuzzyCandidates returns entries whose name starts with the first rune of
// the term, the candidate pool for subsequence matching.
func (s *Store) FuzzyCandidates(ctx context.Context, term string, mode Mode, limit int) ([]Entry, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	if term == "" || limit <= 0 {
		return nil, nil
	}
	first := strings.ToLower(string([]rune(term)[0]))

	query := `SELECT ` + entryColumns + ` FROM entries
		WHERE lower(name) LIKE ? ESCAPE '\'` + modeFilter(mode) + `
		ORDER BY priority DESC, depth ASC, length(name) ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, escapeLike(first)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: fuzzy candidate query: %v", ErrStorage, err)
	}
	return collectEntries(rows)
}

// EntriesUnder streams every entry below a root, used when rebuilding the
// legacy in-memory backend from durable state.
func (s *Store) EntriesUnder(ctx context.Context, rootPath string) ([]Entry, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE root_path = ? ORDER BY path`, rootPath)
	if err != nil {
		return nil, fmt.Errorf("%w: listing root entries: %v", ErrStorage, err)
	}
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating entries: %v", ErrStorage, err)
	}
	return entries, nil
}
