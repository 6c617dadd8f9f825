// Package store provides the durable entry store backing file search:
// one SQLite file per application instance holding every indexed entry,
// root watermarks, and index metadata.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// batchSize bounds the number of rows per write transaction so a single
// commit never holds the writer lock for long.
const batchSize = 500

// freshnessWindow is how long a clean root stays fresh without a rescan.
const freshnessWindow = 24 * time.Hour

// Store is the durable entry store. Reads go through a small connection
// pool; all writes serialize behind writeMu and commit in one transaction
// per batch, so readers never observe a torn multi-row update.
type Store struct {
	db      *sql.DB
	writeMu sync.Mutex
	logger  *slog.Logger
	path    string

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the entry store at dbPath. A schema version
// mismatch recreates the layout and leaves every root stale, so the caller
// rebuilds rather than migrating in place.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating store directory: %v", ErrStorage, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStorage, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &Store{db: db, logger: logger, path: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("entry store opened", "path", dbPath)
	return s, nil
}

// Path returns the location of the store file.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: creating schema: %v", ErrStorage, err)
	}

	var version string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		// Fresh database
	case err != nil:
		return fmt.Errorf("%w: reading schema version: %v", ErrStorage, err)
	case version != SchemaVersion:
		s.logger.Warn("schema version mismatch, recreating store",
			"found", version, "want", SchemaVersion)
		if _, err := s.db.Exec(dropSchema); err != nil {
			return fmt.Errorf("%w: dropping old schema: %v", ErrStorage, err)
		}
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("%w: recreating schema: %v", ErrStorage, err)
		}
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO metadata (key, value) VALUES ('schema_version', ?)`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("%w: writing schema version: %v", ErrStorage, err)
	}
	return nil
}

// withWriteTx runs fn inside a single write transaction, serialized against
// all other writers.
func (s *Store) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s.isClosed() {
		return ErrClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

// upsertEntrySQL resolves path conflicts with DO UPDATE, never REPLACE.
// REPLACE deletes the old row without firing the delete trigger, which
// would strand the old rowid's posting in entry_search.
const upsertEntrySQL = `
INSERT INTO entries
    (path, name, relative_path, root_path, is_dir, extension, parent_path, size, mod_time, depth, priority)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
    name = excluded.name,
    relative_path = excluded.relative_path,
    root_path = excluded.root_path,
    is_dir = excluded.is_dir,
    extension = excluded.extension,
    parent_path = excluded.parent_path,
    size = excluded.size,
    mod_time = excluded.mod_time,
    depth = excluded.depth,
    priority = excluded.priority`

func insertEntry(stmt *sql.Stmt, e Entry) error {
	isDir := 0
	if e.IsDir {
		isDir = 1
	}
	_, err := stmt.Exec(e.Path, e.Name, e.RelativePath, e.RootPath, isDir,
		e.Extension, e.ParentPath, e.SizeBytes, e.ModTime.Unix(), e.Depth, e.Priority)
	if err != nil {
		return fmt.Errorf("%w: upserting %s: %v", ErrStorage, e.Path, err)
	}
	return nil
}

// UpsertEntries inserts or replaces entries in constant-size batches, one
// transaction per batch. On cancellation the already-committed batches stay;
// no partial batch is ever visible.
func (s *Store) UpsertEntries(ctx context.Context, entries []Entry) error {
	for start := 0; start < len(entries); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		err := s.withWriteTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.Prepare(upsertEntrySQL)
			if err != nil {
				return fmt.Errorf("%w: prepare: %v", ErrStorage, err)
			}
			defer stmt.Close()
			for _, e := range batch {
				if err := insertEntry(stmt, e); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveEntries deletes entries by absolute path. Removing a directory
// implicitly removes all of its descendants.
func (s *Store) RemoveEntries(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		return removeInTx(tx, paths)
	})
}

func removeInTx(tx *sql.Tx, paths []string) error {
	for _, path := range paths {
		_, err := tx.Exec(
			`DELETE FROM entries WHERE path = ? OR path LIKE ? ESCAPE '\'`,
			path, escapeLike(path)+"/%")
		if err != nil {
			return fmt.Errorf("%w: removing %s: %v", ErrStorage, path, err)
		}
	}
	return nil
}

// ApplyChanges applies removals and upserts in one transaction. A rename's
// remove+upsert pair goes through here so no reader observes the gap.
func (s *Store) ApplyChanges(ctx context.Context, removes []string, upserts []Entry) error {
	if len(removes) == 0 && len(upserts) == 0 {
		return nil
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if err := removeInTx(tx, removes); err != nil {
			return err
		}
		if len(upserts) == 0 {
			return nil
		}
		stmt, err := tx.Prepare(upsertEntrySQL)
		if err != nil {
			return fmt.Errorf("%w: prepare: %v", ErrStorage, err)
		}
		defer stmt.Close()
		for _, e := range upserts {
			if err := insertEntry(stmt, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddRoot records a tracked root. Idempotent.
func (s *Store) AddRoot(ctx context.Context, rootPath string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT OR IGNORE INTO roots (path, added_at) VALUES (?, ?)`,
			rootPath, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("%w: adding root: %v", ErrStorage, err)
		}
		return nil
	})
}

// RemoveRoot detaches a root and drops all of its entries.
func (s *Store) RemoveRoot(ctx context.Context, rootPath string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM entries WHERE root_path = ?`, rootPath); err != nil {
			return fmt.Errorf("%w: removing root entries: %v", ErrStorage, err)
		}
		if _, err := tx.Exec(`DELETE FROM roots WHERE path = ?`, rootPath); err != nil {
			return fmt.Errorf("%w: removing root: %v", ErrStorage, err)
		}
		return nil
	})
}

// ClearRoot drops the entries of a root but keeps the root tracked; used at
// the start of a full rebuild.
func (s *Store) ClearRoot(ctx context.Context, rootPath string) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM entries WHERE root_path = ?`, rootPath); err != nil {
			return fmt.Errorf("%w: clearing root: %v", ErrStorage, err)
		}
		_, err := tx.Exec(`UPDATE roots SET last_scan_at = 0, entry_count = 0 WHERE path = ?`, rootPath)
		if err != nil {
			return fmt.Errorf("%w: resetting root watermark: %v", ErrStorage, err)
		}
		return nil
	})
}

// MarkRootClean records a completed scan: watermark plus entry count.
func (s *Store) MarkRootClean(ctx context.Context, rootPath string, watermark time.Time, entryCount int) error {
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec(
			`UPDATE roots SET last_scan_at = ?, entry_count = ? WHERE path = ?`,
			watermark.Unix(), entryCount, rootPath)
		if err != nil {
			return fmt.Errorf("%w: marking root clean: %v", ErrStorage, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			_, err = tx.Exec(
				`INSERT INTO roots (path, added_at, last_scan_at, entry_count) VALUES (?, ?, ?, ?)`,
				rootPath, time.Now().Unix(), watermark.Unix(), entryCount)
			if err != nil {
				return fmt.Errorf("%w: inserting root: %v", ErrStorage, err)
			}
		}
		return nil
	})
}

// IsRootStale reports whether a root needs reindexing: unknown root, empty
// index, a root directory modified after the last scan, or a scan older
// than the freshness window.
func (s *Store) IsRootStale(ctx context.Context, rootPath string) bool {
	if s.isClosed() {
		return true
	}
	var lastScan int64
	var entryCount int
	err := s.db.QueryRowContext(ctx,
		`SELECT last_scan_at, entry_count FROM roots WHERE path = ?`, rootPath).
		Scan(&lastScan, &entryCount)
	if err != nil || lastScan == 0 || entryCount == 0 {
		return true
	}

	watermark := time.Unix(lastScan, 0)
	if time.Since(watermark) > freshnessWindow {
		return true
	}
	if info, err := os.Stat(rootPath); err != nil || info.ModTime().After(watermark) {
		return true
	}
	return false
}

// Roots returns all tracked roots.
func (s *Store) Roots(ctx context.Context) ([]Root, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, added_at, last_scan_at, entry_count FROM roots ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing roots: %v", ErrStorage, err)
	}
	defer rows.Close()

	var roots []Root
	for rows.Next() {
		var r Root
		var added, scanned int64
		if err := rows.Scan(&r.Path, &added, &scanned, &r.EntryCount); err != nil {
			return nil, fmt.Errorf("%w: scanning root: %v", ErrStorage, err)
		}
		r.AddedAt = time.Unix(added, 0)
		r.LastScanAt = time.Unix(scanned, 0)
		roots = append(roots, r)
	}
	return roots, rows.Err()
}

// Stats summarizes the index for status reporting.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN is_dir = 0 THEN 1 END),
		       COUNT(CASE WHEN is_dir = 1 THEN 1 END)
		FROM entries`).Scan(&st.TotalEntries, &st.Files, &st.Folders)
	if err != nil {
		return st, fmt.Errorf("%w: reading stats: %v", ErrStorage, err)
	}

	var lastScan sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX(last_scan_at) FROM roots`).Scan(&lastScan)
	if err != nil {
		return st, fmt.Errorf("%w: reading watermark: %v", ErrStorage, err)
	}
	if lastScan.Valid && lastScan.Int64 > 0 {
		st.LastScanAt = time.Unix(lastScan.Int64, 0)
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roots`).Scan(&st.Roots)
	if err != nil {
		return st, fmt.Errorf("%w: counting roots: %v", ErrStorage, err)
	}
	return st, nil
}
