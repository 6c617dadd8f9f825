package store

// SchemaVersion tracks the database layout. A mismatch on open causes the
// store to recreate its tables and report every root stale, which the
// startup coordinator answers with a rebuild.
// Version 3: stores written by earlier versions can carry stray postings
// in the full-text mirror, so they are recreated rather than trusted.
const SchemaVersion = "3"

// Schema is the SQLite layout for the entry store: one row per filesystem
// entry, a roots table with scan watermarks, a metadata table, and an FTS5
// virtual table kept in sync by triggers for free-text candidate lookup.
const schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

CREATE TABLE IF NOT EXISTS roots (
    path TEXT PRIMARY KEY,
    added_at INTEGER NOT NULL,
    last_scan_at INTEGER NOT NULL DEFAULT 0,
    entry_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entries (
    path TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    relative_path TEXT NOT NULL,
    root_path TEXT NOT NULL,
    is_dir INTEGER NOT NULL DEFAULT 0,
    extension TEXT NOT NULL DEFAULT '',
    parent_path TEXT NOT NULL DEFAULT '',
    size INTEGER NOT NULL DEFAULT 0,
    mod_time INTEGER NOT NULL DEFAULT 0,
    depth INTEGER NOT NULL DEFAULT 0,
    priority INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entries_root ON entries(root_path);
CREATE INDEX IF NOT EXISTS idx_entries_name ON entries(name);
CREATE INDEX IF NOT EXISTS idx_entries_extension ON entries(extension);
CREATE INDEX IF NOT EXISTS idx_entries_priority ON entries(priority DESC);

CREATE VIRTUAL TABLE IF NOT EXISTS entry_search USING fts5(
    name,
    relative_path,
    content='entries',
    tokenize='unicode61'
);

CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
    INSERT INTO entry_search(rowid, name, relative_path)
    VALUES (new.rowid, new.name, new.relative_path);
END;

CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
    INSERT INTO entry_search(entry_search, rowid, name, relative_path)
    VALUES ('delete', old.rowid, old.name, old.relative_path);
END;

CREATE TRIGGER IF NOT EXISTS entries_au AFTER UPDATE ON entries BEGIN
    INSERT INTO entry_search(entry_search, rowid, name, relative_path)
    VALUES ('delete', old.rowid, old.name, old.relative_path);
    INSERT INTO entry_search(rowid, name, relative_path)
    VALUES (new.rowid, new.name, new.relative_path);
END;
`

// dropSchema removes every table so a version mismatch can recreate the
// layout from scratch. Cheaper and safer than in-place migration for an
// index that can always be rebuilt from the filesystem.
const dropSchema = `
DROP TRIGGER IF EXISTS entries_ai;
DROP TRIGGER IF EXISTS entries_ad;
DROP TRIGGER IF EXISTS entries_au;
DROP TABLE IF EXISTS entry_search;
DROP TABLE IF EXISTS entries;
DROP TABLE IF EXISTS roots;
DROP TABLE IF EXISTS metadata;
`
