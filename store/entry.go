package store

import (
	"errors"
	"time"
)

var (
	// ErrStorage signals an I/O or corruption failure of the durable store.
	// Callers surface it as "index unavailable" and fall back to a rebuild.
	ErrStorage = errors.New("entry store failure")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("entry store closed")
)

// Entry is one indexed filesystem object with cached metadata.
type Entry struct {
	Path         string    // absolute path, unique across the store
	RelativePath string    // path relative to its root (forward slashes)
	Name         string
	Extension    string // lowercase, empty for directories
	IsDir        bool
	ParentPath   string
	RootPath     string
	SizeBytes    int64
	ModTime      time.Time
	Depth        int // path-segment count from the root
	Priority     int // static relevance weight
}

// Root is a tracked workspace directory.
type Root struct {
	Path       string
	AddedAt    time.Time
	LastScanAt time.Time
	EntryCount int
}

// Stats summarizes the index state for status reporting.
type Stats struct {
	TotalEntries int
	Files        int
	Folders      int
	Roots        int
	LastScanAt   time.Time
}

// Mode narrows a query to files, folders, or both.
type Mode int

const (
	ModeAny Mode = iota
	ModeFilesOnly
	ModeFoldersOnly
)

// Matches reports whether an entry passes the mode filter.
func (m Mode) Matches(isDir bool) bool {
	switch m {
	case ModeFilesOnly:
		return !isDir
	case ModeFoldersOnly:
		return isDir
	default:
		return true
	}
}

// String returns the wire name of the mode, as accepted by the search tools.
func (m Mode) String() string {
	switch m {
	case ModeFilesOnly:
		return "files"
	case ModeFoldersOnly:
		return "folders"
	default:
		return "any"
	}
}

// ParseMode maps a wire name onto a Mode. Unknown names mean ModeAny.
func ParseMode(name string) Mode {
	switch name {
	case "files", "file", "files-only":
		return ModeFilesOnly
	case "folders", "folder", "folders-only", "dirs":
		return ModeFoldersOnly
	default:
		return ModeAny
	}
}
