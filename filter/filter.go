package filter

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// Policy decides which filesystem entries are eligible for indexing.
// It combines an extension allow list, excluded directory names, an
// important-filenames list, custom glob patterns, and per-root .gitignore
// rules. The policy is owned by the embedding application; the index builder
// and maintainer consume it read-only.
//
// Thread-safe: AttachRoot/DetachRoot/Reload take a write lock, all checks
// take a read lock.
type Policy struct {
	mu sync.RWMutex

	allowedExtensions map[string]struct{}
	excludedDirs      map[string]struct{}
	excludedExts      map[string]struct{}
	importantNames    []string
	customPatterns    []string
	priorities        map[string]int
	maxFileSizeBytes  int64

	// gitignores holds one matcher per attached root, keyed by root path.
	gitignores map[string]gitignore.GitIgnore
}

// Options configures a Policy. Zero-value fields fall back to the defaults
// in defaults.go.
type Options struct {
	AllowedExtensions []string
	ExcludedDirs      []string
	ImportantNames    []string
	CustomPatterns    []string // doublestar globs matched against root-relative paths
	MaxFileSizeBytes  int64
}

// NewPolicy builds a Policy from options plus the built-in defaults.
func NewPolicy(options Options) *Policy {
	p := &Policy{
		allowedExtensions: make(map[string]struct{}),
		excludedDirs:      make(map[string]struct{}),
		excludedExts:      make(map[string]struct{}),
		priorities:        DefaultExtensionPriorities,
		customPatterns:    options.CustomPatterns,
		maxFileSizeBytes:  options.MaxFileSizeBytes,
		gitignores:        make(map[string]gitignore.GitIgnore),
	}

	allowed := options.AllowedExtensions
	if len(allowed) == 0 {
		allowed = DefaultAllowedExtensions
	}
	for _, ext := range allowed {
		p.allowedExtensions[strings.ToLower(ext)] = struct{}{}
	}

	excludedDirs := options.ExcludedDirs
	if len(excludedDirs) == 0 {
		excludedDirs = DefaultExcludedDirs
	}
	for _, dir := range excludedDirs {
		p.excludedDirs[dir] = struct{}{}
	}

	for _, ext := range DefaultExcludedExtensions {
		p.excludedExts[ext] = struct{}{}
	}

	p.importantNames = options.ImportantNames
	if len(p.importantNames) == 0 {
		p.importantNames = DefaultImportantNames
	}

	if p.maxFileSizeBytes <= 0 {
		p.maxFileSizeBytes = DefaultMaxFileSizeBytes
	}

	return p
}

// AttachRoot loads the .gitignore for a root, if present. Called when a
// workspace root is added; rules apply only to paths under that root.
func (p *Policy) AttachRoot(rootPath string) {
	gi := loadIgnoreFile(filepath.Join(rootPath, ".gitignore"), rootPath)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gi != nil {
		p.gitignores[rootPath] = gi
	} else {
		delete(p.gitignores, rootPath)
	}
}

// DetachRoot drops the .gitignore rules for a removed root.
func (p *Policy) DetachRoot(rootPath string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.gitignores, rootPath)
}

// Reload re-reads the .gitignore files of all attached roots.
func (p *Policy) Reload() {
	p.mu.Lock()
	roots := make([]string, 0, len(p.gitignores))
	for root := range p.gitignores {
		roots = append(roots, root)
	}
	p.mu.Unlock()

	for _, root := range roots {
		p.AttachRoot(root)
	}
}

// ShouldSkipDir reports whether a directory should be pruned from traversal
// entirely, without descent.
func (p *Policy) ShouldSkipDir(rootPath, absolutePath string) bool {
	name := filepath.Base(absolutePath)

	// Hidden directories are skipped, except .claude which carries
	// project configuration the completion engine should surface.
	if strings.HasPrefix(name, ".") && name != ".claude" {
		return true
	}

	p.mu.RLock()
	_, excluded := p.excludedDirs[name]
	p.mu.RUnlock()
	if excluded {
		return true
	}

	return p.matchesPatterns(rootPath, absolutePath, true)
}

// ShouldSkipFile reports whether a file is excluded from indexing by name,
// extension, glob patterns, or .gitignore rules.
func (p *Policy) ShouldSkipFile(rootPath, absolutePath string) bool {
	name := filepath.Base(absolutePath)
	if strings.HasPrefix(name, ".") {
		return true
	}

	ext := strings.ToLower(filepath.Ext(name))

	p.mu.RLock()
	_, denied := p.excludedExts[ext]
	_, allowed := p.allowedExtensions[ext]
	p.mu.RUnlock()

	if denied {
		return true
	}
	if !allowed && !p.isImportant(name) {
		return true
	}

	return p.matchesPatterns(rootPath, absolutePath, false)
}

// TooLarge reports whether a file exceeds the size ceiling.
func (p *Policy) TooLarge(sizeBytes int64) bool {
	return sizeBytes > p.maxFileSizeBytes
}

// Priority returns the static relevance weight for an entry.
func (p *Policy) Priority(name string, isDir bool) int {
	if isDir {
		return FolderPriority
	}
	ext := strings.ToLower(filepath.Ext(name))
	p.mu.RLock()
	defer p.mu.RUnlock()
	if weight, ok := p.priorities[ext]; ok {
		return weight
	}
	return DefaultPriority
}

// isImportant checks the always-include filename fragments (README,
// Makefile, Dockerfile and friends are indexed whatever their extension).
func (p *Policy) isImportant(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range p.importantNames {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

// matchesPatterns checks custom doublestar globs and the root's .gitignore
// against the path relative to its root.
func (p *Policy) matchesPatterns(rootPath, absolutePath string, isDir bool) bool {
	relativePath, err := filepath.Rel(rootPath, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	relativePath = filepath.ToSlash(relativePath)

	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, pattern := range p.customPatterns {
		pattern = strings.ReplaceAll(pattern, "\\", "/")
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, filepath.Base(relativePath)); err == nil && matched {
			return true
		}
	}

	if gi, ok := p.gitignores[rootPath]; ok && gi != nil {
		if match := gi.Relative(relativePath, isDir); match != nil && match.Ignore() {
			return true
		}
	}

	return false
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses the io.Reader form so the file handle closes promptly on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
