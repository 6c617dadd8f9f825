package filter

// DefaultExtensionPriorities maps file extensions to a static relevance
// weight. Source files rank highest, configuration and docs in the middle,
// media at the bottom. Unknown extensions get DefaultPriority.
var DefaultExtensionPriorities = map[string]int{
	// Source files
	".py": 100, ".cpp": 95, ".c": 95, ".h": 95, ".hpp": 95,
	".js": 90, ".ts": 90, ".jsx": 90, ".tsx": 90,
	".java": 85, ".cs": 85, ".go": 85, ".rs": 85,
	".php": 80, ".rb": 80, ".swift": 80, ".kt": 80,

	// Config and data files
	".json": 70, ".yaml": 70, ".yml": 70, ".xml": 70,
	".toml": 70, ".ini": 65, ".conf": 65, ".cfg": 65,
	".csv": 60, ".txt": 60, ".md": 60, ".rst": 60,

	// Build files
	".cmake": 50, ".make": 50, ".gradle": 50,
	".sln": 50, ".vcxproj": 50, ".pro": 50,

	// Media
	".png": 20, ".jpg": 20, ".jpeg": 20, ".gif": 20,
	".wav": 10, ".mp3": 10, ".mp4": 10, ".avi": 10,
}

// DefaultPriority is the weight for extensions not in the priority map.
const DefaultPriority = 30

// FolderPriority is the fixed weight carried by directory entries, keeping
// folders competitive with source files in completion results.
const FolderPriority = 50

// DefaultExcludedDirs are directory names pruned from every walk without
// descent. Includes common build caches and VCS metadata.
var DefaultExcludedDirs = []string{
	"node_modules", "__pycache__", "Binaries", "Intermediate",
	"Saved", "DerivedDataCache", ".vs", "obj", "bin", ".git",
	".svn", ".hg", "build", "dist", "out", ".idea", ".vscode",
	".venv", "venv", ".cache", "coverage",
}

// DefaultExcludedExtensions are never indexed regardless of the allow list.
var DefaultExcludedExtensions = []string{
	".exe", ".dll", ".so", ".dylib", ".lib", ".a", ".o", ".obj",
	".class", ".jar", ".war", ".pdb", ".idb", ".tmp", ".temp",
	".log", ".cache", ".lock",
}

// DefaultImportantNames are filename fragments that force a file into the
// index even when its extension is not in the allow list (or it has none).
var DefaultImportantNames = []string{
	"readme", "license", "changelog", "makefile", "dockerfile",
	"cmakelists", "requirements", "package",
	"gulpfile", "gruntfile", "webpack", "tsconfig", "jsconfig",
}

// DefaultAllowedExtensions is the ordered extension allow list used when the
// caller does not supply one. Order reflects completion usefulness.
var DefaultAllowedExtensions = []string{
	// Programming languages
	".py", ".cpp", ".c", ".h", ".hpp", ".cxx", ".hxx",
	".cs", ".java", ".js", ".ts", ".jsx", ".tsx",
	".go", ".rs", ".php", ".rb", ".swift", ".kt",

	// Project and config files
	".uproject", ".uplugin", ".ini", ".cfg", ".config",
	".json", ".yaml", ".yml", ".xml", ".toml",
	".conf", ".csv", ".txt", ".md", ".rst",

	// Build files
	".cmake", ".make", ".gradle", ".sln", ".vcxproj", ".pro",

	// Shaders
	".hlsl", ".glsl", ".shader", ".compute",

	// Media (kept for completeness, low priority)
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".ico",
	".wav", ".mp3", ".flac", ".ogg",
	".mp4", ".avi", ".mkv", ".mov", ".webm",
}

// DefaultMaxFileSizeBytes skips pathologically large files during indexing.
const DefaultMaxFileSizeBytes = 100 * 1024 * 1024
