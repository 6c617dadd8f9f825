package filter

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_Policy_SkipsExcludedDirNames(t *testing.T) {
	p := NewPolicy(Options{})
	root := t.TempDir()

	cases := []struct {
		dir  string
		skip bool
	}{
		{"node_modules", true},
		{"__pycache__", true},
		{"Intermediate", true},
		{".git", true},
		{".claude", false},
		{"src", false},
		{"Documents", false},
	}
	for _, c := range cases {
		got := p.ShouldSkipDir(root, filepath.Join(root, c.dir))
		if got != c.skip {
			t.Errorf("ShouldSkipDir(%s) = %v, want %v", c.dir, got, c.skip)
		}
	}
}

func Test_Policy_SkipsFilesByExtension(t *testing.T) {
	p := NewPolicy(Options{})
	root := t.TempDir()

	cases := []struct {
		file string
		skip bool
	}{
		{"main.py", false},
		{"notes.md", false},
		{"photo.png", false},
		{"junk.log", true},
		{"archive.lock", true},
		{".hidden", true},
		{"binary.unknownext", true},
	}
	for _, c := range cases {
		got := p.ShouldSkipFile(root, filepath.Join(root, c.file))
		if got != c.skip {
			t.Errorf("ShouldSkipFile(%s) = %v, want %v", c.file, got, c.skip)
		}
	}
}

func Test_Policy_ImportantNamesBypassExtensionCheck(t *testing.T) {
	p := NewPolicy(Options{})
	root := t.TempDir()

	for _, name := range []string{"Makefile", "Dockerfile", "LICENSE"} {
		if p.ShouldSkipFile(root, filepath.Join(root, name)) {
			t.Errorf("expected %s to be indexed despite missing extension", name)
		}
	}
}

func Test_Policy_CustomPatterns(t *testing.T) {
	p := NewPolicy(Options{CustomPatterns: []string{"build/**", "*.generated.py"}})
	root := t.TempDir()

	if !p.ShouldSkipFile(root, filepath.Join(root, "build", "out.py")) {
		t.Error("expected build/** pattern to skip nested file")
	}
	if !p.ShouldSkipFile(root, filepath.Join(root, "schema.generated.py")) {
		t.Error("expected *.generated.py pattern to match by base name")
	}
	if p.ShouldSkipFile(root, filepath.Join(root, "app.py")) {
		t.Error("expected unmatched file to pass")
	}
}

func Test_Policy_GitignorePerRoot(t *testing.T) {
	p := NewPolicy(Options{})
	rootA := t.TempDir()
	rootB := t.TempDir()

	if err := os.WriteFile(filepath.Join(rootA, ".gitignore"), []byte("secret.py\n"), 0644); err != nil {
		t.Fatal(err)
	}
	p.AttachRoot(rootA)
	p.AttachRoot(rootB)

	if !p.ShouldSkipFile(rootA, filepath.Join(rootA, "secret.py")) {
		t.Error("expected .gitignore rule to apply inside its root")
	}
	if p.ShouldSkipFile(rootB, filepath.Join(rootB, "secret.py")) {
		t.Error("expected rule not to leak into other roots")
	}

	p.DetachRoot(rootA)
	if p.ShouldSkipFile(rootA, filepath.Join(rootA, "secret.py")) {
		t.Error("expected rule gone after detach")
	}
}

func Test_Policy_TooLarge(t *testing.T) {
	p := NewPolicy(Options{MaxFileSizeBytes: 100})

	if p.TooLarge(100) {
		t.Error("expected size at limit to pass")
	}
	if !p.TooLarge(101) {
		t.Error("expected size over limit to be rejected")
	}
}

func Test_Policy_Priority(t *testing.T) {
	p := NewPolicy(Options{})

	if got := p.Priority("anything", true); got != FolderPriority {
		t.Errorf("folder priority = %d, want %d", got, FolderPriority)
	}
	py := p.Priority("main.py", false)
	png := p.Priority("photo.png", false)
	if py <= png {
		t.Errorf("expected .py (%d) above .png (%d)", py, png)
	}
	if got := p.Priority("file.zzz", false); got != DefaultPriority {
		t.Errorf("unknown extension priority = %d, want %d", got, DefaultPriority)
	}
}
