package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitAndFindFrom(t *testing.T) {
	root := t.TempDir()
	if err := Init(root); err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	nested := filepath.Join(root, "src", "lib")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := FindFrom(nested); got != root {
		t.Errorf("FindFrom(%q) = %q, want %q", nested, got, root)
	}
	if got := FindFrom(root); got != root {
		t.Errorf("FindFrom(root) = %q, want %q", got, root)
	}
}

func TestFindFromNoWorkspace(t *testing.T) {
	if got := FindFrom(t.TempDir()); got != "" {
		t.Errorf("FindFrom() = %q, want empty", got)
	}
}

func TestPaths(t *testing.T) {
	root := "/ws"
	if got := ManifestPath(root); got != filepath.Join("/ws", DirName, "manifest.json") {
		t.Errorf("ManifestPath = %q", got)
	}
	if got := IgnorePath(root); got != filepath.Join("/ws", DirName, "ignore") {
		t.Errorf("IgnorePath = %q", got)
	}
	if got := ConfigPath(root); got != filepath.Join("/ws", DirName, "config.yaml") {
		t.Errorf("ConfigPath = %q", got)
	}
}
