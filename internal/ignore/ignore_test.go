package ignore

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(io.Discard, "", 0)
}

func TestMatchesPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		rules []string
		path  string
		isDir bool
		want  bool
	}{
		{
			name:  "glob matches",
			rules: []string{"*.pyc"},
			path:  "lib/cache.pyc",
			want:  true,
		},
		{
			name:  "negation reincludes later",
			rules: []string{"*.py", "!keep.py"},
			path:  "keep.py",
			want:  false,
		},
		{
			name:  "negation does not affect other matches",
			rules: []string{"*.py", "!keep.py"},
			path:  "main.py",
			want:  true,
		},
		{
			name:  "last match wins over earlier negation",
			rules: []string{"!keep.py", "*.py"},
			path:  "keep.py",
			want:  true,
		},
		{
			name:  "trailing slash restricts to directories",
			rules: []string{"build/"},
			path:  "build",
			isDir: true,
			want:  true,
		},
		{
			name:  "dir-only rule skips files of the same name",
			rules: []string{"build/"},
			path:  "build",
			isDir: false,
			want:  false,
		},
		{
			name:  "double star crosses directories",
			rules: []string{"**/__pycache__/"},
			path:  "pkg/sub/__pycache__",
			isDir: true,
			want:  true,
		},
		{
			name:  "unmatched path passes",
			rules: []string{"*.pyc", "build/"},
			path:  "main.py",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Build(tt.rules, testLogger(t))
			if got := m.Matches(tt.path, tt.isDir); got != tt.want {
				t.Errorf("Matches(%q, %v) = %v, want %v", tt.path, tt.isDir, got, tt.want)
			}
		})
	}
}

func TestBuildSkipsCommentsAndMalformed(t *testing.T) {
	rules := []string{
		"# a comment",
		"",
		"   ",
		"!",
		"/",
		"*.pyc",
	}

	m := Build(rules, testLogger(t))
	if got := m.RuleCount(); got != 1 {
		t.Errorf("RuleCount() = %d, want 1", got)
	}
	if !m.Matches("a.pyc", false) {
		t.Error("surviving rule should still match")
	}
}

func TestParse(t *testing.T) {
	m, err := Parse(strings.NewReader("*.log\n!important.log\n"), testLogger(t))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if !m.Matches("debug.log", false) {
		t.Error("debug.log should be ignored")
	}
	if m.Matches("important.log", false) {
		t.Error("important.log should be re-included")
	}
}

func TestLoadMissingFile(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "nope"), testLogger(t))
	if err != nil {
		t.Fatalf("Load() error for missing file: %v", err)
	}
	if m.Matches("anything", false) {
		t.Error("empty matcher should match nothing")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ignore")
	if err := os.WriteFile(path, []byte(".git/\n*.tmp\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path, testLogger(t))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !m.Matches(".git", true) {
		t.Error(".git directory should be ignored")
	}
	if !m.Matches("scratch.tmp", false) {
		t.Error("*.tmp should be ignored")
	}
}

func TestNilMatcher(t *testing.T) {
	var m *Matcher
	if m.Matches("anything", false) {
		t.Error("nil matcher should match nothing")
	}
	if m.RuleCount() != 0 {
		t.Error("nil matcher should report zero rules")
	}
}
