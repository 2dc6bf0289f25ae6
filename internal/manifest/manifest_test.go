package manifest

import (
	"reflect"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"lib/util.py", "lib/util.py"},
		{"lib\\util.py", "lib/util.py"},
		{"./lib/util.py", "lib/util.py"},
		{"/lib/util.py", "lib/util.py"},
		{"lib//util.py", "lib/util.py"},
		{"lib/./util.py", "lib/util.py"},
	}

	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAddOverwrites(t *testing.T) {
	m := NewManifest("/ws")
	m.Add(Entry{Path: "a.py", Fingerprint: "old", Size: 1})
	m.Add(Entry{Path: "a.py", Fingerprint: "new", Size: 2})

	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if m.Files["a.py"].Fingerprint != "new" {
		t.Error("Add should overwrite the earlier entry for the same path")
	}
}

func TestPathsSorted(t *testing.T) {
	m := NewManifest("/ws")
	m.Add(Entry{Path: "z.py"})
	m.Add(Entry{Path: "a.py"})
	m.Add(Entry{Path: "m/mid.py"})

	want := []string{"a.py", "m/mid.py", "z.py"}
	if got := m.Paths(); !reflect.DeepEqual(got, want) {
		t.Errorf("Paths() = %v, want %v", got, want)
	}
}
