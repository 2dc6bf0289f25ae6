// Package manifest records content fingerprints of a local file tree and
// computes directional differences against a baseline or a live remote
// listing.
//
// A Manifest is the sync baseline: it is built by walking the local tree,
// persisted as JSON after a successful sync, and replaced wholesale on the
// next one. Diff computation is a pure function of its inputs.
package manifest

import (
	"path"
	"sort"
	"strings"
	"time"
)

// Entry describes a single file in a manifest.
//
// Path uses forward slashes and never begins with a separator. Within a
// Manifest, paths are unique (map semantics).
type Entry struct {
	// Path is the slash-separated path relative to the manifest root.
	Path string

	// Fingerprint is the hex SHA-256 digest of the file content. It is
	// stable across runs when content is unchanged, and is the
	// authoritative comparison when sizes match.
	Fingerprint string

	// Size is the file size in bytes.
	Size uint64

	// MTimeMillis is the modification time in Unix milliseconds.
	// Informational only; mtime alone is not trusted for comparison
	// because copy/clone operations reset it while preserving content.
	MTimeMillis int64

	// IsDir marks directory entries in remote listings. Local manifests
	// record regular files only.
	IsDir bool
}

// Manifest is a snapshot of a file tree keyed by relative path.
type Manifest struct {
	// Root labels the tree this manifest was built from.
	Root string

	// Files maps relative path to its entry.
	Files map[string]Entry

	// BuiltAt is when the walk completed.
	BuiltAt time.Time
}

// NewManifest returns an empty manifest for the given root label.
func NewManifest(root string) *Manifest {
	return &Manifest{
		Root:    root,
		Files:   make(map[string]Entry),
		BuiltAt: time.Now(),
	}
}

// Add records an entry, overwriting any previous entry for the same path.
func (m *Manifest) Add(e Entry) {
	m.Files[e.Path] = e
}

// Len returns the number of recorded files.
func (m *Manifest) Len() int {
	return len(m.Files)
}

// Paths returns the recorded paths in sorted order.
func (m *Manifest) Paths() []string {
	paths := make([]string, 0, len(m.Files))
	for p := range m.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// NormalizePath converts an OS path relative to the root into manifest
// form: forward slashes, no leading separator, cleaned.
func NormalizePath(rel string) string {
	p := path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}
