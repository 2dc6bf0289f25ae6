package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/embedworks/picosync/internal/devtool"
)

// manifestFile is the durable JSON form:
//
//	{ "files": { "<path>": { "fingerprint": ..., "size": ..., "mtimeMillis": ... } } }
//
// Load(Save(m)) must produce an equivalent files map.
type manifestFile struct {
	Files map[string]entryFile `json:"files"`
}

type entryFile struct {
	Fingerprint string `json:"fingerprint"`
	Size        uint64 `json:"size"`
	MTimeMillis int64  `json:"mtimeMillis"`
}

// Save persists the manifest as JSON at the given path, creating parent
// directories as needed. The write goes through a temp file and rename so
// a crash never leaves a truncated baseline behind.
func Save(m *Manifest, path string) error {
	out := manifestFile{Files: make(map[string]entryFile, len(m.Files))}
	for p, e := range m.Files {
		out.Files[p] = entryFile{
			Fingerprint: e.Fingerprint,
			Size:        e.Size,
			MTimeMillis: e.MTimeMillis,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	return nil
}

// Load reads a manifest from disk. A missing file returns (nil, nil):
// no baseline exists yet. A malformed file is a configuration error.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var in manifestFile
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("%w: malformed manifest %s: %v", devtool.ErrConfiguration, path, err)
	}

	m := &Manifest{
		Files:   make(map[string]Entry, len(in.Files)),
		BuiltAt: time.Now(),
	}
	for p, e := range in.Files {
		m.Files[p] = Entry{
			Path:        p,
			Fingerprint: e.Fingerprint,
			Size:        e.Size,
			MTimeMillis: e.MTimeMillis,
		}
	}
	return m, nil
}
