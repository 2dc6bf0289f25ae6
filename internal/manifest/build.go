package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/embedworks/picosync/internal/ignore"
)

// Warning records a path that was skipped during a build.
// Unreadable entries never fail the walk; partial manifests are expected
// on filesystems with permission quirks.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// Build walks the tree rooted at root depth-first and records every
// regular file not excluded by the matcher.
//
// Directories matched by the ignore rules are pruned before descent, so
// version-control and dependency caches are never walked. The matcher
// may be nil, in which case nothing is excluded.
func Build(root string, matcher *ignore.Matcher) (*Manifest, []Warning, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve sync root: %w", err)
	}

	m := NewManifest(absRoot)
	var warnings []Warning

	err = filepath.WalkDir(absRoot, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == absRoot {
				return walkErr
			}
			warnings = append(warnings, Warning{Path: p, Err: walkErr})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if p == absRoot {
			return nil
		}

		rel, err := filepath.Rel(absRoot, p)
		if err != nil {
			warnings = append(warnings, Warning{Path: p, Err: err})
			return nil
		}
		relPath := NormalizePath(rel)

		if d.IsDir() {
			if matcher.Matches(relPath, true) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if matcher.Matches(relPath, false) {
			return nil
		}

		entry, err := fileEntry(p, relPath)
		if err != nil {
			warnings = append(warnings, Warning{Path: relPath, Err: err})
			return nil
		}
		m.Add(entry)
		return nil
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("failed to walk %s: %w", absRoot, err)
	}

	return m, warnings, nil
}

// fileEntry stats and fingerprints a single regular file.
func fileEntry(fullPath, relPath string) (Entry, error) {
	info, err := os.Stat(fullPath)
	if err != nil {
		return Entry{}, err
	}

	sum, err := Fingerprint(fullPath)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		Path:        relPath,
		Fingerprint: sum,
		Size:        uint64(info.Size()),
		MTimeMillis: info.ModTime().UnixMilli(),
	}, nil
}

// Fingerprint returns the hex SHA-256 digest of the file content.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
