// Package workspace locates the .picosync workspace directory and the
// fixed paths inside it.
package workspace

import (
	"os"
	"path/filepath"
)

// DirName is the workspace metadata directory.
const DirName = ".picosync"

// Find walks up from the current directory looking for a .picosync
// directory. Returns the directory containing it, or "" if none exists.
func Find() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	return FindFrom(dir)
}

// FindFrom walks up from start looking for a .picosync directory.
func FindFrom(start string) string {
	dir := start
	for {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Init creates the workspace directory under root.
func Init(root string) error {
	return os.MkdirAll(filepath.Join(root, DirName), 0o755)
}

// ManifestPath is the fixed location of the sync baseline.
func ManifestPath(root string) string {
	return filepath.Join(root, DirName, "manifest.json")
}

// IgnorePath is the fixed location of the ignore rules file.
func IgnorePath(root string) string {
	return filepath.Join(root, DirName, "ignore")
}

// ConfigPath is the fixed location of the configuration file.
func ConfigPath(root string) string {
	return filepath.Join(root, DirName, "config.yaml")
}

// LogPath is the default location for the rotating log file.
func LogPath(root string) string {
	return filepath.Join(root, DirName, "picosync.log")
}
