package syncer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/embedworks/picosync/internal/devtool"
	"github.com/embedworks/picosync/internal/manifest"
)

// RemoteFS is the device-side filesystem surface the applier needs.
// The concrete implementation routes everything through the device tool
// subprocess contract.
type RemoteFS interface {
	Mkdir(ctx context.Context, path string) error
	Put(ctx context.Context, localPath, remotePath string) error
	Get(ctx context.Context, remotePath, localPath string) error
	Remove(ctx context.Context, path string) error
	List(ctx context.Context) (manifest.RemoteListing, error)
}

// ToolFS implements RemoteFS over a devtool.Invoker.
type ToolFS struct {
	dev devtool.Invoker
}

var _ RemoteFS = (*ToolFS)(nil)

// NewToolFS wraps a device invoker as a RemoteFS.
func NewToolFS(dev devtool.Invoker) *ToolFS {
	return &ToolFS{dev: dev}
}

// Mkdir creates a remote directory. An already existing directory is
// not an error; directory creation must be idempotent for the
// parent-before-child pre-pass.
func (f *ToolFS) Mkdir(ctx context.Context, path string) error {
	_, err := f.dev.Invoke(ctx, devtool.NewCommand("fs", "mkdir", ":"+path))
	if err != nil && isAlreadyExists(err) {
		return nil
	}
	return err
}

// Put uploads a local file to the device.
func (f *ToolFS) Put(ctx context.Context, localPath, remotePath string) error {
	_, err := f.dev.Invoke(ctx, devtool.NewCommand("fs", "cp", localPath, ":"+remotePath))
	return err
}

// Get downloads a device file to a local path.
func (f *ToolFS) Get(ctx context.Context, remotePath, localPath string) error {
	_, err := f.dev.Invoke(ctx, devtool.NewCommand("fs", "cp", ":"+remotePath, localPath))
	return err
}

// Remove deletes a remote file.
func (f *ToolFS) Remove(ctx context.Context, path string) error {
	_, err := f.dev.Invoke(ctx, devtool.NewCommand("fs", "rm", ":"+path))
	return err
}

// List returns a recursive listing of the device tree.
func (f *ToolFS) List(ctx context.Context) (manifest.RemoteListing, error) {
	res, err := f.dev.Invoke(ctx, devtool.NewCommand("fs", "ls", "-r", ":"))
	if err != nil {
		return nil, err
	}
	return parseListing(string(res.Stdout))
}

// parseListing parses `fs ls -r` output. Each entry line carries a size
// column followed by a path; directories end with a slash. Header lines
// without a leading size column are skipped.
func parseListing(out string) (manifest.RemoteListing, error) {
	listing := make(manifest.RemoteListing)

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		fields := strings.SplitN(trimmed, " ", 2)
		if len(fields) != 2 {
			continue
		}
		size, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			// Header or chatter line.
			continue
		}

		name := strings.TrimSpace(fields[1])
		if name == "" {
			continue
		}
		isDir := strings.HasSuffix(name, "/")
		name = manifest.NormalizePath(strings.TrimSuffix(name, "/"))
		if name == "" || name == "." {
			continue
		}

		listing[name] = manifest.RemoteEntry{
			Path:  name,
			Size:  size,
			IsDir: isDir,
		}
	}

	if len(listing) == 0 && strings.TrimSpace(out) != "" && !strings.HasPrefix(strings.TrimSpace(out), "ls :") {
		return nil, fmt.Errorf("unrecognized device listing output")
	}
	return listing, nil
}

// isAlreadyExists detects the tool's file-exists failure text.
func isAlreadyExists(err error) bool {
	var sub *devtool.SubprocessError
	if !errors.As(err, &sub) {
		return false
	}
	msg := strings.ToLower(sub.Stderr)
	return strings.Contains(msg, "eexist") || strings.Contains(msg, "file exists") ||
		strings.Contains(msg, "already exists")
}
