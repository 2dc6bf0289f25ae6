// Package syncer applies a computed diff to the device or the local
// tree.
//
// The whole batch runs under one exclusive channel acquisition rather
// than one per file, to avoid thrashing the session suspend/restore
// cycle. Sync is additive/overwriting by default: paths that exist only
// on the destination side are reported but only removed when the caller
// explicitly asks for deletion semantics.
package syncer

import (
	"context"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/embedworks/picosync/internal/coordinator"
	"github.com/embedworks/picosync/internal/manifest"
	"github.com/embedworks/picosync/internal/session"
)

// Direction selects which side overwrites which.
type Direction int

const (
	LocalToRemote Direction = iota
	RemoteToLocal
)

// String returns a human-readable direction label.
func (d Direction) String() string {
	if d == RemoteToLocal {
		return "remote->local"
	}
	return "local->remote"
}

// Options configure one ApplyDiff call.
type Options struct {
	// Delete acts on Deleted entries. Without it they are counted as
	// skipped; destructive operations are separate, explicitly
	// confirmed commands.
	Delete bool

	// DryRun reports what would happen without touching either side.
	DryRun bool

	// Progress, when set, is called before each transfer with the
	// current path and completed/total counts. It is a reporting
	// callback, not a control-flow mechanism.
	Progress func(path string, done, total int)

	// Restore is passed through to the coordinator.
	Restore session.RestoreBehavior

	// ImportHint is the module path for replay-import restore.
	ImportHint string
}

// Result summarizes a batch apply.
type Result struct {
	Succeeded   int
	Failed      int
	Skipped     int
	FailedPaths []string
	// Errors holds the per-path failure, parallel to FailedPaths.
	Errors []error
}

// Applier performs directional copies for a diff.
type Applier struct {
	fs        RemoteFS
	coord     *coordinator.Coordinator
	localRoot string
	logger    *log.Logger
}

// NewApplier creates an Applier rooted at localRoot. All device access is
// routed through the coordinator.
func NewApplier(fs RemoteFS, coord *coordinator.Coordinator, localRoot string, logger *log.Logger) *Applier {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Applier{fs: fs, coord: coord, localRoot: localRoot, logger: logger}
}

// ApplyDiff performs the directional copy for every entry in the diff.
//
// Diff classifications are named from the local perspective, so the
// direction decides what each class means for a transfer: uploading
// moves Added/Modified/LocalOnly content to the device and treats
// Deleted (device-only) paths as delete candidates; downloading moves
// Modified and Deleted (device-only) content to the local tree and
// treats Added/LocalOnly (local-only) paths as delete candidates.
// Delete candidates are acted on only with the Delete option.
//
// For LocalToRemote the full set of ancestor directories implied by the
// transfers is created first, parent before child. For RemoteToLocal
// local parents are created lazily per file, since local directory
// creation is idempotent and cheap.
//
// Individual transfer failures are recorded and the batch continues;
// the returned Result carries succeeded/failed counts with the failed
// paths enumerated.
func (a *Applier) ApplyDiff(ctx context.Context, diff []manifest.DiffEntry, dir Direction, opts Options) (*Result, error) {
	if opts.DryRun {
		return a.dryRun(diff, dir, opts), nil
	}

	hint := opts.ImportHint
	if hint == "" && opts.Restore == session.RestoreReplayImport {
		hint = moduleHint(transfersFor(diff, dir))
	}

	coordOpts := coordinator.Options{
		Preempt:    true,
		Restore:    opts.Restore,
		ImportHint: hint,
	}

	return coordinator.RunExclusiveResult(ctx, a.coord, coordOpts, func(ctx context.Context) (*Result, error) {
		if dir == RemoteToLocal {
			return a.applyDown(ctx, diff, opts), nil
		}
		return a.applyUp(ctx, diff, opts), nil
	})
}

// applyUp uploads local content to the device.
func (a *Applier) applyUp(ctx context.Context, diff []manifest.DiffEntry, opts Options) *Result {
	res := &Result{}
	transfers := transfersFor(diff, LocalToRemote)
	total := len(transfers)

	// Ancestor pre-pass: remote mkdir has no -p equivalent, so implied
	// directories go in depth-ascending order.
	for _, d := range impliedDirs(transfers) {
		if err := a.fs.Mkdir(ctx, d); err != nil {
			a.logger.Printf("mkdir %s: %v", d, err)
		}
	}

	for i, e := range transfers {
		if opts.Progress != nil {
			opts.Progress(e.Path, i, total)
		}
		local := filepath.Join(a.localRoot, filepath.FromSlash(e.Path))
		if err := a.fs.Put(ctx, local, e.Path); err != nil {
			a.logger.Printf("WARNING: failed to upload %s: %v", e.Path, err)
			res.fail(e.Path, err)
			continue
		}
		res.Succeeded++
	}

	a.applyDeletes(diff, LocalToRemote, opts, res, func(p string) error {
		return a.fs.Remove(ctx, p)
	})

	if opts.Progress != nil {
		opts.Progress("", total, total)
	}
	return res
}

// applyDown downloads device content into the local tree. Device-only
// paths arrive classified Deleted; they are downloads here, not
// deletions.
func (a *Applier) applyDown(ctx context.Context, diff []manifest.DiffEntry, opts Options) *Result {
	res := &Result{}
	transfers := transfersFor(diff, RemoteToLocal)
	total := len(transfers)

	for i, e := range transfers {
		if opts.Progress != nil {
			opts.Progress(e.Path, i, total)
		}
		local := filepath.Join(a.localRoot, filepath.FromSlash(e.Path))
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			res.fail(e.Path, err)
			continue
		}
		if err := a.fs.Get(ctx, e.Path, local); err != nil {
			a.logger.Printf("WARNING: failed to download %s: %v", e.Path, err)
			res.fail(e.Path, err)
			continue
		}
		res.Succeeded++
	}

	a.applyDeletes(diff, RemoteToLocal, opts, res, func(p string) error {
		return os.Remove(filepath.Join(a.localRoot, filepath.FromSlash(p)))
	})

	if opts.Progress != nil {
		opts.Progress("", total, total)
	}
	return res
}

// applyDeletes removes the direction's delete candidates, only when
// explicitly requested; otherwise they are counted as skipped.
func (a *Applier) applyDeletes(diff []manifest.DiffEntry, dir Direction, opts Options, res *Result, remove func(string) error) {
	for _, e := range diff {
		if !deleteCandidate(e.Class, dir) {
			continue
		}
		if !opts.Delete {
			res.Skipped++
			continue
		}
		if err := remove(e.Path); err != nil {
			a.logger.Printf("WARNING: failed to delete %s: %v", e.Path, err)
			res.fail(e.Path, err)
			continue
		}
		res.Succeeded++
	}
}

// dryRun counts what an apply would do.
func (a *Applier) dryRun(diff []manifest.DiffEntry, dir Direction, opts Options) *Result {
	res := &Result{}
	for _, e := range diff {
		if deleteCandidate(e.Class, dir) {
			if opts.Delete {
				res.Succeeded++
			} else {
				res.Skipped++
			}
			continue
		}
		res.Succeeded++
	}
	return res
}

func (r *Result) fail(path string, err error) {
	r.Failed++
	r.FailedPaths = append(r.FailedPaths, path)
	r.Errors = append(r.Errors, err)
}

// transfersFor filters the diff down to entries whose content moves for
// the given direction: the source side must actually have the file.
func transfersFor(diff []manifest.DiffEntry, dir Direction) []manifest.DiffEntry {
	var out []manifest.DiffEntry
	for _, e := range diff {
		if transferClass(e.Class, dir) {
			out = append(out, e)
		}
	}
	return out
}

// transferClass reports whether the class names a path that exists on
// the direction's source side.
func transferClass(c manifest.Classification, dir Direction) bool {
	if dir == RemoteToLocal {
		return c == manifest.Modified || c == manifest.Deleted
	}
	return c == manifest.Added || c == manifest.Modified || c == manifest.LocalOnly
}

// DeleteCandidates counts the diff entries the given direction would
// remove under the Delete option.
func DeleteCandidates(diff []manifest.DiffEntry, dir Direction) int {
	n := 0
	for _, e := range diff {
		if deleteCandidate(e.Class, dir) {
			n++
		}
	}
	return n
}

// deleteCandidate reports whether the class names a path that exists
// only on the direction's destination side.
func deleteCandidate(c manifest.Classification, dir Direction) bool {
	if dir == RemoteToLocal {
		return c == manifest.Added || c == manifest.LocalOnly
	}
	return c == manifest.Deleted
}

// moduleHint derives a Python module path for replay-import restoration
// from the last source file in the batch: slashes become dots, the
// extension is dropped, and a package __init__ collapses to the package.
func moduleHint(transfers []manifest.DiffEntry) string {
	var last string
	for _, e := range transfers {
		if strings.HasSuffix(e.Path, ".py") {
			last = e.Path
		}
	}
	if last == "" {
		return ""
	}
	mod := strings.TrimSuffix(last, ".py")
	mod = strings.TrimSuffix(mod, "/__init__")
	return strings.ReplaceAll(mod, "/", ".")
}

// impliedDirs expands every ancestor directory implied by the transfer
// paths and orders them parent before child (path depth ascending, then
// lexically for determinism).
func impliedDirs(transfers []manifest.DiffEntry) []string {
	seen := make(map[string]struct{})
	for _, e := range transfers {
		dir := path.Dir(e.Path)
		for dir != "." && dir != "/" {
			seen[dir] = struct{}{}
			dir = path.Dir(dir)
		}
	}

	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool {
		di, dj := strings.Count(dirs[i], "/"), strings.Count(dirs[j], "/")
		if di != dj {
			return di < dj
		}
		return dirs[i] < dirs[j]
	})
	return dirs
}
