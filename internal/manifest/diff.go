package manifest

import "sort"

// Classification labels a path's state relative to a baseline.
type Classification string

const (
	// Added marks a path known to be new relative to the last baseline.
	Added Classification = "added"

	// Modified marks a path whose content changed.
	Modified Classification = "modified"

	// Deleted marks a path present in the baseline but gone now.
	Deleted Classification = "deleted"

	// LocalOnly marks a path present locally that was never recorded in
	// any baseline and has no remote counterpart.
	LocalOnly Classification = "local-only"
)

// DiffEntry classifies a single path.
type DiffEntry struct {
	Path       string
	Class      Classification
	LocalSize  uint64
	RemoteSize uint64
}

// RemoteEntry is one line of a live remote listing.
type RemoteEntry struct {
	Path string
	Size uint64
	// Fingerprint is set only when the device tool can hash remotely.
	Fingerprint string
	IsDir       bool
}

// RemoteListing maps remote relative path to its entry. Directory entries
// are ignored by diff computation.
type RemoteListing map[string]RemoteEntry

// Diff compares a baseline manifest against the current one and returns
// the changed paths, sorted for deterministic output. Diffing identical
// inputs twice yields identical results.
//
// Size mismatch alone is sufficient to classify a path as Modified; the
// fingerprint is consulted only when sizes match.
func Diff(baseline, current *Manifest) []DiffEntry {
	var out []DiffEntry

	for p, cur := range current.Files {
		base, ok := baseline.Files[p]
		if !ok {
			out = append(out, DiffEntry{Path: p, Class: Added, LocalSize: cur.Size})
			continue
		}
		if changed(base, cur) {
			out = append(out, DiffEntry{
				Path:       p,
				Class:      Modified,
				LocalSize:  cur.Size,
				RemoteSize: base.Size,
			})
		}
	}

	for p, base := range baseline.Files {
		if _, ok := current.Files[p]; !ok {
			out = append(out, DiffEntry{Path: p, Class: Deleted, RemoteSize: base.Size})
		}
	}

	sortDiff(out)
	return out
}

// DiffAgainstRemote compares the local manifest against a live remote
// listing, using the baseline to distinguish Added (known new since the
// last sync) from LocalOnly (never part of any baseline and absent
// remotely). baseline may be nil when no sync has ever run.
func DiffAgainstRemote(local *Manifest, baseline *Manifest, remote RemoteListing) []DiffEntry {
	var out []DiffEntry

	inBaseline := func(p string) bool {
		return baseline != nil && hasPath(baseline, p)
	}

	for p, loc := range local.Files {
		rem, ok := remote[p]
		if !ok || rem.IsDir {
			class := Added
			if !inBaseline(p) {
				class = LocalOnly
			}
			out = append(out, DiffEntry{Path: p, Class: class, LocalSize: loc.Size})
			continue
		}

		if loc.Size != rem.Size {
			out = append(out, DiffEntry{
				Path:       p,
				Class:      Modified,
				LocalSize:  loc.Size,
				RemoteSize: rem.Size,
			})
			continue
		}

		// Sizes match; fingerprints decide when available. Without a
		// remote hash, fall back to the baseline fingerprint.
		switch {
		case rem.Fingerprint != "":
			if rem.Fingerprint != loc.Fingerprint {
				out = append(out, DiffEntry{Path: p, Class: Modified, LocalSize: loc.Size, RemoteSize: rem.Size})
			}
		case baseline != nil:
			if base, ok := baseline.Files[p]; ok && base.Fingerprint != loc.Fingerprint {
				out = append(out, DiffEntry{Path: p, Class: Modified, LocalSize: loc.Size, RemoteSize: rem.Size})
			}
		}
	}

	for p, rem := range remote {
		if rem.IsDir {
			continue
		}
		if _, ok := local.Files[p]; !ok {
			out = append(out, DiffEntry{Path: p, Class: Deleted, RemoteSize: rem.Size})
		}
	}

	sortDiff(out)
	return out
}

// changed reports whether two entries differ. The size check is a cheap
// pre-check; the fingerprint is the source of truth when sizes match.
func changed(a, b Entry) bool {
	if a.Size != b.Size {
		return true
	}
	return a.Fingerprint != b.Fingerprint
}

func hasPath(m *Manifest, p string) bool {
	_, ok := m.Files[p]
	return ok
}

func sortDiff(entries []DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}
