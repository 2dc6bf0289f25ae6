package manifest

import (
	"reflect"
	"testing"
)

func baselineWith(entries ...Entry) *Manifest {
	m := NewManifest("/ws")
	for _, e := range entries {
		m.Add(e)
	}
	return m
}

func TestDiffClassification(t *testing.T) {
	baseline := baselineWith(
		Entry{Path: "a.py", Fingerprint: "aaa", Size: 10},
		Entry{Path: "gone.py", Fingerprint: "ggg", Size: 5},
		Entry{Path: "same.py", Fingerprint: "sss", Size: 7},
	)
	current := baselineWith(
		Entry{Path: "a.py", Fingerprint: "bbb", Size: 10},
		Entry{Path: "b.py", Fingerprint: "new", Size: 3},
		Entry{Path: "same.py", Fingerprint: "sss", Size: 7},
	)

	diff := Diff(baseline, current)

	want := map[string]Classification{
		"a.py":    Modified,
		"b.py":    Added,
		"gone.py": Deleted,
	}
	if len(diff) != len(want) {
		t.Fatalf("Diff returned %d entries, want %d: %+v", len(diff), len(want), diff)
	}
	for _, e := range diff {
		if want[e.Path] != e.Class {
			t.Errorf("%s classified %s, want %s", e.Path, e.Class, want[e.Path])
		}
	}
}

func TestDiffSizeMismatchAloneIsModified(t *testing.T) {
	// Same fingerprint text but different sizes must still classify as
	// modified; the size check is consulted first.
	baseline := baselineWith(Entry{Path: "a.py", Fingerprint: "x", Size: 10})
	current := baselineWith(Entry{Path: "a.py", Fingerprint: "x", Size: 11})

	diff := Diff(baseline, current)
	if len(diff) != 1 || diff[0].Class != Modified {
		t.Fatalf("expected one Modified entry, got %+v", diff)
	}
}

func TestDiffDeterministic(t *testing.T) {
	baseline := baselineWith(
		Entry{Path: "a.py", Fingerprint: "1", Size: 1},
		Entry{Path: "b.py", Fingerprint: "2", Size: 2},
	)
	current := baselineWith(
		Entry{Path: "b.py", Fingerprint: "2x", Size: 2},
		Entry{Path: "c.py", Fingerprint: "3", Size: 3},
	)

	first := Diff(baseline, current)
	second := Diff(baseline, current)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Diff is not deterministic:\n%+v\n%+v", first, second)
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Path >= first[i].Path {
			t.Errorf("Diff output not sorted: %s before %s", first[i-1].Path, first[i].Path)
		}
	}
}

func TestDiffEmptyInputs(t *testing.T) {
	empty := NewManifest("/ws")
	if diff := Diff(empty, empty); len(diff) != 0 {
		t.Errorf("diff of empty manifests should be empty, got %+v", diff)
	}
}

func TestDiffAgainstRemote(t *testing.T) {
	baseline := baselineWith(
		Entry{Path: "synced.py", Fingerprint: "sss", Size: 4},
		Entry{Path: "tracked.py", Fingerprint: "ttt", Size: 6},
	)
	local := baselineWith(
		Entry{Path: "synced.py", Fingerprint: "sss", Size: 4},
		Entry{Path: "tracked.py", Fingerprint: "ttt2", Size: 6},
		Entry{Path: "fresh.py", Fingerprint: "fff", Size: 2},
	)
	remote := RemoteListing{
		"synced.py":  {Path: "synced.py", Size: 4},
		"tracked.py": {Path: "tracked.py", Size: 6},
		"orphan.py":  {Path: "orphan.py", Size: 9},
		"lib":        {Path: "lib", IsDir: true},
	}

	diff := DiffAgainstRemote(local, baseline, remote)

	want := map[string]Classification{
		// Never in a baseline, absent remotely: local-only, not added.
		"fresh.py": LocalOnly,
		// Same size as remote but baseline fingerprint differs.
		"tracked.py": Modified,
		// On the device but not local.
		"orphan.py": Deleted,
	}
	if len(diff) != len(want) {
		t.Fatalf("got %d entries, want %d: %+v", len(diff), len(want), diff)
	}
	for _, e := range diff {
		if want[e.Path] != e.Class {
			t.Errorf("%s classified %s, want %s", e.Path, e.Class, want[e.Path])
		}
	}
}

func TestDiffAgainstRemoteBaselinePromotesAdded(t *testing.T) {
	// A path recorded in the baseline but missing remotely was synced
	// once and must come back as Added, not LocalOnly.
	baseline := baselineWith(Entry{Path: "was_synced.py", Fingerprint: "w", Size: 1})
	local := baselineWith(Entry{Path: "was_synced.py", Fingerprint: "w", Size: 1})

	diff := DiffAgainstRemote(local, baseline, RemoteListing{})
	if len(diff) != 1 || diff[0].Class != Added {
		t.Fatalf("expected Added, got %+v", diff)
	}
}

func TestDiffAgainstRemoteNilBaseline(t *testing.T) {
	local := baselineWith(Entry{Path: "a.py", Fingerprint: "a", Size: 1})

	diff := DiffAgainstRemote(local, nil, RemoteListing{})
	if len(diff) != 1 || diff[0].Class != LocalOnly {
		t.Fatalf("expected LocalOnly with nil baseline, got %+v", diff)
	}
}

func TestDiffAgainstRemoteFingerprintPreferred(t *testing.T) {
	// When the remote listing carries a hash, it wins over the baseline.
	baseline := baselineWith(Entry{Path: "a.py", Fingerprint: "stale", Size: 4})
	local := baselineWith(Entry{Path: "a.py", Fingerprint: "live", Size: 4})
	remote := RemoteListing{
		"a.py": {Path: "a.py", Size: 4, Fingerprint: "live"},
	}

	if diff := DiffAgainstRemote(local, baseline, remote); len(diff) != 0 {
		t.Errorf("remote hash matches local, expected no diff, got %+v", diff)
	}
}
